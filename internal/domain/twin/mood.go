package twin

// SkinMood is the derived headline tag attached to every snapshot.
type SkinMood string

const (
	MoodBalanced        SkinMood = "balanced"
	MoodBarrierStressed SkinMood = "barrier_stressed"
	MoodInflamed        SkinMood = "inflamed"
	MoodCongested       SkinMood = "congested"
	MoodOverExfoliated  SkinMood = "over_exfoliated"
	MoodUVOverexposed   SkinMood = "uv_overexposed"
	MoodDehydrated      SkinMood = "dehydrated"
	MoodDull            SkinMood = "dull"
)
