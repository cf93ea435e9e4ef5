package steps

import "github.com/yungbote/skintwin-backend/internal/domain/twin"

// HighUVIndex is the reading at which sun exposure counts toward uv_overexposed.
const HighUVIndex = 8.0

type MoodInput struct {
	Vector      twin.SkinStateVector
	Environment *twin.EnvironmentContext
	Routine     *twin.RoutineContext
}

type MoodRule struct {
	Mood twin.SkinMood
	When func(in MoodInput) bool
}

// MoodRules is evaluated top-down; the first match wins.
var MoodRules = []MoodRule{
	{twin.MoodBarrierStressed, func(in MoodInput) bool {
		return in.Vector.BarrierRisk > 70 && in.Vector.InflammationLevel > 60
	}},
	{twin.MoodInflamed, func(in MoodInput) bool {
		return in.Vector.InflammationLevel > 70
	}},
	{twin.MoodCongested, func(in MoodInput) bool {
		return in.Vector.OilinessLevel > 70 && in.Vector.CongestionLevel > 60
	}},
	{twin.MoodOverExfoliated, func(in MoodInput) bool {
		return in.Vector.SensitivityIndex > 70 && in.Vector.BarrierRisk > 55 && in.Vector.HydrationIndex < 40
	}},
	{twin.MoodUVOverexposed, func(in MoodInput) bool {
		if in.Environment == nil || in.Environment.UVIndex == nil || *in.Environment.UVIndex < HighUVIndex {
			return false
		}
		return in.Vector.PigmentationIndex > 60 || in.Vector.InflammationLevel > 50
	}},
	{twin.MoodDehydrated, func(in MoodInput) bool {
		return in.Vector.HydrationIndex < 30
	}},
	{twin.MoodDull, func(in MoodInput) bool {
		return in.Vector.PigmentationIndex > 65 || (in.Vector.HydrationIndex < 45 && in.Vector.AgingSigns > 60)
	}},
}

func ClassifyMood(in MoodInput) twin.SkinMood {
	for _, r := range MoodRules {
		if r.When(in) {
			return r.Mood
		}
	}
	return twin.MoodBalanced
}
