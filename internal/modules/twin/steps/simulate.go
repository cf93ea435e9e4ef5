package steps

import (
	"fmt"
	"time"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
)

const (
	// ConfidenceFloor is the confidence reached on the last simulated day.
	ConfidenceFloor = 0.2
)

type ProjectInput struct {
	BaseVector      twin.SkinStateVector
	BaseTakenAt     time.Time
	Slopes          map[twin.Dimension]float64
	Table           *AdjustmentTable
	Changes         []twin.ScenarioChange
	HorizonDays     int
	IncludeTimeline bool
}

type ProjectOutput struct {
	Shifts          map[twin.Dimension]float64
	Slopes          map[twin.Dimension]float64
	Timeline        []twin.SimulatedPoint
	ExpectedVector  twin.SkinStateVector
	ExpectedMood    twin.SkinMood
	FinalConfidence float64
	Trends          map[twin.Dimension]twin.Trend
	Warnings        []string
}

func ValidateHorizon(days int) error {
	if days < twin.MinHorizonDays || days > twin.MaxHorizonDays {
		return fmt.Errorf("%w: %d not in [%d,%d]", twin.ErrInvalidHorizon, days, twin.MinHorizonDays, twin.MaxHorizonDays)
	}
	return nil
}

// DayConfidence decays linearly from 1 at day 0 to ConfidenceFloor at day == horizon.
func DayConfidence(day, horizon int) float64 {
	if horizon <= 0 || day <= 0 {
		return 1
	}
	if day >= horizon {
		return ConfidenceFloor
	}
	return 1 - (1-ConfidenceFloor)*float64(day)/float64(horizon)
}

// Project steps the base vector forward one day at a time:
// value(day) = clamp(base + slope*day + shift).
func Project(in ProjectInput) (ProjectOutput, error) {
	var out ProjectOutput
	if err := ValidateHorizon(in.HorizonDays); err != nil {
		return out, err
	}
	table := in.Table
	if table == nil {
		table = EmptyAdjustmentTable()
	}

	out.Shifts = make(map[twin.Dimension]float64, len(twin.Dimensions))
	out.Slopes = make(map[twin.Dimension]float64, len(twin.Dimensions))
	for _, d := range twin.Dimensions {
		out.Shifts[d] = 0
		out.Slopes[d] = in.Slopes[d]
	}
	for _, ch := range in.Changes {
		entry, ok := table.Lookup(ch.Kind, ch.Key)
		if !ok {
			out.Warnings = append(out.Warnings, "unknown_change:"+ch.Key)
			continue
		}
		mag := ch.Magnitude
		if mag == 0 {
			mag = 1
		}
		for d, v := range entry.Shift {
			out.Shifts[d] += v * mag
		}
		for d, v := range entry.SlopeModifier {
			out.Slopes[d] += v * mag
		}
	}

	at := func(day int) twin.SkinStateVector {
		var v twin.SkinStateVector
		for _, d := range twin.Dimensions {
			v.Set(d, twin.ClampScore(in.BaseVector.Get(d)+out.Slopes[d]*float64(day)+out.Shifts[d]))
		}
		return v
	}

	if in.IncludeTimeline {
		out.Timeline = make([]twin.SimulatedPoint, 0, in.HorizonDays+1)
		for day := 0; day <= in.HorizonDays; day++ {
			out.Timeline = append(out.Timeline, twin.SimulatedPoint{
				Day:        day,
				Date:       in.BaseTakenAt.AddDate(0, 0, day),
				Vector:     at(day),
				Confidence: DayConfidence(day, in.HorizonDays),
			})
		}
	}

	out.ExpectedVector = at(in.HorizonDays)
	out.ExpectedMood = ClassifyMood(MoodInput{Vector: out.ExpectedVector})
	out.FinalConfidence = DayConfidence(in.HorizonDays, in.HorizonDays)
	out.Trends = ClassifyTrends(out.ExpectedVector.Sub(in.BaseVector))
	return out, nil
}
