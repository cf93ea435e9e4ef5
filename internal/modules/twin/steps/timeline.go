package steps

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
)

const (
	MinTimelinePoints     = 1
	MaxTimelinePoints     = 1000
	DefaultTimelinePoints = 200

	// StableThreshold is the absolute change under which a dimension is stable.
	StableThreshold = 5.0
	insightsPerSide = 2
)

type TimelineInput struct {
	UserID    uuid.UUID
	Start     *time.Time
	End       *time.Time
	MaxPoints int
	// Snapshots must already be ordered by taken_at ascending.
	Snapshots []*twin.SkinSnapshot
}

func ValidateTimelineQuery(start, end *time.Time, maxPoints int) error {
	if maxPoints < MinTimelinePoints || maxPoints > MaxTimelinePoints {
		return fmt.Errorf("%w: %d not in [%d,%d]", twin.ErrInvalidMaxPoints, maxPoints, MinTimelinePoints, MaxTimelinePoints)
	}
	if start != nil && end != nil && start.After(*end) {
		return fmt.Errorf("%w: start %s after end %s", twin.ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

func BuildTimeline(in TimelineInput) (twin.Timeline, error) {
	out := twin.Timeline{
		UserID:         in.UserID,
		Start:          in.Start,
		End:            in.End,
		TotalSnapshots: len(in.Snapshots),
		Points:         []twin.TimelinePoint{},
		Deltas:         []twin.Delta{},
		NetChange:      map[twin.Dimension]float64{},
		Trends:         map[twin.Dimension]twin.Trend{},
		Improving:      []twin.Insight{},
		Declining:      []twin.Insight{},
	}
	if err := ValidateTimelineQuery(in.Start, in.End, in.MaxPoints); err != nil {
		return out, err
	}
	if len(in.Snapshots) == 0 {
		return out, nil
	}

	idx := DownsampleIndices(len(in.Snapshots), in.MaxPoints)
	out.Downsampled = len(idx) < len(in.Snapshots)
	for _, i := range idx {
		s := in.Snapshots[i]
		out.Points = append(out.Points, twin.TimelinePoint{
			SnapshotID: s.ID,
			ScanID:     s.ScanID,
			TakenAt:    s.TakenAt,
			Vector:     s.Vector,
			SkinMood:   s.SkinMood,
			Confidence: s.Confidence,
		})
	}
	out.Deltas = Deltas(out.Points)

	first := in.Snapshots[0].Vector
	last := in.Snapshots[len(in.Snapshots)-1].Vector
	out.NetChange = last.Sub(first)
	out.Trends = ClassifyTrends(out.NetChange)
	out.Improving, out.Declining = Insights(out.NetChange, out.Trends)
	return out, nil
}

// DownsampleIndices picks at most maxPoints evenly spaced indices out of n,
// always keeping the first and last. With maxPoints == 1 only the most recent
// index survives.
func DownsampleIndices(n, maxPoints int) []int {
	if n <= 0 {
		return nil
	}
	if maxPoints <= 0 || n <= maxPoints {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if maxPoints == 1 {
		return []int{n - 1}
	}
	out := make([]int, 0, maxPoints)
	step := float64(n-1) / float64(maxPoints-1)
	for i := 0; i < maxPoints; i++ {
		j := int(math.Round(float64(i) * step))
		if j > n-1 {
			j = n - 1
		}
		if len(out) > 0 && j <= out[len(out)-1] {
			continue
		}
		out = append(out, j)
	}
	out[len(out)-1] = n - 1
	return out
}

func Deltas(points []twin.TimelinePoint) []twin.Delta {
	out := []twin.Delta{}
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		out = append(out, twin.Delta{
			FromSnapshotID: prev.SnapshotID,
			ToSnapshotID:   cur.SnapshotID,
			Days:           cur.TakenAt.Sub(prev.TakenAt).Hours() / 24,
			Changes:        cur.Vector.Sub(prev.Vector),
		})
	}
	return out
}

func ClassifyTrend(d twin.Dimension, change float64) twin.Trend {
	if math.Abs(change) < StableThreshold {
		return twin.TrendStable
	}
	switch d.Polarity() {
	case twin.NoJudgment:
		return twin.TrendChanged
	case twin.HigherIsBetter:
		if change > 0 {
			return twin.TrendImproving
		}
		return twin.TrendDeclining
	default:
		if change > 0 {
			return twin.TrendDeclining
		}
		return twin.TrendImproving
	}
}

func ClassifyTrends(changes map[twin.Dimension]float64) map[twin.Dimension]twin.Trend {
	out := make(map[twin.Dimension]twin.Trend, len(twin.Dimensions))
	for _, d := range twin.Dimensions {
		out[d] = ClassifyTrend(d, changes[d])
	}
	return out
}

// Insights returns the largest improving and declining movements, at most
// two each, biggest first.
func Insights(changes map[twin.Dimension]float64, trends map[twin.Dimension]twin.Trend) ([]twin.Insight, []twin.Insight) {
	improving := []twin.Insight{}
	declining := []twin.Insight{}
	for _, d := range twin.Dimensions {
		ins := twin.Insight{Dimension: d, Trend: trends[d], Change: changes[d]}
		switch trends[d] {
		case twin.TrendImproving:
			ins.Message = fmt.Sprintf("%s improved by %.1f points", d, math.Abs(changes[d]))
			improving = append(improving, ins)
		case twin.TrendDeclining:
			ins.Message = fmt.Sprintf("%s worsened by %.1f points", d, math.Abs(changes[d]))
			declining = append(declining, ins)
		}
	}
	byMagnitude := func(list []twin.Insight) {
		sort.SliceStable(list, func(i, j int) bool {
			return math.Abs(list[i].Change) > math.Abs(list[j].Change)
		})
	}
	byMagnitude(improving)
	byMagnitude(declining)
	if len(improving) > insightsPerSide {
		improving = improving[:insightsPerSide]
	}
	if len(declining) > insightsPerSide {
		declining = declining[:insightsPerSide]
	}
	return improving, declining
}
