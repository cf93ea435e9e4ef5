package steps

import (
	"math"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
)

const DefaultRegressionPoints = 5

// HistorySlopes fits a least-squares line per dimension over history (any
// order) with x in days. Fewer than two points, or all points at the same
// instant, give a zero slope.
func HistorySlopes(history []*twin.SkinSnapshot) map[twin.Dimension]float64 {
	out := make(map[twin.Dimension]float64, len(twin.Dimensions))
	for _, d := range twin.Dimensions {
		out[d] = 0
	}
	if len(history) < 2 {
		return out
	}

	origin := history[0].TakenAt
	for _, s := range history[1:] {
		if s.TakenAt.Before(origin) {
			origin = s.TakenAt
		}
	}
	xs := make([]float64, len(history))
	var meanX float64
	for i, s := range history {
		xs[i] = s.TakenAt.Sub(origin).Hours() / 24
		meanX += xs[i]
	}
	n := float64(len(history))
	meanX /= n

	var sxx float64
	for _, x := range xs {
		sxx += (x - meanX) * (x - meanX)
	}
	if sxx == 0 {
		return out
	}

	for _, d := range twin.Dimensions {
		var meanY float64
		for _, s := range history {
			meanY += s.Vector.Get(d)
		}
		meanY /= n
		var sxy float64
		for i, s := range history {
			sxy += (xs[i] - meanX) * (s.Vector.Get(d) - meanY)
		}
		slope := sxy / sxx
		if math.IsNaN(slope) || math.IsInf(slope, 0) {
			slope = 0
		}
		out[d] = slope
	}
	return out
}
