package twin

import "strings"

// Dimension names one axis of the skin state vector.
type Dimension string

const (
	HydrationIndex    Dimension = "hydration_index"
	OilinessLevel     Dimension = "oiliness_level"
	SensitivityIndex  Dimension = "sensitivity_index"
	BarrierRisk       Dimension = "barrier_risk"
	InflammationLevel Dimension = "inflammation_level"
	PigmentationIndex Dimension = "pigmentation_index"
	AgingSigns        Dimension = "aging_signs"
	CongestionLevel   Dimension = "congestion_level"
)

// Dimensions is the canonical order used for iteration, storage and output.
var Dimensions = []Dimension{
	HydrationIndex,
	OilinessLevel,
	SensitivityIndex,
	BarrierRisk,
	InflammationLevel,
	PigmentationIndex,
	AgingSigns,
	CongestionLevel,
}

// Polarity says how a change in a dimension should be read.
type Polarity int

const (
	// HigherIsWorse covers risk/severity style scores.
	HigherIsWorse Polarity = iota
	// HigherIsBetter covers hydration.
	HigherIsBetter
	// NoJudgment covers oiliness, where neither direction is inherently good.
	NoJudgment
)

func (d Dimension) Polarity() Polarity {
	switch d {
	case HydrationIndex:
		return HigherIsBetter
	case OilinessLevel:
		return NoJudgment
	default:
		return HigherIsWorse
	}
}

func (d Dimension) Valid() bool {
	for _, c := range Dimensions {
		if c == d {
			return true
		}
	}
	return false
}

// ParseDimension accepts canonical names case-insensitively.
func ParseDimension(raw string) (Dimension, bool) {
	d := Dimension(strings.ToLower(strings.TrimSpace(raw)))
	return d, d.Valid()
}
