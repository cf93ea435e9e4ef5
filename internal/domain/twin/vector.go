package twin

import "math"

const (
	MinScore     = 0.0
	MaxScore     = 100.0
	NeutralScore = 50.0
)

// SkinStateVector is the fixed 8-dimension summary of skin condition.
// Every field is always populated and kept within [0,100].
type SkinStateVector struct {
	HydrationIndex    float64 `gorm:"column:hydration_index;type:double precision;not null" json:"hydration_index"`
	OilinessLevel     float64 `gorm:"column:oiliness_level;type:double precision;not null" json:"oiliness_level"`
	SensitivityIndex  float64 `gorm:"column:sensitivity_index;type:double precision;not null" json:"sensitivity_index"`
	BarrierRisk       float64 `gorm:"column:barrier_risk;type:double precision;not null" json:"barrier_risk"`
	InflammationLevel float64 `gorm:"column:inflammation_level;type:double precision;not null" json:"inflammation_level"`
	PigmentationIndex float64 `gorm:"column:pigmentation_index;type:double precision;not null" json:"pigmentation_index"`
	AgingSigns        float64 `gorm:"column:aging_signs;type:double precision;not null" json:"aging_signs"`
	CongestionLevel   float64 `gorm:"column:congestion_level;type:double precision;not null" json:"congestion_level"`
}

// NeutralVector returns a vector with every dimension at the neutral score.
func NeutralVector() SkinStateVector {
	var v SkinStateVector
	for _, d := range Dimensions {
		v.Set(d, NeutralScore)
	}
	return v
}

func (v SkinStateVector) Get(d Dimension) float64 {
	switch d {
	case HydrationIndex:
		return v.HydrationIndex
	case OilinessLevel:
		return v.OilinessLevel
	case SensitivityIndex:
		return v.SensitivityIndex
	case BarrierRisk:
		return v.BarrierRisk
	case InflammationLevel:
		return v.InflammationLevel
	case PigmentationIndex:
		return v.PigmentationIndex
	case AgingSigns:
		return v.AgingSigns
	case CongestionLevel:
		return v.CongestionLevel
	}
	return 0
}

func (v *SkinStateVector) Set(d Dimension, val float64) {
	switch d {
	case HydrationIndex:
		v.HydrationIndex = val
	case OilinessLevel:
		v.OilinessLevel = val
	case SensitivityIndex:
		v.SensitivityIndex = val
	case BarrierRisk:
		v.BarrierRisk = val
	case InflammationLevel:
		v.InflammationLevel = val
	case PigmentationIndex:
		v.PigmentationIndex = val
	case AgingSigns:
		v.AgingSigns = val
	case CongestionLevel:
		v.CongestionLevel = val
	}
}

// Map renders the vector keyed by dimension name.
func (v SkinStateVector) Map() map[Dimension]float64 {
	out := make(map[Dimension]float64, len(Dimensions))
	for _, d := range Dimensions {
		out[d] = v.Get(d)
	}
	return out
}

// Sub returns the per-dimension signed difference v - other.
func (v SkinStateVector) Sub(other SkinStateVector) map[Dimension]float64 {
	out := make(map[Dimension]float64, len(Dimensions))
	for _, d := range Dimensions {
		out[d] = v.Get(d) - other.Get(d)
	}
	return out
}

// Clamped returns a copy with every dimension forced into [0,100].
func (v SkinStateVector) Clamped() SkinStateVector {
	out := v
	for _, d := range Dimensions {
		out.Set(d, ClampScore(v.Get(d)))
	}
	return out
}

// ClampScore bounds a score to [0,100]. NaN collapses to the neutral score.
func ClampScore(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return NeutralScore
	case x < MinScore:
		return MinScore
	case x > MaxScore:
		return MaxScore
	}
	return x
}
