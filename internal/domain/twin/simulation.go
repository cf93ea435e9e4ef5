package twin

import (
	"time"

	"github.com/google/uuid"
)

// ChangeKind groups scenario changes by the stream they perturb.
type ChangeKind string

const (
	ChangeEnvironment ChangeKind = "environment"
	ChangeRoutine     ChangeKind = "routine"
)

// ScenarioChange is one hypothetical adjustment, e.g. {routine, add_sunscreen}.
// Magnitude scales the table entry and defaults to 1.
type ScenarioChange struct {
	Kind      ChangeKind `json:"kind" yaml:"kind"`
	Key       string     `json:"key" yaml:"key"`
	Magnitude float64    `json:"magnitude,omitempty" yaml:"magnitude,omitempty"`
}

const (
	MinHorizonDays = 1
	MaxHorizonDays = 365
)

// SimulatedPoint is one projected day.
type SimulatedPoint struct {
	Day        int             `json:"day"`
	Date       time.Time       `json:"date"`
	Vector     SkinStateVector `json:"vector"`
	Confidence float64         `json:"confidence"`
}

// ScenarioSimulation is the ephemeral result of a what-if projection. It is
// never persisted and may differ between calls if history changes.
type ScenarioSimulation struct {
	UserID            uuid.UUID             `json:"user_id"`
	BaseSnapshotID    uuid.UUID             `json:"base_snapshot_id"`
	BaseTakenAt       time.Time             `json:"base_taken_at"`
	BaseVector        SkinStateVector       `json:"base_vector"`
	Changes           []ScenarioChange      `json:"changes"`
	HorizonDays       int                   `json:"horizon_days"`
	AdjustmentVersion string                `json:"adjustment_version"`
	HistoryPoints     int                   `json:"history_points"`
	Slopes            map[Dimension]float64 `json:"slopes"`
	Shifts            map[Dimension]float64 `json:"shifts"`
	Timeline          []SimulatedPoint      `json:"timeline,omitempty"`
	ExpectedVector    SkinStateVector       `json:"expected_vector"`
	ExpectedMood      SkinMood              `json:"expected_mood"`
	FinalConfidence   float64               `json:"final_confidence"`
	Trends            map[Dimension]Trend   `json:"trends"`
	Warnings          []string              `json:"warnings,omitempty"`
}
