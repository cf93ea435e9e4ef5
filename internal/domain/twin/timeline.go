package twin

import (
	"time"

	"github.com/google/uuid"
)

// Trend classifies how a dimension moved across a range.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
	TrendChanged   Trend = "changed"
)

// TimelinePoint is the snapshot header used in timelines; regions are not loaded.
type TimelinePoint struct {
	SnapshotID uuid.UUID       `json:"snapshot_id"`
	ScanID     *string         `json:"scan_id,omitempty"`
	TakenAt    time.Time       `json:"taken_at"`
	Vector     SkinStateVector `json:"vector"`
	SkinMood   SkinMood        `json:"skin_mood"`
	Confidence float64         `json:"confidence"`
}

// Delta is the per-dimension signed change between two consecutive points.
type Delta struct {
	FromSnapshotID uuid.UUID             `json:"from_snapshot_id"`
	ToSnapshotID   uuid.UUID             `json:"to_snapshot_id"`
	Days           float64               `json:"days"`
	Changes        map[Dimension]float64 `json:"changes"`
}

// Insight surfaces one notable dimension movement.
type Insight struct {
	Dimension Dimension `json:"dimension"`
	Trend     Trend     `json:"trend"`
	Change    float64   `json:"change"`
	Message   string    `json:"message"`
}

// Timeline is derived on read and never stored.
type Timeline struct {
	UserID         uuid.UUID             `json:"user_id"`
	Start          *time.Time            `json:"start,omitempty"`
	End            *time.Time            `json:"end,omitempty"`
	TotalSnapshots int                   `json:"total_snapshots"`
	Downsampled    bool                  `json:"downsampled"`
	Points         []TimelinePoint       `json:"points"`
	Deltas         []Delta               `json:"deltas"`
	NetChange      map[Dimension]float64 `json:"net_change"`
	Trends         map[Dimension]Trend   `json:"trends"`
	Improving      []Insight             `json:"improving"`
	Declining      []Insight             `json:"declining"`
}
