package twin

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SkinSnapshot is the aggregate root: an immutable, timestamped record of a
// user's derived skin state. Rows are only ever inserted.
type SkinSnapshot struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_skin_snapshot_user_taken,priority:1" json:"user_id"`
	ScanID *string   `gorm:"column:scan_id;type:text;uniqueIndex:idx_skin_snapshot_scan" json:"scan_id,omitempty"`

	TakenAt time.Time `gorm:"column:taken_at;not null;index:idx_skin_snapshot_user_taken,priority:2" json:"taken_at"`

	Vector SkinStateVector `gorm:"embedded" json:"vector"`

	EnvironmentContextID *uuid.UUID `gorm:"type:uuid;column:environment_context_id" json:"environment_context_id,omitempty"`
	RoutineContextID     *uuid.UUID `gorm:"type:uuid;column:routine_context_id" json:"routine_context_id,omitempty"`

	SkinMood     SkinMood `gorm:"column:skin_mood;type:text;not null" json:"skin_mood"`
	ModelVersion string   `gorm:"column:model_version;type:text;not null" json:"model_version"`
	Confidence   float64  `gorm:"column:confidence;type:double precision;not null" json:"confidence"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`

	Regions     []RegionMetrics     `gorm:"-" json:"regions"`
	Environment *EnvironmentContext `gorm:"-" json:"environment,omitempty"`
	Routine     *RoutineContext     `gorm:"-" json:"routine,omitempty"`
}

func (SkinSnapshot) TableName() string { return "skin_snapshot" }

// SkinRegionState is the persisted row behind one RegionMetrics entry.
type SkinRegionState struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SnapshotID uuid.UUID `gorm:"type:uuid;not null;index:idx_skin_region_snapshot,priority:1" json:"snapshot_id"`
	Position   int       `gorm:"column:position;not null;index:idx_skin_region_snapshot,priority:2" json:"position"`

	Region    Region `gorm:"column:region;type:text;not null" json:"region"`
	SourceKey string `gorm:"column:source_key;type:text;not null" json:"source_key"`

	Metrics     datatypes.JSON `gorm:"column:metrics;type:jsonb;not null" json:"metrics"`
	BoundingBox datatypes.JSON `gorm:"column:bounding_box;type:jsonb" json:"bounding_box,omitempty"`
	Concerns    datatypes.JSON `gorm:"column:concerns;type:jsonb;not null" json:"concerns"`
	HeatmapURL  string         `gorm:"column:heatmap_url;type:text" json:"heatmap_url,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (SkinRegionState) TableName() string { return "skin_region_state" }

// NewRegionState encodes a RegionMetrics value for storage.
func NewRegionState(snapshotID uuid.UUID, position int, rm RegionMetrics, now time.Time) (*SkinRegionState, error) {
	scores := rm.Scores
	if scores == nil {
		scores = map[string]float64{}
	}
	metrics, err := json.Marshal(scores)
	if err != nil {
		return nil, err
	}
	concerns := rm.Concerns
	if concerns == nil {
		concerns = []string{}
	}
	concernsRaw, err := json.Marshal(concerns)
	if err != nil {
		return nil, err
	}
	var bbox datatypes.JSON
	if rm.BoundingBox != nil {
		raw, err := json.Marshal(rm.BoundingBox)
		if err != nil {
			return nil, err
		}
		bbox = datatypes.JSON(raw)
	}
	return &SkinRegionState{
		ID:          uuid.New(),
		SnapshotID:  snapshotID,
		Position:    position,
		Region:      rm.Region,
		SourceKey:   rm.SourceKey,
		Metrics:     datatypes.JSON(metrics),
		BoundingBox: bbox,
		Concerns:    datatypes.JSON(concernsRaw),
		HeatmapURL:  rm.HeatmapURL,
		CreatedAt:   now,
	}, nil
}

// RegionMetrics decodes the stored row back into its value form.
func (s SkinRegionState) RegionMetrics() (RegionMetrics, error) {
	out := RegionMetrics{
		Region:     s.Region,
		SourceKey:  s.SourceKey,
		Scores:     map[string]float64{},
		Concerns:   []string{},
		HeatmapURL: s.HeatmapURL,
	}
	if len(s.Metrics) > 0 {
		if err := json.Unmarshal(s.Metrics, &out.Scores); err != nil {
			return out, err
		}
	}
	if len(s.Concerns) > 0 {
		if err := json.Unmarshal(s.Concerns, &out.Concerns); err != nil {
			return out, err
		}
	}
	if len(s.BoundingBox) > 0 && string(s.BoundingBox) != "null" {
		var bb BoundingBox
		if err := json.Unmarshal(s.BoundingBox, &bb); err != nil {
			return out, err
		}
		out.BoundingBox = &bb
	}
	return out, nil
}

// StorageTime normalizes timestamps to the precision every supported store keeps.
func StorageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
