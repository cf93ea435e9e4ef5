package twin

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ContextKind selects which externally-owned record stream to correlate against.
type ContextKind string

const (
	ContextEnvironment ContextKind = "environment"
	ContextRoutine     ContextKind = "routine"
)

// EnvironmentContext is a weather/UV reading for a user at a point in time.
// Owned by an external collaborator; the engine only reads it.
type EnvironmentContext struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_env_ctx_user_recorded,priority:1" json:"user_id"`

	RecordedAt time.Time `gorm:"column:recorded_at;not null;index:idx_env_ctx_user_recorded,priority:2" json:"recorded_at"`

	UVIndex            *float64 `gorm:"column:uv_index;type:double precision" json:"uv_index,omitempty"`
	HumidityPercent    *float64 `gorm:"column:humidity_percent;type:double precision" json:"humidity_percent,omitempty"`
	TemperatureCelsius *float64 `gorm:"column:temperature_celsius;type:double precision" json:"temperature_celsius,omitempty"`
	AirQualityIndex    *int     `gorm:"column:air_quality_index" json:"air_quality_index,omitempty"`
	PollutionLevel     string   `gorm:"column:pollution_level;type:text" json:"pollution_level,omitempty"`
	Season             string   `gorm:"column:season;type:text" json:"season,omitempty"`
	DataSource         string   `gorm:"column:data_source;type:text" json:"data_source,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (EnvironmentContext) TableName() string { return "environment_context" }

// RoutineContext is one execution of a skincare routine.
type RoutineContext struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_routine_ctx_user_executed,priority:1" json:"user_id"`

	RoutineType     string    `gorm:"column:routine_type;type:text;not null" json:"routine_type"`
	RoutineName     string    `gorm:"column:routine_name;type:text" json:"routine_name,omitempty"`
	ExecutedAt      time.Time `gorm:"column:executed_at;not null;index:idx_routine_ctx_user_executed,priority:2" json:"executed_at"`
	DurationMinutes *int      `gorm:"column:duration_minutes" json:"duration_minutes,omitempty"`
	Completed       bool      `gorm:"column:completed;not null" json:"completed"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (RoutineContext) TableName() string { return "routine_context" }

// ContextCandidate is one record returned by a windowed context query.
type ContextCandidate struct {
	ID        uuid.UUID
	At        time.Time
	CreatedAt time.Time
}

// Distance is the absolute time between the candidate and center.
func (c ContextCandidate) Distance(center time.Time) time.Duration {
	d := c.At.Sub(center)
	if d < 0 {
		return -d
	}
	return d
}

// closerThan orders by distance to center, then most recent creation, then id.
func closerThan(a, b ContextCandidate, center time.Time) bool {
	da, db := a.Distance(center), b.Distance(center)
	if da != db {
		return da < db
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// SortCandidates orders candidates closest to center first.
func SortCandidates(cands []ContextCandidate, center time.Time) {
	sort.SliceStable(cands, func(i, j int) bool {
		return closerThan(cands[i], cands[j], center)
	})
}

// NearestCandidate picks the candidate closest to center; ties go to the most
// recently created record.
func NearestCandidate(cands []ContextCandidate, center time.Time) (ContextCandidate, bool) {
	if len(cands) == 0 {
		return ContextCandidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if closerThan(c, best, center) {
			best = c
		}
	}
	return best, true
}
