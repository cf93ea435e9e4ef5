package twin

import "errors"

var (
	// ErrMalformedAnalysis means the payload carries no usable global metrics at all.
	ErrMalformedAnalysis = errors.New("malformed analysis")
	// ErrDuplicateSnapshot means a snapshot already exists for the scan.
	ErrDuplicateSnapshot = errors.New("duplicate snapshot")
	// ErrSnapshotNotFound covers both missing snapshots and snapshots owned by someone else.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrNoBaselineAvailable means a simulation was requested for a user with no snapshots.
	ErrNoBaselineAvailable = errors.New("no baseline snapshot available")
	// ErrInvalidHorizon means horizonDays is outside [1,365].
	ErrInvalidHorizon = errors.New("invalid horizon")
	// ErrInvalidMaxPoints means maxPoints is outside [1,1000].
	ErrInvalidMaxPoints = errors.New("invalid max points")
	// ErrInvalidRange means the timeline start is after its end.
	ErrInvalidRange = errors.New("invalid time range")
)
