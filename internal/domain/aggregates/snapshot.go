package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
)

var SnapshotAggregateContract = Contract{
	Name:             "Twin.SnapshotAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyTableRepoQueries,
	Notes: "Owns the append-only insert of a snapshot together with its region rows. " +
		"scan_id uniqueness is a store constraint; a violation surfaces as CodeConflict.",
}

// SnapshotAggregate owns snapshot creation. There is no update or delete path.
//
// Create failures return *aggregates.Error with codes:
// CodeValidation, CodeConflict (scan already has a snapshot), CodeRetryable, CodeInternal.
type SnapshotAggregate interface {
	Aggregate

	// Create atomically persists the snapshot row and all region rows.
	Create(ctx context.Context, in CreateSnapshotInput) (CreateSnapshotResult, error)
}

type CreateSnapshotInput struct {
	UserID               uuid.UUID
	ScanID               *string
	TakenAt              time.Time
	Vector               twin.SkinStateVector
	Regions              []twin.RegionMetrics
	EnvironmentContextID *uuid.UUID
	RoutineContextID     *uuid.UUID
	SkinMood             twin.SkinMood
	ModelVersion         string
	Confidence           float64
}

type CreateSnapshotResult struct {
	Snapshot *twin.SkinSnapshot
}
