package aggregates

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/skintwin-backend/internal/data/repos"
	domainagg "github.com/yungbote/skintwin-backend/internal/domain/aggregates"
	"github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/platform/dbctx"
)

type SnapshotAggregateDeps struct {
	Base BaseDeps

	Snapshots repos.SnapshotRepo
	Regions   repos.SnapshotRegionRepo

	// Now is overridable in tests.
	Now func() time.Time
}

type snapshotAggregate struct {
	deps SnapshotAggregateDeps
}

func NewSnapshotAggregate(deps SnapshotAggregateDeps) domainagg.SnapshotAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &snapshotAggregate{deps: deps}
}

func (a *snapshotAggregate) Contract() domainagg.Contract {
	return domainagg.SnapshotAggregateContract
}

func (a *snapshotAggregate) Create(ctx context.Context, in domainagg.CreateSnapshotInput) (domainagg.CreateSnapshotResult, error) {
	const op = "Twin.Snapshot.Create"
	var out domainagg.CreateSnapshotResult

	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.TakenAt.IsZero() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing taken_at", nil)
	}
	if in.ScanID != nil && strings.TrimSpace(*in.ScanID) == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "blank scan_id", nil)
	}
	if err := validateVector(in.Vector); err != nil {
		return out, MapError(op, err)
	}
	if in.Confidence < 0 || in.Confidence > 1 || math.IsNaN(in.Confidence) {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "confidence outside [0,1]", nil)
	}
	if a.deps.Snapshots == nil || a.deps.Regions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "snapshot aggregate repos not configured", nil)
	}

	now := twin.StorageTime(a.deps.Now())
	mood := in.SkinMood
	if mood == "" {
		mood = twin.MoodBalanced
	}
	snap := &twin.SkinSnapshot{
		ID:                   uuid.New(),
		UserID:               in.UserID,
		ScanID:               in.ScanID,
		TakenAt:              twin.StorageTime(in.TakenAt),
		Vector:               in.Vector,
		EnvironmentContextID: in.EnvironmentContextID,
		RoutineContextID:     in.RoutineContextID,
		SkinMood:             mood,
		ModelVersion:         strings.TrimSpace(in.ModelVersion),
		Confidence:           in.Confidence,
		CreatedAt:            now,
	}

	rows := make([]*twin.SkinRegionState, 0, len(in.Regions))
	for i, rm := range in.Regions {
		row, err := twin.NewRegionState(snap.ID, i, rm, now)
		if err != nil {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "encode region "+rm.SourceKey, err)
		}
		rows = append(rows, row)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.deps.Snapshots.Create(dbc, snap); err != nil {
			return err
		}
		return a.deps.Regions.CreateBatch(dbc, rows)
	})
	if err != nil {
		return out, err
	}

	snap.Regions = make([]twin.RegionMetrics, 0, len(rows))
	for _, row := range rows {
		rm, err := row.RegionMetrics()
		if err != nil {
			return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		snap.Regions = append(snap.Regions, rm)
	}
	out.Snapshot = snap
	return out, nil
}

func validateVector(v twin.SkinStateVector) error {
	for _, d := range twin.Dimensions {
		x := v.Get(d)
		if math.IsNaN(x) || x < twin.MinScore || x > twin.MaxScore {
			return ValidationError("dimension " + string(d) + " outside [0,100]")
		}
	}
	return nil
}
