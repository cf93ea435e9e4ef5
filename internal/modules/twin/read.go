package twin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
)

// GetCurrentSnapshot returns the user's most recent snapshot by taken_at.
func (e *Engine) GetCurrentSnapshot(ctx context.Context, userID uuid.UUID) (*types.SkinSnapshot, error) {
	ctx, span := e.tracer.Start(ctx, "twin.GetCurrentSnapshot")
	defer span.End()

	latest, err := e.deps.Snapshots.GetLatestByUser(e.dbc(ctx), userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: user has no snapshots", types.ErrSnapshotNotFound)
	}
	snap, err := e.loadHydrated(ctx, latest.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if snap == nil {
		return nil, types.ErrSnapshotNotFound
	}
	return snap, nil
}

type TimelineInput struct {
	UserID uuid.UUID
	Start  *time.Time
	End    *time.Time
	// MaxPoints of 0 means steps.DefaultTimelinePoints.
	MaxPoints int
}

func (e *Engine) GetTimeline(ctx context.Context, in TimelineInput) (types.Timeline, error) {
	ctx, span := e.tracer.Start(ctx, "twin.GetTimeline")
	defer span.End()

	if in.MaxPoints == 0 {
		in.MaxPoints = steps.DefaultTimelinePoints
	}
	if err := steps.ValidateTimelineQuery(in.Start, in.End, in.MaxPoints); err != nil {
		return types.Timeline{}, err
	}
	start, end := utcPtr(in.Start), utcPtr(in.End)

	snaps, err := e.deps.Snapshots.ListByUserRange(e.dbc(ctx), in.UserID, start, end)
	if err != nil {
		span.RecordError(err)
		return types.Timeline{}, err
	}
	for _, s := range snaps {
		normalizeTimes(s)
	}
	tl, err := steps.BuildTimeline(steps.TimelineInput{
		UserID:    in.UserID,
		Start:     start,
		End:       end,
		MaxPoints: in.MaxPoints,
		Snapshots: snaps,
	})
	if err != nil {
		return types.Timeline{}, err
	}
	span.SetAttributes(
		attribute.Int("twin.timeline.total", tl.TotalSnapshots),
		attribute.Int("twin.timeline.points", len(tl.Points)),
	)
	e.deps.Metrics.ObserveTimeline(len(tl.Points))
	return tl, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := types.StorageTime(*t)
	return &u
}
