package twin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
)

type SimulateInput struct {
	UserID uuid.UUID
	// BaseSnapshotID defaults to the user's most recent snapshot.
	BaseSnapshotID  *uuid.UUID
	Changes         []types.ScenarioChange
	HorizonDays     int
	IncludeTimeline bool
}

// Simulate projects the base snapshot forward under the requested changes.
// Nothing is written.
func (e *Engine) Simulate(ctx context.Context, in SimulateInput) (*types.ScenarioSimulation, error) {
	ctx, span := e.tracer.Start(ctx, "twin.Simulate")
	defer span.End()
	span.SetAttributes(attribute.Int("twin.simulate.horizon_days", in.HorizonDays))

	out, err := e.simulate(ctx, in)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	e.deps.Metrics.ObserveSimulation(status, in.HorizonDays)
	return out, err
}

func (e *Engine) simulate(ctx context.Context, in SimulateInput) (*types.ScenarioSimulation, error) {
	if err := steps.ValidateHorizon(in.HorizonDays); err != nil {
		return nil, err
	}
	base, err := e.resolveBase(ctx, in.UserID, in.BaseSnapshotID)
	if err != nil {
		return nil, err
	}
	normalizeTimes(base)

	var (
		history []*types.SkinSnapshot
		table   *steps.AdjustmentTable
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = e.deps.Snapshots.ListRecentByUser(e.dbc(gctx), in.UserID, base.TakenAt, e.deps.Config.RegressionPoints)
		return err
	})
	g.Go(func() error {
		var err error
		table, err = e.deps.Adjustments.Load(gctx)
		if err != nil {
			return fmt.Errorf("load adjustment table: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if table == nil {
		table = steps.EmptyAdjustmentTable()
	}

	proj, err := steps.Project(steps.ProjectInput{
		BaseVector:      base.Vector,
		BaseTakenAt:     base.TakenAt,
		Slopes:          steps.HistorySlopes(history),
		Table:           table,
		Changes:         in.Changes,
		HorizonDays:     in.HorizonDays,
		IncludeTimeline: in.IncludeTimeline,
	})
	if err != nil {
		return nil, err
	}

	changes := in.Changes
	if changes == nil {
		changes = []types.ScenarioChange{}
	}
	if len(proj.Warnings) > 0 {
		e.log.Debug("simulation warnings", "user_id", in.UserID, "warnings", proj.Warnings)
	}
	return &types.ScenarioSimulation{
		UserID:            in.UserID,
		BaseSnapshotID:    base.ID,
		BaseTakenAt:       base.TakenAt,
		BaseVector:        base.Vector,
		Changes:           changes,
		HorizonDays:       in.HorizonDays,
		AdjustmentVersion: table.Version,
		HistoryPoints:     len(history),
		Slopes:            proj.Slopes,
		Shifts:            proj.Shifts,
		Timeline:          proj.Timeline,
		ExpectedVector:    proj.ExpectedVector,
		ExpectedMood:      proj.ExpectedMood,
		FinalConfidence:   proj.FinalConfidence,
		Trends:            proj.Trends,
		Warnings:          proj.Warnings,
	}, nil
}

func (e *Engine) resolveBase(ctx context.Context, userID uuid.UUID, id *uuid.UUID) (*types.SkinSnapshot, error) {
	if id != nil {
		snap, err := e.deps.Snapshots.GetByID(e.dbc(ctx), *id)
		if err != nil {
			return nil, err
		}
		if snap == nil || snap.UserID != userID {
			return nil, fmt.Errorf("%w: %s", types.ErrSnapshotNotFound, id)
		}
		return snap, nil
	}
	snap, err := e.deps.Snapshots.GetLatestByUser(e.dbc(ctx), userID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, types.ErrNoBaselineAvailable
	}
	return snap, nil
}
