package twin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	domainagg "github.com/yungbote/skintwin-backend/internal/domain/aggregates"
	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
	"github.com/yungbote/skintwin-backend/internal/observability"
)

type BuildInput struct {
	UserID uuid.UUID
	// ScanID is optional; when set at most one snapshot exists for it.
	ScanID  string
	Payload json.RawMessage
	// TakenAt defaults to now.
	TakenAt time.Time
}

type BuildResult struct {
	Snapshot *types.SkinSnapshot
	// Warnings are for logs and debugging only.
	Warnings []string
	// Duplicate is set when the scan already had a snapshot; Snapshot is the existing one.
	Duplicate bool
}

// Build ingests a payload, links nearby context records and persists the
// snapshot with its regions in one write. Submitting the same scan again, or
// concurrently, returns the existing snapshot with Duplicate set.
func (e *Engine) Build(ctx context.Context, in BuildInput) (BuildResult, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "twin.Build")
	defer span.End()

	res, err := e.buildDeduped(ctx, in)

	outcome := "created"
	switch {
	case errors.Is(err, types.ErrMalformedAnalysis):
		outcome = "malformed"
	case err != nil:
		outcome = "error"
	case res.Duplicate:
		outcome = "duplicate"
	}
	e.deps.Metrics.ObserveSnapshotBuild(outcome, time.Since(start))
	span.SetAttributes(attribute.String("twin.build.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return BuildResult{}, err
	}
	span.SetAttributes(attribute.String("twin.snapshot_id", res.Snapshot.ID.String()))
	return res, nil
}

func (e *Engine) buildDeduped(ctx context.Context, in BuildInput) (BuildResult, error) {
	if in.UserID == uuid.Nil {
		return BuildResult{}, fmt.Errorf("build snapshot: missing user id")
	}
	scan := strings.TrimSpace(in.ScanID)
	if scan == "" {
		return e.build(ctx, in, nil)
	}

	// The shared build outlives any single caller so a cancelled request
	// does not fail the others waiting on the same scan.
	leader := false
	ch := e.flight.DoChan(scan, func() (any, error) {
		leader = true
		return e.build(context.WithoutCancel(ctx), in, &scan)
	})
	var r singleflight.Result
	select {
	case <-ctx.Done():
		return BuildResult{}, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		return BuildResult{}, r.Err
	}
	res := r.Val.(BuildResult)
	if !leader {
		res = BuildResult{Snapshot: res.Snapshot, Duplicate: true}
	}
	if res.Snapshot.UserID != in.UserID {
		return BuildResult{}, fmt.Errorf("%w: scan %q belongs to another user", types.ErrDuplicateSnapshot, scan)
	}
	return res, nil
}

func (e *Engine) build(ctx context.Context, in BuildInput, scanID *string) (BuildResult, error) {
	log := e.log.With("user_id", in.UserID)
	if scanID != nil {
		log = log.With("scan_id", *scanID)
		if existing, err := e.existingForScan(ctx, *scanID); err != nil || existing != nil {
			return BuildResult{Snapshot: existing, Duplicate: existing != nil}, err
		}
	}

	ingested, err := steps.Ingest(in.Payload, steps.IngestOptions{DefaultModelVersion: e.deps.Config.DefaultModelVersion})
	if err != nil {
		log.Debug("analysis rejected", "error", err)
		return BuildResult{}, err
	}

	takenAt := in.TakenAt
	if takenAt.IsZero() {
		takenAt = e.deps.Now()
	}
	takenAt = types.StorageTime(takenAt)

	var envID, routineID *uuid.UUID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := e.correlator.Nearest(e.dbc(gctx), in.UserID, types.ContextEnvironment, takenAt)
		envID = id
		return err
	})
	g.Go(func() error {
		id, err := e.correlator.Nearest(e.dbc(gctx), in.UserID, types.ContextRoutine, takenAt)
		routineID = id
		return err
	})
	if err := g.Wait(); err != nil {
		return BuildResult{}, fmt.Errorf("correlate context: %w", err)
	}
	e.deps.Metrics.IncCorrelation(string(types.ContextEnvironment), envID != nil)
	e.deps.Metrics.IncCorrelation(string(types.ContextRoutine), routineID != nil)

	var env *types.EnvironmentContext
	var routine *types.RoutineContext
	if envID != nil {
		if env, err = e.deps.Contexts.GetEnvironment(e.dbc(ctx), *envID); err != nil {
			return BuildResult{}, err
		}
	}
	if routineID != nil {
		if routine, err = e.deps.Contexts.GetRoutine(e.dbc(ctx), *routineID); err != nil {
			return BuildResult{}, err
		}
	}

	mood := steps.ClassifyMood(steps.MoodInput{Vector: ingested.Vector, Environment: env, Routine: routine})

	created, err := e.deps.SnapshotAgg.Create(ctx, domainagg.CreateSnapshotInput{
		UserID:               in.UserID,
		ScanID:               scanID,
		TakenAt:              takenAt,
		Vector:               ingested.Vector,
		Regions:              ingested.Regions,
		EnvironmentContextID: envID,
		RoutineContextID:     routineID,
		SkinMood:             mood,
		ModelVersion:         ingested.ModelVersion,
		Confidence:           ingested.Confidence,
	})
	if err != nil {
		if scanID != nil && domainagg.IsCode(err, domainagg.CodeConflict) {
			existing, lookupErr := e.existingForScan(ctx, *scanID)
			if lookupErr != nil {
				return BuildResult{}, lookupErr
			}
			if existing != nil {
				log.Debug("scan already built by a concurrent request", "snapshot_id", existing.ID)
				return BuildResult{Snapshot: existing, Duplicate: true}, nil
			}
		}
		return BuildResult{}, err
	}

	snap := created.Snapshot
	snap.Environment = env
	snap.Routine = routine
	normalizeTimes(snap)

	observability.ReportIngestWarnings(ctx, log, e.deps.Metrics, "ingest", ingested.Warnings, map[string]any{
		"snapshot_id": snap.ID.String(),
	})
	e.remember(ctx, snap)

	log.Info("snapshot built",
		"snapshot_id", snap.ID,
		"skin_mood", snap.SkinMood,
		"regions", len(snap.Regions),
		"warnings", len(ingested.Warnings),
	)
	return BuildResult{Snapshot: snap, Warnings: ingested.Warnings}, nil
}

func (e *Engine) existingForScan(ctx context.Context, scanID string) (*types.SkinSnapshot, error) {
	existing, err := e.deps.Snapshots.GetByScanID(e.dbc(ctx), scanID)
	if err != nil || existing == nil {
		return nil, err
	}
	if err := e.hydrate(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}
