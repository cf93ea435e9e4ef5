package twin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yungbote/skintwin-backend/internal/data/repos"
	domainagg "github.com/yungbote/skintwin-backend/internal/domain/aggregates"
	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
	"github.com/yungbote/skintwin-backend/internal/observability"
	"github.com/yungbote/skintwin-backend/internal/platform/dbctx"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
	"github.com/yungbote/skintwin-backend/internal/platform/redis"
)

type Config struct {
	EnvironmentWindow   time.Duration
	RoutineWindow       time.Duration
	RegressionPoints    int
	DefaultModelVersion string
}

func (c Config) withDefaults() Config {
	if c.EnvironmentWindow <= 0 {
		c.EnvironmentWindow = steps.DefaultEnvironmentWindow
	}
	if c.RoutineWindow <= 0 {
		c.RoutineWindow = steps.DefaultRoutineWindow
	}
	if c.RegressionPoints < 2 {
		c.RegressionPoints = steps.DefaultRegressionPoints
	}
	return c
}

type EngineDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Snapshots   repos.SnapshotRepo
	Regions     repos.SnapshotRegionRepo
	Contexts    repos.ContextRepo
	SnapshotAgg domainagg.SnapshotAggregate

	// Optional.
	Cache       redis.SnapshotCache
	Adjustments steps.AdjustmentSource
	Metrics     *observability.Metrics

	Config Config
	Now    func() time.Time
}

// Engine is the only writer of snapshots. It exposes Build, GetCurrentSnapshot,
// GetTimeline and Simulate, and is safe for concurrent use.
type Engine struct {
	deps       EngineDeps
	log        *logger.Logger
	correlator steps.Correlator
	tracer     trace.Tracer
	flight     singleflight.Group
}

func New(deps EngineDeps) *Engine {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Cache == nil {
		deps.Cache = redis.NopSnapshotCache()
	}
	if deps.Adjustments == nil {
		deps.Adjustments = steps.StaticAdjustmentSource{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Config = deps.Config.withDefaults()
	return &Engine{
		deps: deps,
		log:  deps.Log.With("module", "TwinEngine"),
		correlator: steps.Correlator{
			Finder:            deps.Contexts,
			EnvironmentWindow: deps.Config.EnvironmentWindow,
			RoutineWindow:     deps.Config.RoutineWindow,
		},
		tracer: observability.Tracer("skintwin/twin"),
	}
}

func (e *Engine) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx}
}

// hydrate attaches regions and linked context records and normalizes times.
func (e *Engine) hydrate(ctx context.Context, snap *types.SkinSnapshot) error {
	if snap == nil {
		return nil
	}
	dbc := e.dbc(ctx)
	byID, err := e.deps.Regions.ListBySnapshotIDs(dbc, []uuid.UUID{snap.ID})
	if err != nil {
		return err
	}
	rows := byID[snap.ID]
	snap.Regions = make([]types.RegionMetrics, 0, len(rows))
	for _, row := range rows {
		rm, err := row.RegionMetrics()
		if err != nil {
			return err
		}
		snap.Regions = append(snap.Regions, rm)
	}
	if snap.EnvironmentContextID != nil && snap.Environment == nil {
		if snap.Environment, err = e.deps.Contexts.GetEnvironment(dbc, *snap.EnvironmentContextID); err != nil {
			return err
		}
	}
	if snap.RoutineContextID != nil && snap.Routine == nil {
		if snap.Routine, err = e.deps.Contexts.GetRoutine(dbc, *snap.RoutineContextID); err != nil {
			return err
		}
	}
	normalizeTimes(snap)
	return nil
}

func normalizeTimes(snap *types.SkinSnapshot) {
	snap.TakenAt = types.StorageTime(snap.TakenAt)
	snap.CreatedAt = types.StorageTime(snap.CreatedAt)
	if env := snap.Environment; env != nil {
		env.RecordedAt = types.StorageTime(env.RecordedAt)
		env.CreatedAt = types.StorageTime(env.CreatedAt)
	}
	if r := snap.Routine; r != nil {
		r.ExecutedAt = types.StorageTime(r.ExecutedAt)
		r.CreatedAt = types.StorageTime(r.CreatedAt)
	}
}

// loadHydrated reads a snapshot by id through the cache.
func (e *Engine) loadHydrated(ctx context.Context, id uuid.UUID) (*types.SkinSnapshot, error) {
	if cached, ok, err := e.deps.Cache.Get(ctx, id.String()); err != nil {
		e.log.Warn("snapshot cache get failed", "snapshot_id", id, "error", err)
	} else if ok {
		e.deps.Metrics.IncCacheLookup("hit")
		return cached, nil
	}
	e.deps.Metrics.IncCacheLookup("miss")

	snap, err := e.deps.Snapshots.GetByID(e.dbc(ctx), id)
	if err != nil || snap == nil {
		return snap, err
	}
	if err := e.hydrate(ctx, snap); err != nil {
		return nil, err
	}
	e.remember(ctx, snap)
	return snap, nil
}

func (e *Engine) remember(ctx context.Context, snap *types.SkinSnapshot) {
	if err := e.deps.Cache.Set(ctx, snap); err != nil {
		e.log.Warn("snapshot cache set failed", "snapshot_id", snap.ID, "error", err)
	}
}
