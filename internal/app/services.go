package app

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/skintwin-backend/internal/data/aggregates"
	twinmod "github.com/yungbote/skintwin-backend/internal/modules/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
	"github.com/yungbote/skintwin-backend/internal/observability"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

type Services struct {
	Twin *twinmod.Engine
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	adjustments, err := loadAdjustments(log, cfg.AdjustmentsPath)
	if err != nil {
		return Services{}, err
	}

	snapshotAgg := aggregates.NewSnapshotAggregate(aggregates.SnapshotAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Snapshots: r.Snapshots,
		Regions:   r.Regions,
	})

	engine := twinmod.New(twinmod.EngineDeps{
		DB:          db,
		Log:         log,
		Snapshots:   r.Snapshots,
		Regions:     r.Regions,
		Contexts:    r.Contexts,
		SnapshotAgg: snapshotAgg,
		Cache:       c.SnapshotCache,
		Adjustments: adjustments,
		Metrics:     metrics,
		Config:      cfg.Twin,
	})
	return Services{Twin: engine}, nil
}

// loadAdjustments fails fast on a configured but unreadable table; with no
// path every scenario change is reported as unknown.
func loadAdjustments(log *logger.Logger, path string) (steps.AdjustmentSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		log.Warn("TWIN_ADJUSTMENTS_PATH not set; simulations will ignore scenario changes")
		return steps.StaticAdjustmentSource{}, nil
	}
	src := steps.NewFileAdjustmentSource(path)
	table, err := src.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load adjustment table: %w", err)
	}
	log.Info("adjustment table loaded", "path", path, "version", table.Version, "entries", len(table.Entries))
	return src, nil
}
