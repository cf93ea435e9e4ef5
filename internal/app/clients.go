package app

import (
	"context"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/skintwin-backend/internal/platform/logger"
	"github.com/yungbote/skintwin-backend/internal/platform/redis"
)

type Clients struct {
	SnapshotCache redis.SnapshotCache
	Redis         goredis.UniversalClient
}

// wireClients never fails: without Redis the engine reads straight from the store.
func wireClients(log *logger.Logger) Clients {
	log.Info("Wiring clients...")
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) == "" {
		return Clients{SnapshotCache: redis.NopSnapshotCache()}
	}
	cache, rdb, err := redis.NewSnapshotCache(log)
	if err != nil {
		log.Warn("snapshot cache disabled", "error", err)
		return Clients{SnapshotCache: redis.NopSnapshotCache()}
	}
	return Clients{SnapshotCache: cache, Redis: rdb}
}

func (c *Clients) startCollectors(ctx context.Context, a *App) {
	if c == nil || c.Redis == nil {
		return
	}
	a.Metrics.StartRedisCollector(ctx, a.Log, c.Redis, 30*time.Second)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SnapshotCache != nil {
		_ = c.SnapshotCache.Close()
	}
}
