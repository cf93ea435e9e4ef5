package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/platform/envutil"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

// SnapshotCache holds fully hydrated snapshots by id. Snapshots never change
// after creation, so entries are only ever written once and expire by TTL.
type SnapshotCache interface {
	Get(ctx context.Context, id string) (*twin.SkinSnapshot, bool, error)
	Set(ctx context.Context, snap *twin.SkinSnapshot) error
	Close() error
}

type snapshotCache struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSnapshotCache connects using REDIS_ADDR. An empty address is an error;
// callers fall back to NopSnapshotCache.
func NewSnapshotCache(log *logger.Logger) (SnapshotCache, goredis.UniversalClient, error) {
	if log == nil {
		return nil, nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(envutil.String("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", "", log),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := envutil.Duration("SNAPSHOT_CACHE_TTL", 24*time.Hour, log)
	prefix := envutil.String("REDIS_KEY_PREFIX", "skintwin", log)
	return NewSnapshotCacheWithClient(log, rdb, prefix, ttl), rdb, nil
}

func NewSnapshotCacheWithClient(log *logger.Logger, rdb goredis.UniversalClient, prefix string, ttl time.Duration) SnapshotCache {
	if strings.TrimSpace(prefix) == "" {
		prefix = "skintwin"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &snapshotCache{
		log:    log.With("service", "RedisSnapshotCache"),
		rdb:    rdb,
		prefix: strings.TrimSpace(prefix),
		ttl:    ttl,
	}
}

func (c *snapshotCache) key(id string) string {
	return c.prefix + ":snapshot:" + id
}

func (c *snapshotCache) Get(ctx context.Context, id string) (*twin.SkinSnapshot, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap twin.SkinSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A bad entry is treated as a miss and dropped.
		c.log.Warn("dropping undecodable snapshot cache entry", "snapshot_id", id, "error", err)
		_ = c.rdb.Del(ctx, c.key(id)).Err()
		return nil, false, nil
	}
	return &snap, true, nil
}

func (c *snapshotCache) Set(ctx context.Context, snap *twin.SkinSnapshot) error {
	if snap == nil {
		return nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.rdb.SetNX(ctx, c.key(snap.ID.String()), b, c.ttl).Err()
}

func (c *snapshotCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

type nopSnapshotCache struct{}

// NopSnapshotCache always misses.
func NopSnapshotCache() SnapshotCache { return nopSnapshotCache{} }

func (nopSnapshotCache) Get(context.Context, string) (*twin.SkinSnapshot, bool, error) {
	return nil, false, nil
}
func (nopSnapshotCache) Set(context.Context, *twin.SkinSnapshot) error { return nil }
func (nopSnapshotCache) Close() error                                { return nil }
