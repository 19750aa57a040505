package cache

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"redistrict/internal/logger"
	"redistrict/internal/metrics"
)

const keyPrefix = "snapshot:"

// 文档注释：快照正文缓存
// 背景：本地 LRU 命中最快；多实例部署时 Redis 作为共享二级缓存。
// 约束：rc 为 nil 时只用本地层；Redis 错误按未命中处理，只记录日志。
type Snapshots struct {
	local *LRU
	rc    *redis.Client
	ttl   time.Duration
}

func NewSnapshots(local *LRU, rc *redis.Client, ttl time.Duration) *Snapshots {
	return &Snapshots{local: local, rc: rc, ttl: ttl}
}

// NewSnapshotsFromEnv：SNAPSHOT_CACHE_SIZE（默认 64）与 SNAPSHOT_CACHE_TTL_SEC（默认 600）
func NewSnapshotsFromEnv(rc *redis.Client) *Snapshots {
	size := 64
	if v, err := strconv.Atoi(os.Getenv("SNAPSHOT_CACHE_SIZE")); err == nil && v > 0 {
		size = v
	}
	ttl := 600 * time.Second
	if v, err := strconv.Atoi(os.Getenv("SNAPSHOT_CACHE_TTL_SEC")); err == nil && v > 0 {
		ttl = time.Duration(v) * time.Second
	}
	return NewSnapshots(NewLRU(size, ttl), rc, ttl)
}

func (s *Snapshots) Get(ctx context.Context, id string) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	if b, ok := s.local.Get(id); ok {
		metrics.CacheHitsTotal.WithLabelValues("local").Inc()
		return b, true
	}
	if s.rc != nil {
		b, err := s.rc.Get(ctx, keyPrefix+id).Bytes()
		switch {
		case err == nil:
			s.local.Set(id, b)
			metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
			return b, true
		case !errors.Is(err, redis.Nil):
			logger.L().Warn("snapshot_cache_redis_get", "id", id, "err", err)
		}
	}
	metrics.CacheMissesTotal.Inc()
	return nil, false
}

func (s *Snapshots) Set(ctx context.Context, id string, body []byte) {
	if s == nil {
		return
	}
	s.local.Set(id, body)
	if s.rc == nil {
		return
	}
	if err := s.rc.Set(ctx, keyPrefix+id, body, s.ttl).Err(); err != nil {
		logger.L().Warn("snapshot_cache_redis_set", "id", id, "err", err)
	}
}
