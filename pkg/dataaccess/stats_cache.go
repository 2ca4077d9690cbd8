package dataaccess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
)

const statsCacheName = "stats_cache"

// statsCacheTTL bounds how stale a served snapshot can be.
const statsCacheTTL = 30 * time.Second

// ErrCacheMiss is returned when no snapshot is cached for the guild.
var ErrCacheMiss = errors.New("cache miss")

// StatsCache caches guild stats snapshots for display. The cache is an
// optimisation only; a miss or failure falls back to the ticket store.
type StatsCache interface {
	// Get returns the cached snapshot, or ErrCacheMiss.
	Get(ctx context.Context, guildID string) (*entities.GuildStats, error)

	// Set stores a snapshot with the cache TTL.
	Set(ctx context.Context, guildID string, stats *entities.GuildStats) error

	// Invalidate drops the cached snapshot after a lifecycle transition.
	Invalidate(ctx context.Context, guildID string) error
}

type redisStatsCache struct {
	// l is the logger.
	l *slog.Logger

	// client is the Redis connection.
	client *redis.Client
}

// NewStatsCache creates a Redis-backed stats cache. A nil Redis client yields
// a cache that always misses, so the bot runs without Redis configured.
func NewStatsCache(logger *slog.Logger) StatsCache {
	l := logger.With(slog.String(logging.KeyDal, statsCacheName))

	if Redis == nil {
		l.Warn("Redis is nil, stats snapshots will not be cached")
		return noopStatsCache{}
	}

	return &redisStatsCache{
		l:      l,
		client: Redis,
	}
}

func statsKey(guildID string) string {
	return "warden:stats:" + guildID
}

func (c *redisStatsCache) Get(ctx context.Context, guildID string) (*entities.GuildStats, error) {
	raw, err := c.client.Get(ctx, statsKey(guildID)).Bytes()
	if errors.Is(err, redis.Nil) {
		monitoring.RedisCacheMisses.WithLabelValues(statsCacheName).Inc()
		return nil, ErrCacheMiss
	} else if err != nil {
		return nil, fmt.Errorf("error reading stats cache: %w", err)
	}

	stats := new(entities.GuildStats)
	if err := json.Unmarshal(raw, stats); err != nil {
		return nil, fmt.Errorf("error decoding cached stats: %w", err)
	}

	monitoring.RedisCacheHits.WithLabelValues(statsCacheName).Inc()
	return stats, nil
}

func (c *redisStatsCache) Set(ctx context.Context, guildID string, stats *entities.GuildStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("error encoding stats: %w", err)
	}

	if err := c.client.Set(ctx, statsKey(guildID), raw, statsCacheTTL).Err(); err != nil {
		return fmt.Errorf("error writing stats cache: %w", err)
	}
	return nil
}

func (c *redisStatsCache) Invalidate(ctx context.Context, guildID string) error {
	if err := c.client.Del(ctx, statsKey(guildID)).Err(); err != nil {
		return fmt.Errorf("error invalidating stats cache: %w", err)
	}
	return nil
}

// noopStatsCache is used when Redis is not configured.
type noopStatsCache struct{}

func (noopStatsCache) Get(context.Context, string) (*entities.GuildStats, error) {
	return nil, ErrCacheMiss
}

func (noopStatsCache) Set(context.Context, string, *entities.GuildStats) error { return nil }

func (noopStatsCache) Invalidate(context.Context, string) error { return nil }
