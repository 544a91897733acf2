package storage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// connectionTimeout bounds the startup ping
const connectionTimeout = 5 * time.Second

// RedisClient is the subset of *redis.Client used by RedisTracker
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s failed: %w", utils.ErrDatabase, cfg.Addr, err)
	}
	return client, nil
}

// RedisTracker claims URLs with SETNX under a per-session key namespace.
// Sessions sharing one Redis server never see each other's keys.
type RedisTracker struct {
	client    RedisClient
	keyPrefix string
	ttl       time.Duration
	capacity  int64 // 0 = unbounded
	count     atomic.Int64
	log       *logrus.Entry
}

// NewRedisTracker creates a tracker whose keys live under "<prefix>:<sessionID>:"
func NewRedisTracker(client RedisClient, prefix, sessionID string, ttl time.Duration, capacity int, logger *logrus.Entry) *RedisTracker {
	return &RedisTracker{
		client:    client,
		keyPrefix: prefix + ":" + sessionID + ":",
		ttl:       ttl,
		capacity:  int64(capacity),
		log:       logger,
	}
}

func (r *RedisTracker) key(url string) string {
	return r.keyPrefix + utils.HashURL(url)
}

// TryMarkVisited implements VisitedTracker
func (r *RedisTracker) TryMarkVisited(ctx context.Context, url string) (bool, error) {
	// Reserve a slot first so concurrent claims cannot overshoot the cap
	if n := r.count.Add(1); r.capacity > 0 && n > r.capacity {
		r.count.Add(-1)
		visited, err := r.IsVisited(ctx, url)
		if err != nil {
			return false, err
		}
		if visited {
			return false, nil
		}
		r.log.Debugf("Visited limit %d reached, refusing %s", r.capacity, url)
		return false, utils.ErrVisitedLimit
	}

	added, err := r.client.SetNX(ctx, r.key(url), 1, r.ttl).Result()
	if err != nil {
		r.count.Add(-1)
		return false, fmt.Errorf("%w: redis SETNX for %s: %w", utils.ErrDatabase, url, err)
	}
	if !added {
		r.count.Add(-1)
	}
	return added, nil
}

// IsVisited implements VisitedTracker
func (r *RedisTracker) IsVisited(ctx context.Context, url string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(url)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: redis EXISTS for %s: %w", utils.ErrDatabase, url, err)
	}
	return n == 1, nil
}

// Count implements VisitedTracker
func (r *RedisTracker) Count() int64 {
	return r.count.Load()
}
