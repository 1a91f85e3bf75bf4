package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"briefcast/internal/types"
)

// RedisStore backs the fetch cache with Redis, letting several generator
// hosts share one cache. Staleness maps to the key TTL.
type RedisStore struct {
	client    *redis.Client
	staleness time.Duration
}

func NewRedisStore(addr string, staleness time.Duration) *RedisStore {
	if staleness == 0 {
		staleness = time.Hour
	}
	return &RedisStore{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		staleness: staleness,
	}
}

func (s *RedisStore) key(fingerprint string) string {
	return "briefcast:newsletters:" + fingerprint
}

func (s *RedisStore) Get(ctx context.Context, fingerprint string) ([]types.Newsletter, bool) {
	data, err := s.client.Get(ctx, s.key(fingerprint)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Redis cache read failed, treating as miss", "fingerprint", fingerprint, "error", err)
		}
		return nil, false
	}

	var items []types.Newsletter
	if err := json.Unmarshal(data, &items); err != nil {
		slog.Warn("Corrupt redis cache entry, treating as miss", "fingerprint", fingerprint, "error", err)
		return nil, false
	}

	slog.Info("Using cached newsletters", "fingerprint", fingerprint, "count", len(items))
	return items, true
}

func (s *RedisStore) Put(ctx context.Context, fingerprint string, items []types.Newsletter) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(fingerprint), data, s.staleness).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
