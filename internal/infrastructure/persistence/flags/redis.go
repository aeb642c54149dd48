package flags

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of redis.Cmdable the store needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore shares flags between collector instances. Keys expire after ttl
// so abandoned visitor sessions do not accumulate.
type RedisStore struct {
	client redisClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redisClient, prefix string, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (s *RedisStore) Get(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		s.logger.Warn("Flag read failed", "key", key, "error", err)
		return false
	}
	return val == "1"
}

func (s *RedisStore) Set(key string, value bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var err error
	if value {
		err = s.client.Set(ctx, s.prefix+key, "1", s.ttl).Err()
	} else {
		err = s.client.Del(ctx, s.prefix+key).Err()
	}
	if err != nil {
		s.logger.Warn("Flag write failed", "key", key, "error", err)
	}
}
