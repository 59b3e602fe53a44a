package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisKeyPrefix namespaces stored collections.
const RedisKeyPrefix = "deckterra:output:"

// RedisSink stores each collection as pretty-printed JSON under
// deckterra:output:<name>.
type RedisSink struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

var _ Sink = (*RedisSink)(nil)

// NewRedisSink creates a Redis sink. A zero ttl keeps collections forever.
func NewRedisSink(redisClient redis.UniversalClient, ttl time.Duration) *RedisSink {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisSink{redis: redisClient, ttl: ttl}
}

// Key returns the Redis key a collection name is stored under.
func (s *RedisSink) Key(name string) string {
	return RedisKeyPrefix + name
}

// Put replaces the stored collection.
func (s *RedisSink) Put(ctx context.Context, name string, v any) error {
	data, err := marshalPretty(v)
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}

	if err := s.redis.Set(ctx, s.Key(name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}

	log.Info().Str("key", s.Key(name)).Int("bytes", len(data)).Msg("Saved collection")
	return nil
}
