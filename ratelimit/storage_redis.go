package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:"

// RedisStorage keeps hit timestamps in a sorted set per key, scored by the
// timestamp, so window trimming is a single range removal.
type RedisStorage struct {
	redis redis.UniversalClient
}

// NewRedisStorage creates a [Storage] backed by the given Redis client.
func NewRedisStorage(client redis.UniversalClient) *RedisStorage {
	return &RedisStorage{redis: client}
}

// Records returns all retained hit timestamps for key.
func (s *RedisStorage) Records(ctx context.Context, key string) ([]int64, error) {
	members, err := s.redis.ZRangeWithScores(ctx, redisKeyPrefix+key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	stamps := make([]int64, 0, len(members))
	for _, m := range members {
		stamps = append(stamps, int64(m.Score))
	}
	return stamps, nil
}

// Add records one hit and prunes everything that fell out of the retention
// window. Members carry a random suffix so simultaneous hits with the same
// millisecond timestamp are all counted.
func (s *RedisStorage) Add(ctx context.Context, key string, ts int64, ttl time.Duration) error {
	rkey := redisKeyPrefix + key
	cutoff := strconv.FormatInt(ts-ttl.Milliseconds(), 10)
	member := strconv.FormatInt(ts, 10) + "-" + uuid.NewString()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, rkey, "-inf", cutoff)
		pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(ts), Member: member})
		pipe.PExpire(ctx, rkey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
