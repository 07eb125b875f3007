package throttle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veronewra/openverse/internal/common"
)

// RedisStore keeps each window as a sorted set scored by unix nanoseconds.
// Members carry a short random suffix so simultaneous entries from
// different workers never collapse into one.
type RedisStore struct {
	rdb redis.UniversalClient
}

func NewRedisStore(rdb redis.UniversalClient) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("nil redis client")
	}
	return &RedisStore{rdb: rdb}, nil
}

func nanoScore(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func (s *RedisStore) Count(ctx context.Context, key string, since time.Time) (int, error) {
	n, err := s.rdb.ZCount(ctx, key, nanoScore(since), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("error counting window %q: %w", key, err)
	}
	return int(n), nil
}

func (s *RedisStore) Oldest(ctx context.Context, key string, since time.Time) (time.Time, bool, error) {
	entries, err := s.rdb.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min:   nanoScore(since),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("error reading window %q: %w", key, err)
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(0, int64(entries[0].Score)), true, nil
}

func (s *RedisStore) Record(ctx context.Context, key string, ts time.Time, since time.Time, ttl time.Duration) error {
	suffix, err := common.MakeRandHexString(4)
	if err != nil {
		return fmt.Errorf("error generating window member: %w", err)
	}
	member := nanoScore(ts) + "-" + suffix

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+nanoScore(since))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(ts.UnixNano()), Member: member})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("error recording into window %q: %w", key, err)
	}
	return nil
}
