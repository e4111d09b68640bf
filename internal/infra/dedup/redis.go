package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisDeduper claims idempotency keys with SETNX so a reminder slot is
// handed off at most once across overlapping or repeated runs.
type RedisDeduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// RedisOptions holds connection settings for NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration, logger *logrus.Entry) *RedisDeduper {
	return &RedisDeduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.WithField("component", "deduper"),
	}
}

// AcquireOnce returns true the first time key is seen within the TTL.
// When Redis is unreachable it returns true: a possible duplicate is
// preferred over a missed reminder.
func (d *RedisDeduper) AcquireOnce(ctx context.Context, key string) bool {
	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.WithError(err).WithField("key", key).Warn("Redis dedup check failed, allowing delivery")
		return true
	}
	if !ok {
		d.logger.WithField("key", key).Debug("Duplicate reminder slot")
	}
	return ok
}
