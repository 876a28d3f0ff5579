// Package cache implements core.TokenBlacklist on Redis, or in memory for tests and local runs.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const revokedKeyPrefix = "shule:revoked:"

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

type redisBlacklist struct {
	rdb *redis.Client
}

var _ core.TokenBlacklist = (*redisBlacklist)(nil)

func NewRedisBlacklist(rdb *redis.Client) core.TokenBlacklist {
	return &redisBlacklist{rdb: rdb}
}

// Revoke keeps jti until the token would have expired anyway.
func (bl *redisBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := bl.rdb.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return errors.Wrap(err, "revoking token")
	}
	return nil
}

func (bl *redisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := bl.rdb.Get(ctx, revokedKeyPrefix+jti).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, errors.Wrap(err, "checking revoked token")
}
