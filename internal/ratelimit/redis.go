package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// KEYS[1] counter, ARGV[1] window in milliseconds. Returns {count, ttl in ms}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Redis shares counters between instances through a single Redis server.
type Redis struct {
	client redis.Scripter
	limit  int64
	window time.Duration
}

func NewRedis(client redis.Scripter, limit int, window time.Duration) (*Redis, error) {
	const op = "ratelimit.NewRedis"

	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidConfig)
	}

	return &Redis{
		client: client,
		limit:  int64(limit),
		window: window,
	}, nil
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	const op = "ratelimit.Redis.Allow"

	now := time.Now()

	vals, err := fixedWindowScript.Run(ctx, r.client, []string{keyPrefix + key}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("%s: failed to run script: %w", op, err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("%s: unexpected script reply %v", op, vals)
	}

	resetAt := now.Add(time.Duration(vals[1]) * time.Millisecond)
	return newResult(vals[0], r.limit, resetAt, now), nil
}
