// Package ratelimit implements fixed-window request limiting keyed by client.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("limit and window must be positive")

// Result describes the state of a client's window after a call to Allow.
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func newResult(count, limit int64, resetAt, now time.Time) Result {
	res := Result{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}

	if !res.Allowed {
		res.RetryAfter = max(resetAt.Sub(now), 0)
	}

	return res
}
