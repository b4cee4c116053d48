package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

const maxAttempts = 3

// Memory keeps one counter per key in process memory. Counters expire together
// with their window and are swept by the cache janitor.
type Memory struct {
	cache  *cache.Cache
	limit  int64
	window time.Duration
}

func NewMemory(limit int, window time.Duration) (*Memory, error) {
	const op = "ratelimit.NewMemory"

	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidConfig)
	}

	return &Memory{
		cache:  cache.New(window, 2*window),
		limit:  int64(limit),
		window: window,
	}, nil
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	const op = "ratelimit.Memory.Allow"

	// The counter may expire between Add and IncrementInt64.
	for range maxAttempts {
		now := time.Now()

		if err := m.cache.Add(key, int64(1), m.window); err == nil {
			return newResult(1, m.limit, now.Add(m.window), now), nil
		}

		count, err := m.cache.IncrementInt64(key, 1)
		if err != nil {
			continue
		}

		_, expiresAt, ok := m.cache.GetWithExpiration(key)
		if !ok {
			continue
		}

		return newResult(count, m.limit, expiresAt, now), nil
	}

	return Result{}, fmt.Errorf("%s: counter for %q kept expiring", op, key)
}
