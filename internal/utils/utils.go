// Package utils holds small helpers shared by the LLM clients.
package utils

import (
	"context"
	"time"
)

var after = time.After

// WaitFor pauses for d. It returns ctx.Err() as soon as ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-after(d):
		return nil
	}
}

// LinearBackoff returns attempt*base, capped at limit when limit is positive.
func LinearBackoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * base
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
