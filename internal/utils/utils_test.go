package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitFor(t *testing.T) {
	original := after
	defer func() { after = original }()

	var waited time.Duration
	after = func(d time.Duration) <-chan time.Time {
		waited = d
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	if err := WaitFor(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if waited != 2*time.Second {
		t.Fatalf("expected to wait 2s, got %s", waited)
	}
}

func TestWaitForSkipsNonPositive(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestWaitForCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLinearBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		limit   time.Duration
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 3, want: 3 * time.Second},
		{attempt: 10, limit: 5 * time.Second, want: 5 * time.Second},
	}

	for _, tt := range tests {
		if got := LinearBackoff(tt.attempt, time.Second, tt.limit); got != tt.want {
			t.Fatalf("attempt %d: expected %s, got %s", tt.attempt, tt.want, got)
		}
	}
}
