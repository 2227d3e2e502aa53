// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestSleepTicks(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel(os.ErrClosed)
	}()

	start := time.Now()
	if err := SleepTicks(ctx, time.Hour, 10*time.Millisecond); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("wanted ErrClosed cause, got %v", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Fatalf("wanted early return on cancel, took %s", d)
	}

	if err := SleepTicks(context.Background(), 30*time.Millisecond, 5*time.Millisecond); err != nil {
		t.Fatalf("wanted nil after full sleep, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	base, max := 100*time.Millisecond, time.Second
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, w := range want {
		if got := Backoff(i+1, base, max); got != w {
			t.Fatalf("attempt %d: wanted %s, got %s", i+1, w, got)
		}
	}
}
