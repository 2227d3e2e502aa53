// Copyright (c) 2025 BVK Chaitanya

package bot

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// Interval is the wait between two cycles.
	Interval time.Duration

	// Tick is the granularity at which a wait checks for cancellation.
	Tick time.Duration

	// MaxRetries is the maximum number of attempts for a ledger call that
	// fails with transient errors.
	MaxRetries int

	// BaseDelay is the backoff before the second attempt. It doubles for every
	// following attempt, up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// CallTimeout bounds every ledger call.
	CallTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.Interval == 0 {
		v.Interval = 30 * time.Second
	}
	if v.Tick == 0 {
		v.Tick = time.Second
	}
	if v.Tick > v.Interval {
		v.Tick = v.Interval
	}
	if v.MaxRetries == 0 {
		v.MaxRetries = 5
	}
	if v.BaseDelay == 0 {
		v.BaseDelay = 500 * time.Millisecond
	}
	if v.MaxDelay == 0 {
		v.MaxDelay = 30 * time.Second
	}
	if v.CallTimeout == 0 {
		v.CallTimeout = 10 * time.Second
	}
}

func (v *Options) Check() error {
	if v.Interval < 0 || v.Tick < 0 || v.BaseDelay < 0 || v.MaxDelay < 0 || v.CallTimeout < 0 {
		return fmt.Errorf("durations cannot be negative: %w", os.ErrInvalid)
	}
	if v.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %w", os.ErrInvalid)
	}
	if v.MaxDelay != 0 && v.BaseDelay > v.MaxDelay {
		return fmt.Errorf("base delay %s is larger than max delay %s: %w", v.BaseDelay, v.MaxDelay, os.ErrInvalid)
	}
	return nil
}
