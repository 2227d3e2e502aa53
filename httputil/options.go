// Copyright (c) 2025 BVK Chaitanya

package httputil

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// ServerCheckTimeout is the maximum time to wait for a new listener to
	// respond to the readiness check.
	ServerCheckTimeout time.Duration

	// ServerCheckRetryInterval is the delay between readiness checks.
	ServerCheckRetryInterval time.Duration

	// ReadHeaderTimeout limits the time to read request headers.
	ReadHeaderTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.ServerCheckTimeout == 0 {
		v.ServerCheckTimeout = 10 * time.Second
	}
	if v.ServerCheckRetryInterval == 0 {
		v.ServerCheckRetryInterval = time.Second
	}
	if v.ReadHeaderTimeout == 0 {
		v.ReadHeaderTimeout = 10 * time.Second
	}
}

func (v *Options) Check() error {
	if v.ServerCheckTimeout < 0 || v.ServerCheckRetryInterval < 0 || v.ReadHeaderTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
