// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// MaxJournalEntries limits the number of journal entries returned in one
	// response.
	MaxJournalEntries int

	// AlertFreezeTimeout is the minimum time between two similar alerts.
	AlertFreezeTimeout time.Duration

	// WebsocketWriteTimeout bounds each websocket message write.
	WebsocketWriteTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.MaxJournalEntries == 0 {
		v.MaxJournalEntries = 1000
	}
	if v.AlertFreezeTimeout == 0 {
		v.AlertFreezeTimeout = time.Hour
	}
	if v.WebsocketWriteTimeout == 0 {
		v.WebsocketWriteTimeout = 10 * time.Second
	}
}

func (v *Options) Check() error {
	if v.MaxJournalEntries < 0 {
		return fmt.Errorf("max journal entries cannot be negative: %w", os.ErrInvalid)
	}
	if v.AlertFreezeTimeout < 0 || v.WebsocketWriteTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
