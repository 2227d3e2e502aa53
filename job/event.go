// Copyright (c) 2025 BVK Chaitanya

package job

import (
	"time"

	"github.com/bvk/makerbot/bot"
)

// Event is published for every job state change, runner phase change and
// completed cycle.
type Event struct {
	JobID   string
	Account string

	State State
	Phase bot.Phase
	Cause string

	// Cycle is non-nil when the event reports a completed cycle.
	Cycle *bot.CycleResult

	Time time.Time
}
