// Copyright (c) 2025 BVK Chaitanya

package api

import "time"

// WatchPath is a websocket endpoint streaming WatchEvent messages. Optional
// "job" query parameter limits the stream to one job.
const WatchPath = "/trader/watch"

type WatchEvent struct {
	JobID   string
	Account string

	State string
	Phase string
	Cause string

	Cycle *Cycle

	Time time.Time
}
