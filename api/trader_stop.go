// Copyright (c) 2025 BVK Chaitanya

package api

const StopPath = "/trader/stop"

type StopRequest struct {
	JobID string
}

type StopResponse struct {
	State string
}
