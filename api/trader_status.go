// Copyright (c) 2025 BVK Chaitanya

package api

const StatusPath = "/trader/status"

type StatusRequest struct {
	JobID string
}

type StatusResponse struct {
	Status *JobStatus
}
