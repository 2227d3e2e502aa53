// Copyright (c) 2025 BVK Chaitanya

package api

const ListPath = "/trader/list"

type ListRequest struct {
	// All includes stopped and failed jobs.
	All bool
}

type ListResponse struct {
	Jobs []*JobStatus
}
