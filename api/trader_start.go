// Copyright (c) 2025 BVK Chaitanya

package api

const StartPath = "/trader/start"

type StartRequest struct {
	// Secret is the signing credential of the trading account.
	Secret string

	Strategy *Strategy
}

type StartResponse struct {
	JobID   string
	Account string
	State   string
}
