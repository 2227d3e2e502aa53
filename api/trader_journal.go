// Copyright (c) 2025 BVK Chaitanya

package api

import "time"

const JournalPath = "/trader/journal"

type JournalRequest struct {
	JobID string

	// Limit is the max number of most recent entries. Zero returns all.
	Limit int
}

type JournalEntry struct {
	Cycle int

	Kind    string
	Selling string
	Buying  string
	Amount  string
	Price   string
	OfferID int64

	Success    bool
	ResultCode string
	Hash       string
	Error      string
	Attempts   int

	Time time.Time
}

type JournalResponse struct {
	Entries []*JournalEntry
}
