// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Error is the response body for unsuccessful requests.
type Error struct {
	// Code holds the error kind, like AlreadyRunning or NotFound.
	Code string

	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

type Strategy struct {
	Name string
	Mode string

	// Selling and Buying assets in "native" or "CODE:ISSUER" form.
	Selling string
	Buying  string

	Fraction      decimal.Decimal
	Spread        decimal.Decimal
	Tolerance     decimal.Decimal
	MaxVolatility decimal.Decimal
	NativeReserve decimal.Decimal
	MinAmount     decimal.Decimal

	CancelOnStop bool
}

type Operation struct {
	Kind    string
	Selling string
	Buying  string
	Amount  decimal.Decimal
	Price   string
	OfferID int64

	Success    bool
	ResultCode string
	Error      string
	Attempts   int
}

type Cycle struct {
	Cycle int

	StartedAt  time.Time
	FinishedAt time.Time

	Intents    []string
	Operations []*Operation

	Error string
}

type JobStatus struct {
	JobID   string
	Account string

	Strategy string
	Mode     string
	Pair     string

	State string
	Phase string
	Cause string

	Cycles    int
	LastCycle *Cycle

	CreatedAt time.Time
	UpdatedAt time.Time
}
