// Copyright (c) 2025 BVK Chaitanya

package ledger

import (
	"context"
	"errors"
)

var (
	ErrTransient = errors.New("transient ledger failure")

	ErrBadSequence   = errors.New("bad sequence number")
	ErrOfferNotFound = errors.New("offer not found")

	ErrInvalidOfferID      = errors.New("InvalidOfferId")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAssetMismatch       = errors.New("asset mismatch")
	ErrInvalidOperation    = errors.New("invalid operation")

	ErrAccountNotFound     = errors.New("account not found")
	ErrMalformedCredential = errors.New("malformed credential")
)

// Class is the error handling category of a ledger error.
type Class int

const (
	// Transient errors are retried with backoff.
	Transient Class = iota + 1

	// Conflict errors are caused by stale state. They are not retried; next
	// cycle derives the operation again from a fresh snapshot.
	Conflict

	// Validation errors are reported as an operation result and never retried.
	Validation

	// Fatal errors terminate the bot.
	Fatal
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "Transient"
	case Conflict:
		return "Conflict"
	case Validation:
		return "Validation"
	case Fatal:
		return "Fatal"
	}
	return "Unknown"
}

// Classify returns the error category for an error from the ledger client or
// the order model. Unknown errors are treated as transient.
func Classify(err error) Class {
	if err == nil {
		return 0
	}
	switch {
	case errors.Is(err, ErrMalformedCredential), errors.Is(err, ErrAccountNotFound):
		return Fatal
	case errors.Is(err, ErrBadSequence), errors.Is(err, ErrOfferNotFound):
		return Conflict
	case errors.Is(err, ErrInvalidOfferID), errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrAssetMismatch), errors.Is(err, ErrInvalidOperation):
		return Validation
	case errors.Is(err, ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return Transient
	}
	return Transient
}

func IsTransient(err error) bool {
	return err != nil && Classify(err) == Transient
}

func IsFatal(err error) bool {
	return err != nil && Classify(err) == Fatal
}
