// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"fmt"
	"os"
)

// NewByTypename returns a pointer to a new zero value of the named record
// type. It is used to decode database values of a known type.
func NewByTypename(typename string) (any, error) {
	var v any
	switch typename {
	case "JobRecord":
		v = new(JobRecord)
	case "TelegramState":
		v = new(TelegramState)
	case "KeyValue":
		v = new(KeyValue)
	default:
		return nil, fmt.Errorf("unsupported type name %q: %w", typename, os.ErrInvalid)
	}
	return v, nil
}
