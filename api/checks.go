// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"os"
)

func (r *StartRequest) Check() error {
	if len(r.Secret) == 0 {
		return fmt.Errorf("secret credential is required: %w", os.ErrInvalid)
	}
	if r.Strategy == nil {
		return fmt.Errorf("strategy config is required: %w", os.ErrInvalid)
	}
	if len(r.Strategy.Selling) == 0 || len(r.Strategy.Buying) == 0 {
		return fmt.Errorf("strategy pair assets are required: %w", os.ErrInvalid)
	}
	return nil
}

func (r *StopRequest) Check() error {
	if len(r.JobID) == 0 {
		return fmt.Errorf("job id is required: %w", os.ErrInvalid)
	}
	return nil
}

func (r *StatusRequest) Check() error {
	if len(r.JobID) == 0 {
		return fmt.Errorf("job id is required: %w", os.ErrInvalid)
	}
	return nil
}

func (r *JournalRequest) Check() error {
	if len(r.JobID) == 0 {
		return fmt.Errorf("job id is required: %w", os.ErrInvalid)
	}
	if r.Limit < 0 {
		return fmt.Errorf("limit cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
