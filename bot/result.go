// Copyright (c) 2025 BVK Chaitanya

package bot

import (
	"time"

	"github.com/bvk/makerbot/offer"
)

type Phase string

const (
	Evaluating Phase = "EVALUATING"
	Acting     Phase = "ACTING"
	Waiting    Phase = "WAITING"
	Stopped    Phase = "STOPPED"
	Failed     Phase = "FAILED"
)

func (p Phase) IsFinal() bool {
	return p == Stopped || p == Failed
}

// CycleResult is the outcome of one evaluate and act cycle.
type CycleResult struct {
	Cycle int

	StartedAt  time.Time
	FinishedAt time.Time

	// Intents holds the string form of the evaluator decisions in the order
	// they were returned.
	Intents []string

	// Results holds one entry per attempted intent.
	Results []*offer.Result

	// Error holds the reason if the cycle ended early.
	Error string
}

// Failures returns the number of operations that did not succeed.
func (c *CycleResult) Failures() int {
	n := 0
	for _, r := range c.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// Observer receives runner progress. Callbacks are invoked synchronously from
// the runner goroutine.
type Observer interface {
	OnPhase(phase Phase)
	OnCycle(result *CycleResult)
}
