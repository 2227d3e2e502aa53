// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"fmt"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/bot"
	"github.com/bvk/makerbot/job"
	"github.com/bvk/makerbot/journal"
	"github.com/bvk/makerbot/strategy"
)

func strategyConfig(v *api.Strategy) (*strategy.Config, error) {
	mode, err := strategy.ParseMode(v.Mode)
	if err != nil {
		return nil, err
	}
	selling, err := asset.Parse(v.Selling)
	if err != nil {
		return nil, fmt.Errorf("invalid selling asset: %w", err)
	}
	buying, err := asset.Parse(v.Buying)
	if err != nil {
		return nil, fmt.Errorf("invalid buying asset: %w", err)
	}
	cfg := &strategy.Config{
		Name:          v.Name,
		Mode:          mode,
		Pair:          strategy.Pair{Selling: selling, Buying: buying},
		Fraction:      v.Fraction,
		Spread:        v.Spread,
		Tolerance:     v.Tolerance,
		MaxVolatility: v.MaxVolatility,
		NativeReserve: v.NativeReserve,
		MinAmount:     v.MinAmount,
		CancelOnStop:  v.CancelOnStop,
	}
	return cfg, nil
}

func toAPICycle(r *bot.CycleResult) *api.Cycle {
	if r == nil {
		return nil
	}
	c := &api.Cycle{
		Cycle:      r.Cycle,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Intents:    r.Intents,
		Error:      r.Error,
	}
	for _, v := range r.Results {
		c.Operations = append(c.Operations, &api.Operation{
			Kind:       string(v.Kind),
			Selling:    v.Selling.String(),
			Buying:     v.Buying.String(),
			Amount:     v.Amount,
			Price:      v.Price.String(),
			OfferID:    v.OfferID,
			Success:    v.Success,
			ResultCode: v.ResultCode,
			Error:      v.Error,
			Attempts:   v.Attempts,
		})
	}
	return c
}

func toAPIStatus(s *job.Status) *api.JobStatus {
	return &api.JobStatus{
		JobID:     s.ID,
		Account:   s.Account,
		Strategy:  s.Strategy,
		Mode:      string(s.Mode),
		Pair:      s.Pair.String(),
		State:     string(s.State),
		Phase:     string(s.Phase),
		Cause:     s.Cause,
		Cycles:    s.Cycles,
		LastCycle: toAPICycle(s.LastCycle),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toAPIEvent(e *job.Event) *api.WatchEvent {
	return &api.WatchEvent{
		JobID:   e.JobID,
		Account: e.Account,
		State:   string(e.State),
		Phase:   string(e.Phase),
		Cause:   e.Cause,
		Cycle:   toAPICycle(e.Cycle),
		Time:    e.Time,
	}
}

func toAPIJournalEntry(e *journal.Entry) *api.JournalEntry {
	return &api.JournalEntry{
		Cycle:      e.Cycle,
		Kind:       e.Kind,
		Selling:    e.Selling,
		Buying:     e.Buying,
		Amount:     e.Amount,
		Price:      e.Price,
		OfferID:    e.OfferID,
		Success:    e.Success,
		ResultCode: e.ResultCode,
		Hash:       e.Hash,
		Error:      e.Error,
		Attempts:   e.Attempts,
		Time:       e.Time,
	}
}
