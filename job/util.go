// Copyright (c) 2025 BVK Chaitanya

package job

import (
	"context"
	"fmt"
	"path"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/bot"
	"github.com/bvk/makerbot/gobs"
	"github.com/bvk/makerbot/kvutil"
	"github.com/bvk/makerbot/strategy"
	"github.com/bvkgo/kv"
)

const Keyspace = "/makerbot/jobs/"

func jobKey(id string) string {
	return path.Join(Keyspace, id)
}

func configToGob(cfg *strategy.Config) *gobs.StrategyConfig {
	return &gobs.StrategyConfig{
		Name:          cfg.Name,
		Mode:          string(cfg.Mode),
		Selling:       cfg.Pair.Selling.String(),
		Buying:        cfg.Pair.Buying.String(),
		Fraction:      cfg.Fraction,
		Spread:        cfg.Spread,
		Tolerance:     cfg.Tolerance,
		MaxVolatility: cfg.MaxVolatility,
		NativeReserve: cfg.NativeReserve,
		MinAmount:     cfg.MinAmount,
		CancelOnStop:  cfg.CancelOnStop,
	}
}

func configFromGob(v *gobs.StrategyConfig) (*strategy.Config, error) {
	selling, err := asset.Parse(v.Selling)
	if err != nil {
		return nil, fmt.Errorf("could not parse selling asset: %w", err)
	}
	buying, err := asset.Parse(v.Buying)
	if err != nil {
		return nil, fmt.Errorf("could not parse buying asset: %w", err)
	}
	return &strategy.Config{
		Name:          v.Name,
		Mode:          strategy.Mode(v.Mode),
		Pair:          strategy.Pair{Selling: selling, Buying: buying},
		Fraction:      v.Fraction,
		Spread:        v.Spread,
		Tolerance:     v.Tolerance,
		MaxVolatility: v.MaxVolatility,
		NativeReserve: v.NativeReserve,
		MinAmount:     v.MinAmount,
		CancelOnStop:  v.CancelOnStop,
	}, nil
}

func (j *Job) toGob() *gobs.JobRecord {
	j.mu.Lock()
	defer j.mu.Unlock()

	return &gobs.JobRecord{
		ID:        j.id,
		Account:   j.account,
		Strategy:  configToGob(j.cfg),
		State:     string(j.state),
		Phase:     string(j.phase),
		Cause:     j.cause,
		Cycles:    j.cycles,
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
}

// jobFromGob restores a job from its record. Jobs that were not final when
// the record was saved are marked as stopped because their runner is gone.
func jobFromGob(v *gobs.JobRecord) (*Job, error) {
	if v.Strategy == nil {
		return nil, fmt.Errorf("job %q has no strategy config", v.ID)
	}
	cfg, err := configFromGob(v.Strategy)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", v.ID, err)
	}
	j := &Job{
		id:        v.ID,
		account:   v.Account,
		cfg:       cfg,
		done:      make(chan struct{}),
		state:     State(v.State),
		phase:     bot.Phase(v.Phase),
		cause:     v.Cause,
		cycles:    v.Cycles,
		createdAt: v.CreatedAt,
		updatedAt: v.UpdatedAt,
	}
	if !IsFinal(j.state) {
		j.state, j.cause = STOPPED, "interrupted"
		if !j.phase.IsFinal() {
			j.phase = bot.Stopped
		}
	}
	close(j.done)
	return j, nil
}

func saveJob(ctx context.Context, db kv.Database, j *Job) error {
	j.saveMu.Lock()
	defer j.saveMu.Unlock()

	if err := kvutil.SetDB(ctx, db, jobKey(j.id), j.toGob()); err != nil {
		return fmt.Errorf("could not save job %q: %w", j.id, err)
	}
	return nil
}

func loadJobs(ctx context.Context, db kv.Database) ([]*Job, error) {
	var jobs []*Job
	load := func(key string, v *gobs.JobRecord) error {
		j, err := jobFromGob(v)
		if err != nil {
			return fmt.Errorf("could not restore job at key %q: %w", key, err)
		}
		jobs = append(jobs, j)
		return nil
	}
	if err := kvutil.ScanDB(ctx, db, Keyspace, load); err != nil {
		return nil, err
	}
	return jobs, nil
}
