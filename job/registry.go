// Copyright (c) 2025 BVK Chaitanya

package job

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/bvk/makerbot/bot"
	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/strategy"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
	"github.com/visvasity/topic"
)

var errRegistryClosed = fmt.Errorf("job registry is closed: %w", os.ErrClosed)

// Registry owns all trading jobs of the process.
type Registry struct {
	client ledger.Client

	db kv.Database

	opts Options

	closeCtx   context.Context
	closeCause context.CancelCauseFunc

	wg sync.WaitGroup

	events *topic.Topic[*Event]

	mu sync.Mutex

	closed bool

	eventsClosed bool

	// jobMap holds all known jobs, including the final jobs restored from the
	// database.
	jobMap map[string]*Job

	// accountMap holds the active (PENDING, RUNNING or STOPPING) job for an
	// account.
	accountMap map[string]*Job
}

func New(client ledger.Client, db kv.Database, opts *Options) (*Registry, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	ctx, cause := context.WithCancelCause(context.Background())
	r := &Registry{
		client:     client,
		db:         db,
		opts:       *opts,
		closeCtx:   ctx,
		closeCause: cause,
		events:     topic.New[*Event](),
		jobMap:     make(map[string]*Job),
		accountMap: make(map[string]*Job),
	}
	return r, nil
}

// Close stops all active jobs and waits for their runners to exit. Stopped
// jobs keep their offers unless their strategy asks otherwise.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.closeCause(errRegistryClosed)
	r.wg.Wait()

	r.mu.Lock()
	r.eventsClosed = true
	r.mu.Unlock()

	r.events.Close()
	return nil
}

// Events returns the topic where job events are published.
func (r *Registry) Events() *topic.Topic[*Event] {
	return r.events
}

// Subscribe returns a receiver for the job events published after the call.
func (r *Registry) Subscribe() (*topic.Receiver[*Event], error) {
	return topic.Subscribe(r.events, r.opts.EventLimit, false)
}

func (r *Registry) publish(e *Event) {
	r.mu.Lock()
	closed := r.eventsClosed
	r.mu.Unlock()

	if !closed {
		r.events.Send(e)
	}
}

// Load restores job records from the database. Restored jobs are always in a
// final state; jobs that were active when the previous process exited are
// marked STOPPED and can be started again.
func (r *Registry) Load(ctx context.Context) error {
	jobs, err := loadJobs(ctx, r.db)
	if err != nil {
		return fmt.Errorf("could not load jobs: %w", err)
	}

	var fixes []*Job

	r.mu.Lock()
	for _, j := range jobs {
		if _, ok := r.jobMap[j.id]; ok {
			continue
		}
		j.publish = r.publish
		r.jobMap[j.id] = j
		if j.cause == "interrupted" {
			fixes = append(fixes, j)
		}
	}
	r.mu.Unlock()

	for _, j := range fixes {
		if err := saveJob(ctx, r.db, j); err != nil {
			slog.WarnContext(ctx, "could not save interrupted job state (ignored)", "job", j.id, "err", err)
		}
	}
	slog.InfoContext(ctx, "restored trading jobs from the database", "jobs", len(jobs), "interrupted", len(fixes))
	return nil
}

// Start creates a new trading job for the account of the secret credential
// and starts its bot. Returns ErrAlreadyRunning if the account already has
// an active job.
func (r *Registry) Start(ctx context.Context, secret string, cfg *strategy.Config) (*Job, error) {
	signer, err := r.client.NewSigner(secret)
	if err != nil {
		return nil, err
	}
	account := signer.Account()

	cfg = cfg.Clone()
	eval, err := strategy.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create strategy evaluator: %w", err)
	}

	j := newJob(uuid.NewString(), account, cfg, r.publish)
	runner, err := bot.New(r.client, signer, cfg, eval, j, &r.opts.Bot)
	if err != nil {
		return nil, err
	}

	if err := r.reserve(j); err != nil {
		return nil, err
	}

	if err := runner.CheckAccount(ctx); err != nil {
		if ledger.IsFatal(err) {
			r.release(j)
			return nil, err
		}
		slog.WarnContext(ctx, "could not verify the account (ignored)", "account", account, "err", err)
	}

	jctx, jcancel := context.WithCancelCause(r.closeCtx)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		jcancel(errRegistryClosed)
		r.release(j)
		return nil, errRegistryClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	j.start(jcancel)
	if err := saveJob(ctx, r.db, j); err != nil {
		slog.WarnContext(ctx, "could not save new job (ignored)", "job", j.id, "err", err)
	}

	go r.goRun(jctx, j, runner)

	slog.InfoContext(ctx, "started trading job", "job", j.id, "account", account,
		"strategy", cfg.Name, "mode", cfg.Mode, "pair", cfg.Pair)
	return j, nil
}

// reserve adds a PENDING job if the account has no active job.
func (r *Registry) reserve(j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errRegistryClosed
	}
	if old, ok := r.accountMap[j.account]; ok {
		return fmt.Errorf("account %s has an active job %s: %w", j.account, old.id, ErrAlreadyRunning)
	}
	r.accountMap[j.account] = j
	r.jobMap[j.id] = j
	return nil
}

// release removes a job that never started.
func (r *Registry) release(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accountMap[j.account] == j {
		delete(r.accountMap, j.account)
	}
	delete(r.jobMap, j.id)
}

func (r *Registry) goRun(ctx context.Context, j *Job, runner *bot.Runner) {
	defer r.wg.Done()
	defer close(j.done)

	err := runner.Run(ctx)

	state, cause := STOPPED, ""
	if runner.Phase() == bot.Failed {
		state = FAILED
	}
	if err != nil {
		cause = err.Error()
	}
	j.setState(state, cause)

	r.mu.Lock()
	if r.accountMap[j.account] == j {
		delete(r.accountMap, j.account)
	}
	r.mu.Unlock()

	// Final state must reach the database even when the job is stopped by
	// registry close.
	if err := saveJob(context.WithoutCancel(ctx), r.db, j); err != nil {
		slog.Error("could not save final job state", "job", j.id, "state", state, "err", err)
	}
	if state == FAILED {
		slog.Error("trading job has failed", "job", j.id, "account", j.account, "err", err)
	} else {
		slog.Info("trading job is stopped", "job", j.id, "account", j.account, "cause", cause)
	}
}

func (r *Registry) get(id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobMap[id]
	if !ok {
		return nil, fmt.Errorf("job %q: %w", id, ErrNotFound)
	}
	return j, nil
}

// Stop raises the cancellation signal for a running job and returns without
// waiting for the bot to exit. Stop on a PENDING job takes effect as soon as
// the job starts. Returns ErrNotFound if the job is unknown, stopping or
// final.
func (r *Registry) Stop(ctx context.Context, id string) error {
	j, err := r.get(id)
	if err != nil {
		return err
	}
	if !j.stop(errStopped) {
		return fmt.Errorf("job %q is %s: %w", id, j.State(), ErrNotFound)
	}
	if j.State() == PENDING {
		slog.InfoContext(ctx, "job will be stopped after it starts", "job", id, "account", j.account)
		return nil
	}
	if err := saveJob(ctx, r.db, j); err != nil {
		slog.WarnContext(ctx, "could not save stopping job state (ignored)", "job", id, "err", err)
	}
	slog.InfoContext(ctx, "stopping trading job", "job", id, "account", j.account)
	return nil
}

// Status returns a snapshot of the job.
func (r *Registry) Status(ctx context.Context, id string) (*Status, error) {
	j, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return j.Status(), nil
}

// List returns snapshots of all jobs ordered by their creation time.
func (r *Registry) List(ctx context.Context) ([]*Status, error) {
	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.jobMap))
	for _, j := range r.jobMap {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()

	statuses := make([]*Status, 0, len(jobs))
	for _, j := range jobs {
		statuses = append(statuses, j.Status())
	}
	slices.SortFunc(statuses, func(a, b *Status) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return statuses, nil
}

// Wait blocks till the job reaches a final state or the context is canceled.
func (r *Registry) Wait(ctx context.Context, id string) (*Status, error) {
	j, err := r.get(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case <-j.done:
		return j.Status(), nil
	}
}
