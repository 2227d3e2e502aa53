// Copyright (c) 2025 BVK Chaitanya

// Package job implements the registry of trading jobs. A trading job runs one
// bot for one account until it is stopped or fails. At most one job can be
// active for an account at any time.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/bvk/makerbot/bot"
	"github.com/bvk/makerbot/strategy"
)

type State string

const (
	PENDING  State = "PENDING"
	RUNNING  State = "RUNNING"
	STOPPING State = "STOPPING"
	STOPPED  State = "STOPPED"
	FAILED   State = "FAILED"
)

// IsFinal returns true for states that never change again.
func IsFinal(s State) bool {
	return s == STOPPED || s == FAILED
}

// IsActive returns true for states that hold the account's job slot.
func IsActive(s State) bool {
	return s == PENDING || s == RUNNING || s == STOPPING
}

var (
	ErrAlreadyRunning = errors.New("AlreadyRunning")
	ErrNotFound       = errors.New("NotFound")

	errStopped = errors.New("job is stopped")
)

// Status is a consistent snapshot of a job.
type Status struct {
	ID      string
	Account string

	Strategy string
	Mode     strategy.Mode
	Pair     strategy.Pair

	State State
	Phase bot.Phase

	// Cause holds the failure reason for FAILED jobs and the stop reason for
	// STOPPED jobs.
	Cause string

	Cycles    int
	LastCycle *bot.CycleResult

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Job struct {
	id      string
	account string
	cfg     *strategy.Config

	// publish is invoked with every status change.
	publish func(*Event)

	cancel func(error)

	// pendingStop holds the cause of a stop request received before the
	// job has started.
	pendingStop error

	done chan struct{}

	// saveMu serializes database updates for the job.
	saveMu sync.Mutex

	mu sync.Mutex

	state State
	phase bot.Phase
	cause string

	cycles int
	last   *bot.CycleResult

	createdAt time.Time
	updatedAt time.Time
}

var _ bot.Observer = (*Job)(nil)

func newJob(id, account string, cfg *strategy.Config, publish func(*Event)) *Job {
	now := time.Now()
	return &Job{
		id:        id,
		account:   account,
		cfg:       cfg,
		publish:   publish,
		done:      make(chan struct{}),
		state:     PENDING,
		phase:     bot.Evaluating,
		createdAt: now,
		updatedAt: now,
	}
}

func (j *Job) ID() string {
	return j.id
}

func (j *Job) Account() string {
	return j.account
}

// Done returns a channel that is closed when the job reaches a final state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) Status() *Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.statusLocked()
}

func (j *Job) statusLocked() *Status {
	return &Status{
		ID:        j.id,
		Account:   j.account,
		Strategy:  j.cfg.Name,
		Mode:      j.cfg.Mode,
		Pair:      j.cfg.Pair,
		State:     j.state,
		Phase:     j.phase,
		Cause:     j.cause,
		Cycles:    j.cycles,
		LastCycle: j.last,
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
}

func (j *Job) notify(event *Event) {
	if j.publish != nil {
		j.publish(event)
	}
}

// setState moves the job to a new state. Final states cannot be changed.
func (j *Job) setState(s State, cause string) bool {
	j.mu.Lock()
	if IsFinal(j.state) {
		j.mu.Unlock()
		return false
	}
	j.state, j.cause, j.updatedAt = s, cause, time.Now()
	event := j.eventLocked(nil)
	j.mu.Unlock()

	j.notify(event)
	return true
}

// stop raises the cancellation signal for a running job. A stop request for
// a PENDING job is recorded and raised when the job starts. Returns false if
// the job is neither pending nor running.
func (j *Job) stop(cause error) bool {
	j.mu.Lock()
	if j.state == PENDING {
		if j.pendingStop == nil {
			j.pendingStop = cause
		}
		j.mu.Unlock()
		return true
	}
	if j.state != RUNNING || j.cancel == nil {
		j.mu.Unlock()
		return false
	}
	j.state, j.updatedAt = STOPPING, time.Now()
	cancel := j.cancel
	event := j.eventLocked(nil)
	j.mu.Unlock()

	cancel(cause)
	j.notify(event)
	return true
}

// start moves a PENDING job to RUNNING. Job moves to STOPPING instead when a
// stop was requested while it was pending.
func (j *Job) start(cancel func(error)) {
	j.mu.Lock()
	j.cancel = cancel
	cause := j.pendingStop
	if cause == nil {
		j.state = RUNNING
	} else {
		j.state = STOPPING
	}
	j.updatedAt = time.Now()
	event := j.eventLocked(nil)
	j.mu.Unlock()

	if cause != nil {
		cancel(cause)
	}
	j.notify(event)
}

func (j *Job) OnPhase(p bot.Phase) {
	j.mu.Lock()
	j.phase, j.updatedAt = p, time.Now()
	event := j.eventLocked(nil)
	j.mu.Unlock()

	j.notify(event)
}

func (j *Job) OnCycle(r *bot.CycleResult) {
	j.mu.Lock()
	j.cycles++
	j.last, j.updatedAt = r, time.Now()
	event := j.eventLocked(r)
	j.mu.Unlock()

	j.notify(event)
}

func (j *Job) eventLocked(r *bot.CycleResult) *Event {
	return &Event{
		JobID:   j.id,
		Account: j.account,
		State:   j.state,
		Phase:   j.phase,
		Cause:   j.cause,
		Cycle:   r,
		Time:    j.updatedAt,
	}
}
