// Copyright (c) 2025 BVK Chaitanya

// Package bot implements the per-account trading loop. A Runner repeats
// evaluate, act and wait cycles until it is canceled or hits an
// unrecoverable error.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bvk/makerbot/ctxutil"
	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/offer"
	"github.com/bvk/makerbot/strategy"
)

// ErrTransientExhausted is the failure cause when a ledger call keeps failing
// with transient errors after all retry attempts.
var ErrTransientExhausted = errors.New("TransientExhausted")

type Runner struct {
	client  ledger.Client
	manager *offer.Manager

	cfg  *strategy.Config
	eval strategy.Evaluator

	observer Observer

	opts Options

	mu    sync.Mutex
	phase Phase
}

// New creates a runner for the account of the signer. Observer can be nil.
func New(client ledger.Client, signer ledger.Signer, cfg *strategy.Config, eval strategy.Evaluator, observer Observer, opts *Options) (*Runner, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.setDefaults()
	if err := o.Check(); err != nil {
		return nil, err
	}
	client = ledger.WithTimeout(client, o.CallTimeout)
	r := &Runner{
		client:   client,
		manager:  offer.NewManager(client, signer),
		cfg:      cfg.Clone(),
		eval:     eval,
		observer: observer,
		opts:     o,
		phase:    Evaluating,
	}
	return r, nil
}

func (r *Runner) Account() string {
	return r.manager.Account()
}

// CheckAccount loads the account once to verify that it exists. Errors are
// returned without retries.
func (r *Runner) CheckAccount(ctx context.Context) error {
	if _, err := r.client.LoadAccount(ctx, r.Account()); err != nil {
		return fmt.Errorf("could not load account %s: %w", r.Account(), err)
	}
	return nil
}

// Phase returns the current state of the runner.
func (r *Runner) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Runner) setPhase(p Phase) {
	r.mu.Lock()
	changed := r.phase != p
	r.phase = p
	r.mu.Unlock()

	if changed && r.observer != nil {
		r.observer.OnPhase(p)
	}
}

// Run executes cycles until the context is canceled or the runner fails.
// Returns the context's cancellation cause when the runner is stopped, and
// the failure reason otherwise. Phase reports which of the two happened.
func (r *Runner) Run(ctx context.Context) error {
	for cycle := 1; ; cycle++ {
		if cause := context.Cause(ctx); cause != nil {
			return r.stop(ctx, cause)
		}

		result, err := r.RunCycle(ctx, cycle)
		if r.observer != nil && result != nil {
			r.observer.OnCycle(result)
		}
		if err != nil {
			if cause := context.Cause(ctx); cause != nil && !isFailure(err) {
				return r.stop(ctx, cause)
			}
			slog.ErrorContext(ctx, "bot has failed", "account", r.Account(), "cycle", cycle, "err", err)
			r.setPhase(Failed)
			return err
		}

		r.setPhase(Waiting)
		if err := ctxutil.SleepTicks(ctx, r.opts.Interval, r.opts.Tick); err != nil {
			return r.stop(ctx, err)
		}
	}
}

func isFailure(err error) bool {
	return errors.Is(err, ErrTransientExhausted) || ledger.IsFatal(err)
}

func (r *Runner) stop(ctx context.Context, cause error) error {
	if r.cfg.CancelOnStop {
		r.cancelOffers(context.WithoutCancel(ctx))
	}
	slog.InfoContext(ctx, "bot is stopped", "account", r.Account(), "cause", cause)
	r.setPhase(Stopped)
	return cause
}

// cancelOffers deletes the open offers on the strategy's side. Failures are
// logged and ignored.
func (r *Runner) cancelOffers(ctx context.Context) {
	offers, err := r.client.GetOpenOffers(ctx, r.Account())
	if err != nil {
		slog.WarnContext(ctx, "could not load open offers to cancel on stop (ignored)", "account", r.Account(), "err", err)
		return
	}
	for _, o := range strategy.SideOffers(&strategy.Snapshot{Offers: offers}, r.cfg) {
		if _, err := r.manager.Cancel(ctx, offers, o.ID, "bot is stopped"); err != nil {
			slog.WarnContext(ctx, "could not cancel offer on stop (ignored)", "account", r.Account(), "offer", o.ID, "err", err)
		}
	}
}

// RunCycle runs one evaluate and act pass. Returned error is non-nil only
// when the cycle could not complete: on cancellation, on transient retry
// exhaustion or on a fatal error. Per-operation failures are reported in the
// result.
func (r *Runner) RunCycle(ctx context.Context, cycle int) (result *CycleResult, status error) {
	result = &CycleResult{
		Cycle:     cycle,
		StartedAt: time.Now(),
	}
	defer func() {
		result.FinishedAt = time.Now()
		if status != nil {
			result.Error = status.Error()
		}
	}()

	r.setPhase(Evaluating)
	snap, err := r.snapshot(ctx)
	if err != nil {
		return result, err
	}

	r.setPhase(Acting)
	intents, err := r.eval.Evaluate(ctx, snap)
	if err != nil {
		// Evaluator failures skip the cycle's operations; the next cycle
		// evaluates a fresh snapshot.
		slog.WarnContext(ctx, "strategy evaluation has failed", "account", r.Account(), "cycle", cycle, "err", err)
		result.Error = err.Error()
		return result, nil
	}
	for _, in := range intents {
		result.Intents = append(result.Intents, in.String())
	}

	for _, in := range intents {
		if cause := context.Cause(ctx); cause != nil {
			return result, cause
		}
		res, err := r.apply(ctx, snap.Offers, in)
		result.Results = append(result.Results, res)
		if err == nil {
			continue
		}
		if isFailure(err) || context.Cause(ctx) != nil {
			return result, err
		}
		slog.WarnContext(ctx, "offer operation has failed", "account", r.Account(), "cycle", cycle,
			"intent", in, "class", ledger.Classify(err), "err", err)
	}
	return result, nil
}

// apply submits an intent. In-flight submissions are not interrupted by
// cancellation, but retries stop once the context is canceled.
//
// A create that failed with a transient error may still have reached the
// ledger, so open offers are re-read before every retry of a create.
func (r *Runner) apply(ctx context.Context, offers []*ledger.Offer, in *offer.Intent) (*offer.Result, error) {
	sctx := context.WithoutCancel(ctx)

	var res *offer.Result
	retrying := false
	attempts, err := r.retry(ctx, "submit "+string(in.Kind()), func() (err error) {
		if retrying && in.Kind() == offer.Create {
			landed, err := r.findCreated(sctx, offers, in)
			if err != nil {
				return err
			}
			if landed != nil {
				slog.WarnContext(ctx, "offer create has reached the ledger before the retry", "account", r.Account(),
					"offer", landed.ID, "intent", in)
				res = createdResult(in, landed)
				return nil
			}
		}
		retrying = true
		res, err = r.manager.Apply(sctx, offers, in)
		return err
	})
	if res == nil {
		res = &offer.Result{
			Kind:    in.Kind(),
			Selling: in.Selling,
			Buying:  in.Buying,
			Amount:  in.Amount,
			Price:   in.Price,
			OfferID: in.OfferID,
			Reason:  in.Reason,
			Time:    time.Now(),
		}
	}
	res.Attempts = attempts
	if err != nil {
		res.Success = false
		res.Error = err.Error()
	}
	return res, err
}

// findCreated returns an open offer that matches the create intent and was
// not open when the intent was evaluated.
func (r *Runner) findCreated(ctx context.Context, before []*ledger.Offer, in *offer.Intent) (*ledger.Offer, error) {
	open, err := r.client.GetOpenOffers(ctx, r.Account())
	if err != nil {
		return nil, err
	}
	known := make(map[int64]bool, len(before))
	for _, o := range before {
		known[o.ID] = true
	}
	for _, o := range open {
		if known[o.ID] || !o.Selling.Equal(in.Selling) || !o.Buying.Equal(in.Buying) {
			continue
		}
		if o.Price.Cmp(in.Price) != 0 || o.Amount.GreaterThan(in.Amount.Truncate(offer.Precision)) {
			continue
		}
		return o, nil
	}
	return nil, nil
}

func createdResult(in *offer.Intent, o *ledger.Offer) *offer.Result {
	return &offer.Result{
		Kind:       offer.Create,
		Selling:    o.Selling,
		Buying:     o.Buying,
		Amount:     in.Amount.Truncate(offer.Precision),
		Price:      o.Price,
		OfferID:    o.ID,
		Success:    true,
		ResultCode: "op_success",
		Reason:     in.Reason,
		Time:       time.Now(),
	}
}

// snapshot loads the account state used by the strategy.
func (r *Runner) snapshot(ctx context.Context) (*strategy.Snapshot, error) {
	account := r.Account()
	selling, buying := r.cfg.Side()
	snap := &strategy.Snapshot{
		Account: account,
		Time:    time.Now(),
	}

	if _, err := r.retry(ctx, "load account", func() error {
		acct, err := r.client.LoadAccount(ctx, account)
		if err != nil {
			return err
		}
		snap.Sequence, snap.Balances = acct.Sequence, acct.Balances
		return nil
	}); err != nil {
		return nil, err
	}

	if _, err := r.retry(ctx, "load open offers", func() (err error) {
		snap.Offers, err = r.client.GetOpenOffers(ctx, account)
		return err
	}); err != nil {
		return nil, err
	}

	if _, err := r.retry(ctx, "load order book", func() (err error) {
		snap.OrderBook, err = r.client.GetOrderBook(ctx, selling, buying)
		return err
	}); err != nil {
		return nil, err
	}

	if _, err := r.retry(ctx, "load recent trades", func() (err error) {
		snap.Trades, err = r.client.GetRecentTrades(ctx, selling, buying)
		return err
	}); err != nil {
		return nil, err
	}
	return snap, nil
}

// retry invokes fn until it succeeds, fails with a non-transient error or
// runs out of attempts. Backoff waits are interrupted by cancellation, in
// which case the cancellation cause is returned. Returns the number of
// attempts made.
func (r *Runner) retry(ctx context.Context, what string, fn func() error) (int, error) {
	var last error
	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		if cause := context.Cause(ctx); cause != nil {
			return attempt - 1, cause
		}
		err := fn()
		if err == nil {
			return attempt, nil
		}
		if !ledger.IsTransient(err) {
			return attempt, fmt.Errorf("could not %s: %w", what, err)
		}
		last = err
		if attempt == r.opts.MaxRetries {
			break
		}
		delay := ctxutil.Backoff(attempt, r.opts.BaseDelay, r.opts.MaxDelay)
		slog.WarnContext(ctx, "ledger call failed with a transient error; retrying", "account", r.Account(),
			"call", what, "attempt", attempt, "delay", delay, "err", err)
		if err := ctxutil.Sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}
	if cause := context.Cause(ctx); cause != nil {
		return r.opts.MaxRetries, cause
	}
	return r.opts.MaxRetries, fmt.Errorf("could not %s after %d attempts: %w: %w", what, r.opts.MaxRetries, ErrTransientExhausted, last)
}
