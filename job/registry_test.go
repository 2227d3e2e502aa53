// Copyright (c) 2025 BVK Chaitanya

package job

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/bot"
	"github.com/bvk/makerbot/gobs"
	"github.com/bvk/makerbot/kvutil"
	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/ledger/memledger"
	"github.com/bvk/makerbot/strategy"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
	"github.com/visvasity/topic"
)

var usd = asset.Credit("USD", "GISSUERX")

const secret = "SALICE"

func newTestLedger(t *testing.T) *memledger.Ledger {
	l := memledger.New()
	id, err := l.AddAccount(secret, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.SetBalance(id, asset.Native, decimal.NewFromInt(1000)); err != nil {
		t.Fatal(err)
	}
	if err := l.SetBalance(id, usd, decimal.Zero); err != nil {
		t.Fatal(err)
	}
	l.SetOrderBook(asset.Native, usd,
		[]*ledger.PriceLevel{{Price: ledger.Price{N: 11, D: 100}, Amount: decimal.NewFromInt(500)}},
		[]*ledger.PriceLevel{{Price: ledger.Price{N: 9, D: 100}, Amount: decimal.NewFromInt(500)}})
	return l
}

func newTestRegistry(t *testing.T, l ledger.Client, db kv.Database, interval time.Duration) *Registry {
	opts := &Options{
		Bot: bot.Options{
			Interval:   interval,
			Tick:       10 * time.Millisecond,
			MaxRetries: 3,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	}
	r, err := New(l, db, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func newTestConfig() *strategy.Config {
	return &strategy.Config{
		Mode:   strategy.Bid,
		Pair:   strategy.Pair{Selling: asset.Native, Buying: usd},
		Spread: decimal.RequireFromString("0.01"),
	}
}

func subscribe(t *testing.T, r *Registry) <-chan *Event {
	receiver, err := r.Subscribe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(receiver.Close)

	ch, err := topic.ReceiveCh(receiver)
	if err != nil {
		t.Fatal(err)
	}
	return ch
}

func waitEvent(t *testing.T, ch <-chan *Event, match func(*Event) bool) *Event {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-ch:
			if match(e) {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for job event")
			return nil
		}
	}
}

func waitFinal(t *testing.T, r *Registry, id string) *Status {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := r.Wait(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	return status
}

func TestConcurrentStart(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newTestLedger(t), kvmemdb.New(), time.Hour)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Start(ctx, secret, newTestConfig())
		}(i)
	}
	wg.Wait()

	var started, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			started++
		case errors.Is(err, ErrAlreadyRunning):
			rejected++
		default:
			t.Fatalf("unexpected start error: %v", err)
		}
	}
	if started != 1 || rejected != n-1 {
		t.Fatalf("wanted exactly one job to start, got %d started and %d rejected", started, rejected)
	}
}

func TestStopTwice(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newTestLedger(t), kvmemdb.New(), time.Hour)

	j, err := r.Start(ctx, secret, newTestConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Stop(ctx, j.ID()); err != nil {
		t.Fatal(err)
	}
	if err := r.Stop(ctx, j.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wanted ErrNotFound on second stop, got %v", err)
	}

	status := waitFinal(t, r, j.ID())
	if status.State != STOPPED {
		t.Fatalf("wanted STOPPED, got %s", status.State)
	}
	if err := r.Stop(ctx, j.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wanted ErrNotFound on stopped job, got %v", err)
	}
	if status, _ := r.Status(ctx, j.ID()); status.State != STOPPED {
		t.Fatalf("wanted job to stay STOPPED, got %s", status.State)
	}
	if err := r.Stop(ctx, "no-such-job"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wanted ErrNotFound on unknown job, got %v", err)
	}

	// Account slot is free again.
	j2, err := r.Start(ctx, secret, newTestConfig())
	if err != nil {
		t.Fatal(err)
	}
	if j2.ID() == j.ID() {
		t.Fatalf("wanted a new job id")
	}
}

// gatedClient blocks the first LoadAccount call until release is closed.
type gatedClient struct {
	ledger.Client

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (c *gatedClient) LoadAccount(ctx context.Context, id string) (*ledger.Account, error) {
	first := false
	c.once.Do(func() { first = true })
	if first {
		close(c.entered)
		<-c.release
	}
	return c.Client.LoadAccount(ctx, id)
}

func TestStopWhilePending(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	client := &gatedClient{Client: l, entered: make(chan struct{}), release: make(chan struct{})}
	r := newTestRegistry(t, client, kvmemdb.New(), time.Hour)

	type startResult struct {
		job *Job
		err error
	}
	resultCh := make(chan startResult, 1)
	go func() {
		j, err := r.Start(ctx, secret, newTestConfig())
		resultCh <- startResult{j, err}
	}()
	<-client.entered

	statuses, err := r.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].State != PENDING {
		t.Fatalf("wanted one PENDING job, got %+v", statuses)
	}
	id := statuses[0].ID
	if err := r.Stop(ctx, id); err != nil {
		t.Fatalf("wanted stop on a pending job to be accepted, got %v", err)
	}
	close(client.release)

	res := <-resultCh
	if res.err != nil {
		t.Fatal(res.err)
	}
	if res.job.ID() != id {
		t.Fatalf("wanted job %s, got %s", id, res.job.ID())
	}
	status := waitFinal(t, r, id)
	if status.State != STOPPED {
		t.Fatalf("wanted the pending stop to be honored, got %s", status.State)
	}
	if n := l.Calls(memledger.MethodSubmitTransaction); n != 0 {
		t.Fatalf("wanted no offers from a job stopped while pending, got %d submissions", n)
	}
}

func TestStartErrors(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	r := newTestRegistry(t, l, kvmemdb.New(), time.Hour)

	if _, err := r.Start(ctx, "not-a-secret", newTestConfig()); !errors.Is(err, ledger.ErrMalformedCredential) {
		t.Fatalf("wanted ErrMalformedCredential, got %v", err)
	}
	if _, err := r.Start(ctx, "SBOB", newTestConfig()); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("wanted ErrAccountNotFound, got %v", err)
	}
	bad := newTestConfig()
	bad.Pair.Buying = asset.Native
	if _, err := r.Start(ctx, secret, bad); err == nil {
		t.Fatalf("wanted invalid config to fail")
	}
	if jobs, _ := r.List(ctx); len(jobs) != 0 {
		t.Fatalf("wanted no jobs after failed starts, got %d", len(jobs))
	}

	// Transient failure of the account check does not block the start.
	l.FailCalls(memledger.MethodLoadAccount, 0, 1, ledger.ErrTransient)
	if _, err := r.Start(ctx, secret, newTestConfig()); err != nil {
		t.Fatal(err)
	}
}

// Cycle one creates an offer and cycle two finds nothing to do.
func TestCreateThenIdle(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	r := newTestRegistry(t, l, kvmemdb.New(), 20*time.Millisecond)
	events := subscribe(t, r)

	j, err := r.Start(ctx, secret, newTestConfig())
	if err != nil {
		t.Fatal(err)
	}

	first := waitEvent(t, events, func(e *Event) bool { return e.Cycle != nil && e.Cycle.Cycle == 1 })
	if len(first.Cycle.Results) != 1 || !first.Cycle.Results[0].Success {
		t.Fatalf("wanted one successful operation in the first cycle, got %+v", first.Cycle.Results)
	}
	second := waitEvent(t, events, func(e *Event) bool { return e.Cycle != nil && e.Cycle.Cycle == 2 })
	if len(second.Cycle.Intents) != 0 {
		t.Fatalf("wanted no intents in the second cycle, got %v", second.Cycle.Intents)
	}

	offers, err := l.GetOpenOffers(ctx, j.Account())
	if err != nil {
		t.Fatal(err)
	}
	if len(offers) != 1 {
		t.Fatalf("wanted one open offer, got %d", len(offers))
	}
	status, err := r.Status(ctx, j.ID())
	if err != nil {
		t.Fatal(err)
	}
	if status.State != RUNNING || status.Cycles < 2 {
		t.Fatalf("wanted a running job with two cycles, got %s with %d", status.State, status.Cycles)
	}
}

func TestTransientExhaustion(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	r := newTestRegistry(t, l, kvmemdb.New(), time.Hour)

	// First call is the account check by Start.
	l.FailCalls(memledger.MethodLoadAccount, 1, 3, context.DeadlineExceeded)

	j, err := r.Start(ctx, secret, newTestConfig())
	if err != nil {
		t.Fatal(err)
	}
	status := waitFinal(t, r, j.ID())
	if status.State != FAILED || status.Phase != bot.Failed {
		t.Fatalf("wanted FAILED, got %s/%s", status.State, status.Phase)
	}
	if !strings.Contains(status.Cause, bot.ErrTransientExhausted.Error()) {
		t.Fatalf("wanted TransientExhausted cause, got %q", status.Cause)
	}

	jobs, err := r.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].State != FAILED {
		t.Fatalf("wanted the job table to report FAILED, got %+v", jobs)
	}
	if err := r.Stop(ctx, j.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wanted ErrNotFound for a failed job, got %v", err)
	}
}

func TestStopDuringWait(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newTestLedger(t), kvmemdb.New(), time.Hour)
	events := subscribe(t, r)

	j, err := r.Start(ctx, secret, newTestConfig())
	if err != nil {
		t.Fatal(err)
	}
	waitEvent(t, events, func(e *Event) bool { return e.JobID == j.ID() && e.Phase == bot.Waiting })

	start := time.Now()
	if err := r.Stop(ctx, j.ID()); err != nil {
		t.Fatal(err)
	}
	status := waitFinal(t, r, j.ID())
	if d := time.Since(start); d > time.Second {
		t.Fatalf("wanted stop within a tick, took %s", d)
	}
	if status.State != STOPPED || status.Phase != bot.Stopped {
		t.Fatalf("wanted STOPPED, got %s/%s", status.State, status.Phase)
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	l := newTestLedger(t)

	r1 := newTestRegistry(t, l, db, time.Hour)
	j, err := r1.Start(ctx, secret, newTestConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := r1.Close(); err != nil {
		t.Fatal(err)
	}

	rec, err := kvutil.GetDB[gobs.JobRecord](ctx, db, jobKey(j.ID()))
	if err != nil {
		t.Fatal(err)
	}
	if State(rec.State) != STOPPED {
		t.Fatalf("wanted STOPPED record after close, got %s", rec.State)
	}

	// Simulate a crash while the job was running.
	rec.State = string(RUNNING)
	if err := kvutil.SetDB(ctx, db, jobKey(j.ID()), rec); err != nil {
		t.Fatal(err)
	}

	r2 := newTestRegistry(t, l, db, time.Hour)
	if err := r2.Load(ctx); err != nil {
		t.Fatal(err)
	}
	status, err := r2.Status(ctx, j.ID())
	if err != nil {
		t.Fatal(err)
	}
	if status.State != STOPPED || status.Cause != "interrupted" {
		t.Fatalf("wanted interrupted job to be STOPPED, got %s (%s)", status.State, status.Cause)
	}
	if !status.Pair.Buying.Equal(usd) || status.Mode != strategy.Bid {
		t.Fatalf("wanted strategy config to be restored, got %+v", status)
	}
	if _, err := r2.Start(ctx, secret, newTestConfig()); err != nil {
		t.Fatalf("wanted restored jobs to not hold the account, got %v", err)
	}
}
