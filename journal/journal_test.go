// Copyright (c) 2025 BVK Chaitanya

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/bot"
	"github.com/bvk/makerbot/job"
	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/ledger/memledger"
	"github.com/bvk/makerbot/offer"
	"github.com/bvk/makerbot/strategy"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/shopspring/decimal"
)

var usd = asset.Credit("USD", "GISSUERX")

func openTestJournal(t *testing.T) *Journal {
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordList(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	cycle := &bot.CycleResult{
		Cycle: 3,
		Results: []*offer.Result{
			{
				Kind:    offer.Create,
				Selling: asset.Native,
				Buying:  usd,
				Amount:  decimal.NewFromInt(100),
				Price:   ledger.Price{N: 101, D: 1000},
				OfferID: 7,
				Success: true,
				Time:    time.Now(),
			},
			{
				Kind:    offer.Delete,
				OfferID: 99,
				Error:   "InvalidOfferId",
				Time:    time.Now(),
			},
		},
	}
	if err := j.Record(ctx, "job-1", "GALICE", cycle); err != nil {
		t.Fatal(err)
	}
	if err := j.Record(ctx, "job-2", "GBOB", cycle); err != nil {
		t.Fatal(err)
	}

	entries, err := j.List(ctx, "job-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("wanted 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != string(offer.Delete) || entries[0].Success || entries[0].Error == "" {
		t.Fatalf("wanted newest entry to be the failed delete, got %+v", entries[0])
	}
	if e := entries[1]; e.OfferID != 7 || !e.Success || e.Price != "101/1000" || e.Selling != "native" || e.Cycle != 3 {
		t.Fatalf("wanted create entry, got %+v", e)
	}

	entries, err = j.List(ctx, "job-1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("wanted limit to apply, got %d entries", len(entries))
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := memledger.New()
	id, err := l.AddAccount("SALICE", 1)
	if err != nil {
		t.Fatal(err)
	}
	l.SetBalance(id, asset.Native, decimal.NewFromInt(1000))
	l.SetBalance(id, usd, decimal.Zero)
	l.SetOrderBook(asset.Native, usd,
		[]*ledger.PriceLevel{{Price: ledger.Price{N: 11, D: 100}, Amount: decimal.NewFromInt(5)}}, nil)

	registry, err := job.New(l, kvmemdb.New(), &job.Options{Bot: bot.Options{Interval: time.Hour, Tick: 10 * time.Millisecond}})
	if err != nil {
		t.Fatal(err)
	}
	defer registry.Close()

	j := openTestJournal(t)
	go j.Watch(ctx, registry)

	// Give the watcher a chance to subscribe before the first cycle.
	time.Sleep(50 * time.Millisecond)

	cfg := &strategy.Config{Mode: strategy.Bid, Pair: strategy.Pair{Selling: asset.Native, Buying: usd}}
	jb, err := registry.Start(ctx, "SALICE", cfg)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := j.List(ctx, jb.ID(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) == 1 {
			if !entries[0].Success || entries[0].Account != id {
				t.Fatalf("wanted a successful create for %s, got %+v", id, entries[0])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("journal entry was not recorded")
}
