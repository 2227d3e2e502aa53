// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bvk/makerbot/asset"
	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/ledger/memledger"
	"github.com/shopspring/decimal"
)

const testConfig = `
horizon:
  url: http://localhost:8000/
  requests_per_second: 2
bot:
  interval: 45s
  max_retries: 3
telegram:
  bot_token: token
  owner_id: alice
simulation:
  accounts:
    - secret: SALICE
      sequence: 100
      balances:
        native: "1000"
        USD:GISSUERX: "0"
  order_books:
    - selling: native
      buying: USD:GISSUERX
      asks:
        - price: "0.11"
          amount: "500"
      bids:
        - price: 9/100
          amount: "500"
`

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(file, []byte(testConfig), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MAKERBOT_NETWORK", "PUBLIC")
	t.Setenv("MAKERBOT_TELEGRAM_OWNER", "bob")

	cfg, err := Load(file)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Horizon.URL != "http://localhost:8000/" || cfg.Horizon.Network != Public {
		t.Fatalf("wanted horizon url from file and network from env, got %+v", cfg.Horizon)
	}
	if cfg.Telegram.OwnerID != "bob" {
		t.Fatalf("wanted owner from env, got %q", cfg.Telegram.OwnerID)
	}
	opts := cfg.BotOptions()
	if opts.Interval != 45*time.Second || opts.MaxRetries != 3 {
		t.Fatalf("wanted bot options from file, got %+v", opts)
	}
	if cfg.Simulation == nil || len(cfg.Simulation.Accounts) != 1 || len(cfg.Simulation.OrderBooks) != 1 {
		t.Fatalf("wanted simulation fixture, got %+v", cfg.Simulation)
	}
	book := cfg.Simulation.OrderBooks[0]
	if !book.Selling.IsNative() || !book.Buying.Equal(asset.Credit("USD", "GISSUERX")) {
		t.Fatalf("wanted native/USD book, got %s/%s", book.Selling, book.Buying)
	}
	if len(book.Asks) != 1 || book.Asks[0].Amount.String() != "500" {
		t.Fatalf("wanted one ask of 500, got %+v", book.Asks)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Horizon.Network != Testnet || cfg.Horizon.URL == "" || cfg.JournalFile == "" {
		t.Fatalf("wanted defaults, got %+v", cfg)
	}

	file := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(file, []byte("horizon:\n  network: mainnet\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(file); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid for unknown network, got %v", err)
	}
	t.Setenv("MAKERBOT_PUSHOVER_APP_KEY", "")
	t.Setenv("MAKERBOT_PUSHOVER_USER_KEY", "")
	if err := os.WriteFile(file, []byte("pushover:\n  application_key: app\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(file); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted ErrInvalid for pushover without user key, got %v", err)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(file, []byte(testConfig), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatal(err)
	}

	l := memledger.New()
	if err := cfg.Simulation.Seed(l); err != nil {
		t.Fatal(err)
	}
	acct, err := l.LoadAccount(ctx, "GALICE")
	if err != nil {
		t.Fatal(err)
	}
	if acct.Sequence != 100 {
		t.Fatalf("wanted sequence 100, got %d", acct.Sequence)
	}
	if b := ledger.FindBalance(acct.Balances, asset.Native); b == nil || !b.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("wanted 1000 native balance, got %+v", b)
	}

	book, err := l.GetOrderBook(ctx, asset.Native, asset.Credit("USD", "GISSUERX"))
	if err != nil {
		t.Fatal(err)
	}
	if book.BestAsk() == nil || book.BestBid() == nil {
		t.Fatalf("wanted both sides of the book, got %+v", book)
	}
	if mid, ok := book.Midpoint(); !ok || !mid.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("wanted midpoint 0.1, got %s", mid)
	}

	// Seeding twice collides on the account.
	if err := cfg.Simulation.Seed(l); !errors.Is(err, os.ErrExist) {
		t.Fatalf("wanted os.ErrExist, got %v", err)
	}
}

func TestSave(t *testing.T) {
	file := filepath.Join(t.TempDir(), DefaultFile)
	cfg := &Config{
		Telegram: Telegram{BotToken: "token", OwnerID: "alice"},
		Bot:      Bot{Interval: time.Minute},
	}
	if err := Save(file, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Read(file)
	if err != nil {
		t.Fatal(err)
	}
	if got.Telegram.OwnerID != "alice" || got.Bot.Interval != time.Minute || got.Simulation != nil {
		t.Fatalf("wanted saved values back, got %+v", got)
	}
	if got.Horizon.URL != "" {
		t.Fatalf("wanted no defaults from Read, got %q", got.Horizon.URL)
	}
}
