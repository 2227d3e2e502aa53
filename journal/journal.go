// Copyright (c) 2025 BVK Chaitanya

// Package journal keeps an audit trail of the offer operations submitted by
// the trading jobs in a SQLite database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/makerbot/bot"
	"github.com/bvk/makerbot/job"
	"github.com/visvasity/topic"

	_ "modernc.org/sqlite"
)

// Entry is one offer operation result.
type Entry struct {
	ID int64

	JobID   string
	Account string
	Cycle   int

	Kind    string
	Selling string
	Buying  string
	Amount  string
	Price   string
	OfferID int64

	Success    bool
	ResultCode string
	Hash       string
	Reason     string
	Error      string
	Attempts   int

	Time time.Time
}

type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS operations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	account TEXT NOT NULL,
	cycle INTEGER NOT NULL,
	kind TEXT NOT NULL,
	selling TEXT NOT NULL,
	buying TEXT NOT NULL,
	amount TEXT NOT NULL,
	price TEXT NOT NULL,
	offer_id INTEGER NOT NULL,
	success INTEGER NOT NULL,
	result_code TEXT NOT NULL,
	hash TEXT NOT NULL,
	reason TEXT NOT NULL,
	error TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS operations_job_id ON operations (job_id, id);
`

// Open opens or creates the journal database at the file path.
func Open(ctx context.Context, file string) (*Journal, error) {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite database %q: %w", file, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not set %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create journal tables: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record saves the operation results of a cycle.
func (j *Journal) Record(ctx context.Context, jobID, account string, cycle *bot.CycleResult) error {
	if len(cycle.Results) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO operations (job_id, account, cycle, kind, selling, buying, amount, price,
offer_id, success, result_code, hash, reason, error, attempts, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, r := range cycle.Results {
		if _, err := tx.ExecContext(ctx, insert,
			jobID, account, cycle.Cycle, string(r.Kind), r.Selling.String(), r.Buying.String(),
			r.Amount.String(), r.Price.String(), r.OfferID, r.Success, r.ResultCode, r.Hash,
			r.Reason, r.Error, r.Attempts, r.Time.UnixNano()); err != nil {
			return fmt.Errorf("could not insert journal entry: %w", err)
		}
	}
	return tx.Commit()
}

// List returns up to limit most recent entries of a job, newest first. Zero
// or negative limit returns all entries.
func (j *Journal) List(ctx context.Context, jobID string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	const query = `SELECT id, job_id, account, cycle, kind, selling, buying, amount, price, offer_id,
success, result_code, hash, reason, error, attempts, ts FROM operations WHERE job_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query journal: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var ts int64
		e := new(Entry)
		if err := rows.Scan(&e.ID, &e.JobID, &e.Account, &e.Cycle, &e.Kind, &e.Selling, &e.Buying,
			&e.Amount, &e.Price, &e.OfferID, &e.Success, &e.ResultCode, &e.Hash, &e.Reason, &e.Error,
			&e.Attempts, &ts); err != nil {
			return nil, fmt.Errorf("could not scan journal row: %w", err)
		}
		e.Time = time.Unix(0, ts)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Watch records the cycle results published by the registry until the
// context is canceled.
func (j *Journal) Watch(ctx context.Context, registry *job.Registry) error {
	receiver, err := registry.Subscribe()
	if err != nil {
		return err
	}
	defer receiver.Close()

	eventsCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)

		case e, ok := <-eventsCh:
			if !ok {
				return nil
			}
			if e.Cycle == nil {
				continue
			}
			if err := j.Record(ctx, e.JobID, e.Account, e.Cycle); err != nil {
				slog.Warn("could not record cycle results in the journal (ignored)", "job", e.JobID, "cycle", e.Cycle.Cycle, "err", err)
			}
		}
	}
}
