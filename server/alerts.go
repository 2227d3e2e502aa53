// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/makerbot/job"
	"github.com/bvk/makerbot/ledger"
	"github.com/visvasity/topic"
)

// StartAlerts sends notifications for failed jobs and for offers rejected
// with insufficient balance until the server is closed.
func (s *Server) StartAlerts(notifier Notifier) error {
	receiver, err := s.registry.Subscribe()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.notifier = notifier
	s.mu.Unlock()

	s.cg.Go(func(ctx context.Context) {
		defer receiver.Close()
		if err := s.watchForAlerts(ctx, receiver); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("job alerts watcher has stopped", "err", err)
		}
	})
	return nil
}

func (s *Server) watchForAlerts(ctx context.Context, receiver *topic.Receiver[*job.Event]) error {
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
			if err := s.alertOnEvent(ctx, e); err != nil {
				slog.Warn("could not send job alert (ignored)", "job", e.JobID, "err", err)
			}
		}
	}
}

func (s *Server) alertOnEvent(ctx context.Context, e *job.Event) error {
	if e.State == job.FAILED {
		return s.sendMessage(ctx, e.Time, fmt.Sprintf("Trading job %s for account %s has failed: %s", e.JobID, e.Account, e.Cause))
	}
	if e.Cycle == nil {
		return nil
	}
	for _, r := range e.Cycle.Results {
		if !errors.Is(r.Err(), ledger.ErrInsufficientBalance) {
			continue
		}
		if err := s.alertOnLowBalance(ctx, e.Account, r.Selling.String(), r.Amount.String()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) alertOnLowBalance(ctx context.Context, account, selling, amount string) error {
	now := time.Now()
	key := fmt.Sprintf("low-balance-alert/%s/%s", account, selling)

	s.mu.Lock()
	if deadline, ok := s.alertFreezeDeadlineMap[key]; ok && now.Before(deadline) {
		s.mu.Unlock()
		return nil
	}
	s.alertFreezeDeadlineMap[key] = now.Add(s.opts.AlertFreezeTimeout)
	s.mu.Unlock()

	return s.sendMessage(ctx, now, fmt.Sprintf("Account %s has insufficient %s balance for an offer of %s.", account, selling, amount))
}

func (s *Server) sendMessage(ctx context.Context, at time.Time, text string) error {
	s.mu.Lock()
	notifier := s.notifier
	s.mu.Unlock()

	if notifier == nil {
		return nil
	}
	return notifier.SendMessage(ctx, at, text)
}
