// Copyright (c) 2025 BVK Chaitanya

// Package server implements the trader api handlers over the job registry.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/ctxutil"
	"github.com/bvk/makerbot/job"
	"github.com/bvk/makerbot/journal"
	"github.com/gorilla/websocket"
)

// Notifier delivers alert messages to the users.
type Notifier interface {
	SendMessage(ctx context.Context, at time.Time, text string) error
}

// Notifiers sends every message to all notifiers. It returns the first
// error after trying all of them.
type Notifiers []Notifier

func (ns Notifiers) SendMessage(ctx context.Context, at time.Time, text string) error {
	var first error
	for _, n := range ns {
		if err := n.SendMessage(ctx, at, text); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type Server struct {
	cg ctxutil.CloseGroup

	opts Options

	registry *job.Registry

	// journal is optional.
	journal *journal.Journal

	upgrader websocket.Upgrader

	mu sync.Mutex

	notifier Notifier

	alertFreezeDeadlineMap map[string]time.Time
}

// New creates a trader api server. Journal can be nil.
func New(registry *job.Registry, jrnl *journal.Journal, opts *Options) (*Server, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	s := &Server{
		opts:     *opts,
		registry: registry,
		journal:  jrnl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		alertFreezeDeadlineMap: make(map[string]time.Time),
	}
	return s, nil
}

// Close stops the background goroutines. Registry and journal are owned by
// the caller.
func (s *Server) Close() error {
	s.cg.Close()
	return nil
}

// HandlerMap returns the http handlers for the trader api paths.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		api.StartPath:   httpPostJSONHandler(s.doStart),
		api.StopPath:    httpPostJSONHandler(s.doStop),
		api.StatusPath:  httpPostJSONHandler(s.doStatus),
		api.ListPath:    httpPostJSONHandler(s.doList),
		api.JournalPath: httpPostJSONHandler(s.doJournal),
		api.WatchPath:   http.HandlerFunc(s.handleWatch),
	}
}
