// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"os"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/job"
)

func (s *Server) doStart(ctx context.Context, req *api.StartRequest) (*api.StartResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	cfg, err := strategyConfig(req.Strategy)
	if err != nil {
		return nil, err
	}
	j, err := s.registry.Start(ctx, req.Secret, cfg)
	if err != nil {
		return nil, err
	}
	resp := &api.StartResponse{
		JobID:   j.ID(),
		Account: j.Account(),
		State:   string(j.State()),
	}
	return resp, nil
}

func (s *Server) doStop(ctx context.Context, req *api.StopRequest) (*api.StopResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	if err := s.registry.Stop(ctx, req.JobID); err != nil {
		return nil, err
	}
	status, err := s.registry.Status(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	return &api.StopResponse{State: string(status.State)}, nil
}

func (s *Server) doStatus(ctx context.Context, req *api.StatusRequest) (*api.StatusResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	status, err := s.registry.Status(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	return &api.StatusResponse{Status: toAPIStatus(status)}, nil
}

func (s *Server) doList(ctx context.Context, req *api.ListRequest) (*api.ListResponse, error) {
	statuses, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := new(api.ListResponse)
	for _, status := range statuses {
		if !req.All && job.IsFinal(status.State) {
			continue
		}
		resp.Jobs = append(resp.Jobs, toAPIStatus(status))
	}
	return resp, nil
}

func (s *Server) doJournal(ctx context.Context, req *api.JournalRequest) (*api.JournalResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	if s.journal == nil {
		return nil, fmt.Errorf("journal is not configured: %w", os.ErrClosed)
	}
	if _, err := s.registry.Status(ctx, req.JobID); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 || limit > s.opts.MaxJournalEntries {
		limit = s.opts.MaxJournalEntries
	}
	entries, err := s.journal.List(ctx, req.JobID, limit)
	if err != nil {
		return nil, err
	}
	resp := new(api.JournalResponse)
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toAPIJournalEntry(e))
	}
	return resp, nil
}
