// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"os"

	"github.com/bvk/makerbot/job"
	"github.com/bvk/makerbot/telegram"
	"github.com/visvasity/cli"
)

// AddTelegramCommands registers the job commands with the telegram bot.
func (s *Server) AddTelegramCommands(ctx context.Context, client *telegram.Client) error {
	if err := client.AddCommand(ctx, "jobs", "Lists the active trading jobs", s.jobsTelegramCmd); err != nil {
		return err
	}
	if err := client.AddCommand(ctx, "status", "Prints status of a trading job", s.statusTelegramCmd); err != nil {
		return err
	}
	if err := client.AddCommand(ctx, "stop", "Stops a trading job", s.stopTelegramCmd); err != nil {
		return err
	}
	return nil
}

func (s *Server) jobsTelegramCmd(ctx context.Context, args []string) error {
	stdout := cli.Stdout(ctx)
	statuses, err := s.registry.List(ctx)
	if err != nil {
		return err
	}
	n := 0
	for _, status := range statuses {
		if job.IsFinal(status.State) {
			continue
		}
		n++
		fmt.Fprintf(stdout, "%s %s %s %s %s cycles=%d\n", status.ID, status.Account, status.Mode, status.Pair, status.Phase, status.Cycles)
	}
	if n == 0 {
		fmt.Fprintln(stdout, "No active jobs")
	}
	return nil
}

func (s *Server) statusTelegramCmd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one job id argument: %w", os.ErrInvalid)
	}
	status, err := s.registry.Status(ctx, args[0])
	if err != nil {
		return err
	}
	stdout := cli.Stdout(ctx)
	fmt.Fprintf(stdout, "Job %s is %s (%s) after %d cycles", status.ID, status.State, status.Phase, status.Cycles)
	if status.Cause != "" {
		fmt.Fprintf(stdout, ": %s", status.Cause)
	}
	if last := status.LastCycle; last != nil {
		fmt.Fprintf(stdout, "\nLast cycle %d had %d operations with %d failures", last.Cycle, len(last.Results), last.Failures())
	}
	return nil
}

func (s *Server) stopTelegramCmd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one job id argument: %w", os.ErrInvalid)
	}
	if err := s.registry.Stop(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "Stopping job %s", args[0])
	return nil
}
