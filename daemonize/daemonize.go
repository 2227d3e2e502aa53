// Copyright (c) 2025 BVK Chaitanya

// Package daemonize respawns the current program as a background process.
package daemonize

import (
	"context"
	"fmt"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CheckFunc verifies that the background process with the given pid is
// initialized and serving.
type CheckFunc func(ctx context.Context, pid int) error

// IsChild returns true if the current process is a background process started
// by Daemonize with the same environment key.
func IsChild(envKey string) bool {
	return len(os.Getenv(envKey)) != 0
}

// Daemonize respawns the current program in the background with the same
// command-line arguments and environment. Environment variable envKey marks
// the background process and must not be used for anything else. It must be
// called during the program startup before opening databases or starting
// servers.
//
// Standard input and outputs of the background process are replaced with
// /dev/null and the default slog logger writes to syslog.
//
// Parent process waits for the check function to succeed and exits without
// returning. Background process returns nil after it is detached from the
// parent's session.
func Daemonize(ctx context.Context, envKey string, check CheckFunc) error {
	if !IsChild(envKey) {
		if err := startChild(ctx, envKey, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := detach(); err != nil {
		return err
	}
	return nil
}

func startChild(ctx context.Context, envKey string, check CheckFunc) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("failed to lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	// Receive signal when child-process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	attr := &os.ProcAttr{
		Env:   append(os.Environ(), fmt.Sprintf("%s=%d", envKey, os.Getpid())),
		Files: []*os.File{devnull, devnull, devnull},
	}
	child, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	if check != nil {
		for ctx.Err() == nil {
			time.Sleep(time.Second)
			if err := check(ctx, child.Pid); err != nil {
				slog.WarnContext(ctx, "daemon process not yet initialized", "pid", child.Pid, "err", err)
				continue
			}
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("could not initialize the background process: %w", err)
	}
	return nil
}

func detach() error {
	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, "makerbot")
	if err != nil {
		slog.Warn("could not connect to syslog (ignored)", "err", err)
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, nil)))
	return nil
}
