// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
)

// CloseGroup runs background goroutines that share a context which is
// canceled with os.ErrClosed when the group is closed. Zero value is ready to
// use.
type CloseGroup struct {
	once sync.Once

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu     sync.Mutex
	closed bool

	wg sync.WaitGroup
}

func (cg *CloseGroup) init() {
	cg.ctx, cg.cancel = context.WithCancelCause(context.Background())
}

// Close cancels the group context and waits for all goroutines to return.
// It is safe to call Close multiple times.
func (cg *CloseGroup) Close() {
	cg.once.Do(cg.init)

	cg.mu.Lock()
	cg.closed = true
	cg.mu.Unlock()

	cg.cancel(os.ErrClosed)
	cg.wg.Wait()
}

func (cg *CloseGroup) Context() context.Context {
	cg.once.Do(cg.init)
	return cg.ctx
}

// Go runs f in a new goroutine with the group context. Returns false without
// running f if the group is already closed. Panics in f are logged before
// they are propagated.
func (cg *CloseGroup) Go(f func(ctx context.Context)) bool {
	cg.once.Do(cg.init)

	cg.mu.Lock()
	defer cg.mu.Unlock()

	if cg.closed {
		return false
	}

	cg.wg.Add(1)
	go func() {
		defer cg.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("CAUGHT PANIC", "panic", r)
				slog.Error(string(debug.Stack()))
				panic(r)
			}
		}()
		f(cg.ctx)
	}()
	return true
}
