// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
)

func TestCloseGroup(t *testing.T) {
	var cg CloseGroup

	var done atomic.Int32
	for i := 0; i < 100; i++ {
		if !cg.Go(func(ctx context.Context) {
			<-ctx.Done()
			done.Add(1)
		}) {
			t.Fatalf("wanted goroutine %d to start", i)
		}
	}

	cg.Close()
	if v := done.Load(); v != 100 {
		t.Fatalf("wanted all goroutines to complete before Close returns, got %d", v)
	}
	if err := context.Cause(cg.Context()); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("wanted os.ErrClosed as the cancel cause, got %v", err)
	}
	if cg.Go(func(context.Context) { t.Errorf("must not run after close") }) {
		t.Fatalf("wanted Go to fail after Close")
	}
	cg.Close()
}
