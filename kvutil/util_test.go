// Copyright (c) 2025 BVK Chaitanya

package kvutil

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/bvk/makerbot/gobs"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
)

func TestPathRange(t *testing.T) {
	tests := []struct {
		dir, begin, end string
	}{
		{"/", "", ""},
		{"/makerbot/jobs", "/makerbot/jobs/", "/makerbot/jobs0"},
		{"/makerbot/jobs/", "/makerbot/jobs/", "/makerbot/jobs0"},
	}
	for _, test := range tests {
		if b, e := PathRange(test.dir); b != test.begin || e != test.end {
			t.Errorf("%q: wanted [%q, %q), got [%q, %q)", test.dir, test.begin, test.end, b, e)
		}
	}
}

func TestScanDB(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	keys := []string{"/makerbot/jobs/b", "/makerbot/jobs/a", "/makerbot/jobs0", "/makerbot/jobsx/c"}
	for _, k := range keys {
		if err := SetDB(ctx, db, k, &gobs.KeyValue{Key: k}); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	if err := ScanDB(ctx, db, "/makerbot/jobs", func(key string, v *gobs.KeyValue) error {
		if v.Key != key {
			t.Errorf("key %q holds record for %q", key, v.Key)
		}
		got = append(got, key)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if want := []string{"/makerbot/jobs/a", "/makerbot/jobs/b"}; !slices.Equal(got, want) {
		t.Fatalf("wanted %v, got %v", want, got)
	}

	stop := errors.New("stop")
	calls := 0
	if err := ScanDB(ctx, db, "/", func(string, *gobs.KeyValue) error { calls++; return stop }); !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("wanted scan to stop after one record, got %v after %d calls", err, calls)
	}
}

func TestScanDBBadRecord(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	if err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Set(ctx, "/makerbot/jobs/bad", strings.NewReader("garbage"))
	}); err != nil {
		t.Fatal(err)
	}
	err := ScanDB(ctx, db, "/makerbot/jobs", func(string, *gobs.KeyValue) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "/makerbot/jobs/bad") {
		t.Fatalf("wanted decode error naming the key, got %v", err)
	}
}
