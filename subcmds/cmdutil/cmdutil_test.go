// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/kvutil"
	"github.com/bvkgo/kv/kvmemdb"
)

func newClientFlags(t *testing.T, url string) *ClientFlags {
	host, port, err := net.SplitHostPort(url)
	if err != nil {
		t.Fatal(err)
	}
	cf := new(ClientFlags)
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	cf.SetFlags(fset)
	if err := fset.Parse([]string{"-connect-host", host, "-connect-port", port}); err != nil {
		t.Fatal(err)
	}
	return cf
}

func TestPost(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc(api.StopPath, func(w http.ResponseWriter, r *http.Request) {
		req := new(api.StopRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			t.Errorf("could not decode request: %v", err)
		}
		if req.JobID == "missing" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(&api.Error{Code: "NotFound", Message: "job not found"})
			return
		}
		if req.JobID == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "oops")
			return
		}
		json.NewEncoder(w).Encode(&api.StopResponse{State: "STOPPING"})
	})
	s := httptest.NewServer(mux)
	defer s.Close()

	cf := newClientFlags(t, s.Listener.Addr().String())

	resp, err := Post[api.StopResponse](ctx, cf, api.StopPath, &api.StopRequest{JobID: "job"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.State != "STOPPING" {
		t.Fatalf("wanted STOPPING, got %q", resp.State)
	}

	_, err = Post[api.StopResponse](ctx, cf, api.StopPath, &api.StopRequest{JobID: "missing"})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Code != "NotFound" {
		t.Fatalf("wanted NotFound api error, got %v", err)
	}

	if _, err := Post[api.StopResponse](ctx, cf, api.StopPath, &api.StopRequest{JobID: "broken"}); err == nil || errors.As(err, &apiErr) {
		t.Fatalf("wanted a plain status error, got %v", err)
	}
}

func TestPortFromEnv(t *testing.T) {
	t.Setenv("MAKERBOT_SERVER_PORT", "12345")
	cf := new(ClientFlags)
	if cf.Port() != 12345 {
		t.Fatalf("wanted port from the environment, got %d", cf.Port())
	}
}

func TestBackupDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src := kvmemdb.New()
	value := &api.Error{Code: "a", Message: "b"}
	if err := kvutil.SetDB(ctx, src, "/makerbot/test", value); err != nil {
		t.Fatal(err)
	}
	backup := filepath.Join(dir, "backup.gob")
	if _, err := kvutil.BackupDB(ctx, src, backup); err != nil {
		t.Fatal(err)
	}

	f := &DBFlags{fromBackup: backup}
	if f.IsRemoteDatabase() {
		t.Fatalf("wanted a local database with from-backup flag")
	}
	db, closer, err := f.GetDatabase(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer closer()

	got, err := kvutil.GetDB[api.Error](ctx, db, "/makerbot/test")
	if err != nil {
		t.Fatal(err)
	}
	if *got != *value {
		t.Fatalf("wanted %+v, got %+v", value, got)
	}

	if _, err := kvutil.GetDB[api.Error](ctx, db, "/missing"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("wanted os.ErrNotExist, got %v", err)
	}
}

func TestServerFlags(t *testing.T) {
	sf := &ServerFlags{IP: "not-an-ip", Port: 10}
	if _, err := sf.TCPAddr(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("wanted os.ErrInvalid, got %v", err)
	}
	sf.IP = "127.0.0.1"
	addr, err := sf.TCPAddr()
	if err != nil || addr.Port != 10 {
		t.Fatalf("wanted valid address, got %v %v", addr, err)
	}

	dir := filepath.Join(t.TempDir(), "data")
	got, err := DataDir(dir)
	if err != nil || got != dir {
		t.Fatalf("wanted %q created, got %q %v", dir, got, err)
	}
}
