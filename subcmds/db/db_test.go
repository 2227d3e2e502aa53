// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bvk/makerbot/gobs"
	"github.com/bvk/makerbot/kvutil"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
)

func runCommand(ctx context.Context, cmd cli.Command, args ...string) error {
	_, fset, run := cmd.Command()
	if err := fset.Parse(args); err != nil {
		return err
	}
	return run(ctx, fset.Args())
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src := kvmemdb.New()
	state := &gobs.TelegramState{UserChatIDMap: map[string]int64{"alice": 42}}
	if err := kvutil.SetDB(ctx, src, "/makerbot/telegram/bot/state", state); err != nil {
		t.Fatal(err)
	}
	backup := filepath.Join(dir, "first.gob")
	if _, err := kvutil.BackupDB(ctx, src, backup); err != nil {
		t.Fatal(err)
	}

	// Backup command on a backup file produces an equivalent backup.
	second := filepath.Join(dir, "second.gob")
	if err := runCommand(ctx, new(Backup), "-from-backup", backup, second); err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	if err := runCommand(cli.WithStdout(ctx, &sb), new(Get), "-from-backup", second, "/makerbot/telegram/bot/state"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), `"alice": 42`) {
		t.Fatalf("wanted decoded telegram state, got %q", sb.String())
	}

	sb.Reset()
	if err := runCommand(cli.WithStdout(ctx, &sb), new(List), "-from-backup", second, "-key-regexp", "^/makerbot/"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(sb.String()) != "/makerbot/telegram/bot/state" {
		t.Fatalf("wanted one key, got %q", sb.String())
	}

	if err := runCommand(ctx, new(Get), "-from-backup", second, "/missing"); err == nil {
		t.Fatalf("wanted missing key to fail")
	}
}

func TestTypeNameForKey(t *testing.T) {
	if v := typeNameForKey("/makerbot/jobs/abc"); v != "JobRecord" {
		t.Fatalf("wanted JobRecord, got %q", v)
	}
	if v := typeNameForKey("/other"); v != "" {
		t.Fatalf("wanted no type, got %q", v)
	}
	if v := hexOrJSON("/other", "", []byte{0xab}); v != "ab" {
		t.Fatalf("wanted hex value, got %q", v)
	}
}
