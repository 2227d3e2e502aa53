// Copyright (c) 2025 BVK Chaitanya

package kvutil

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bvk/makerbot/gobs"
	"github.com/bvkgo/kv"
)

// walk invokes fn for every key under the directory dir in ascending
// order. Empty dir or "/" selects all keys.
func walk(ctx context.Context, r kv.Reader, dir string, fn func(key string, value io.Reader) error) error {
	var begin, end string
	if len(dir) != 0 {
		begin, end = PathRange(dir)
	}
	it, err := r.Ascend(ctx, begin, end)
	if err != nil {
		return fmt.Errorf("could not create ascending iterator: %w", err)
	}
	defer kv.Close(it)

	for k, v, err := it.Fetch(ctx, false); err == nil; k, v, err = it.Fetch(ctx, true) {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	if _, _, err := it.Fetch(ctx, false); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("iterator fetch has failed: %w", err)
	}
	return nil
}

// Export writes the keys under dir as a stream of gob encoded key-value
// records and returns the number of records written.
func Export(ctx context.Context, r kv.Reader, w io.Writer, dir string) (int, error) {
	count := 0
	encoder := gob.NewEncoder(w)
	err := walk(ctx, r, dir, func(k string, v io.Reader) error {
		value, err := io.ReadAll(v)
		if err != nil {
			return fmt.Errorf("could not read value at key %q: %w", k, err)
		}
		if err := encoder.Encode(&gobs.KeyValue{Key: k, Value: value}); err != nil {
			return fmt.Errorf("could not encode record for key %q: %w", k, err)
		}
		count++
		return nil
	})
	return count, err
}

// Import reads records written by Export and saves them into the database.
func Import(ctx context.Context, r io.Reader, rw kv.ReadWriter) (int, error) {
	decoder := gob.NewDecoder(r)

	count := 0
	for {
		var item gobs.KeyValue
		if err := decoder.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, fmt.Errorf("could not decode record %d from backup: %w", count, err)
		}
		if len(item.Key) == 0 {
			return count, fmt.Errorf("backup record %d has empty key: %w", count, os.ErrInvalid)
		}
		if err := rw.Set(ctx, item.Key, bytes.NewReader(item.Value)); err != nil {
			return count, fmt.Errorf("could not restore at key %q: %w", item.Key, err)
		}
		count++
	}
}

// DeleteAll removes all keys under dir and returns the number of keys
// removed.
func DeleteAll(ctx context.Context, rw kv.ReadWriter, dir string) (int, error) {
	// Keys are collected first; deleting while iterating is not supported by
	// every backend.
	var keys []string
	if err := walk(ctx, rw, dir, func(k string, _ io.Reader) error {
		keys = append(keys, k)
		return nil
	}); err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := rw.Delete(ctx, k); err != nil {
			return i, fmt.Errorf("could not delete key %q: %w", k, err)
		}
	}
	return len(keys), nil
}

// BackupDB exports the whole database into file atomically. Existing file is
// replaced only after the backup is complete.
func BackupDB(ctx context.Context, db kv.Database, file string) (_ int, status error) {
	abspath, err := filepath.Abs(file)
	if err != nil {
		return 0, fmt.Errorf("could not determine absolute path: %w", err)
	}

	fp, err := os.CreateTemp(filepath.Dir(abspath), ".makerbot-backup*")
	if err != nil {
		return 0, fmt.Errorf("could not create temp file: %w", err)
	}
	defer func() {
		fp.Close()
		if status != nil {
			os.Remove(fp.Name())
		}
	}()

	count := 0
	bw := bufio.NewWriter(fp)
	if err := kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		n, err := Export(ctx, r, bw, "")
		count = n
		return err
	}); err != nil {
		return 0, fmt.Errorf("could not export db content: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("could not flush backup data: %w", err)
	}
	if err := fp.Sync(); err != nil {
		return 0, fmt.Errorf("could not sync the backup file: %w", err)
	}
	if err := os.Rename(fp.Name(), abspath); err != nil {
		return 0, fmt.Errorf("could not rename temp file to %q: %w", abspath, err)
	}
	return count, nil
}
