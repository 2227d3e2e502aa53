// Copyright (c) 2025 BVK Chaitanya

// Package kvutil stores gob encoded records in a kv.Database and moves
// whole keyspaces in and out of it.
package kvutil

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"path"

	"github.com/bvkgo/kv"
)

func decode[T any](key string, r io.Reader) (*T, error) {
	v := new(T)
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return nil, fmt.Errorf("could not decode record at %q: %w", key, err)
	}
	return v, nil
}

// GetDB reads and decodes the record at key. Missing keys report
// os.ErrNotExist.
func GetDB[T any](ctx context.Context, db kv.Database, key string) (*T, error) {
	var v *T
	err := kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		data, err := r.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("could not read %q: %w", key, err)
		}
		v, err = decode[T](key, data)
		return err
	})
	return v, err
}

// SetDB encodes the record and writes it at key in its own transaction.
func SetDB[T any](ctx context.Context, db kv.Database, key string, v *T) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("could not encode record for %q: %w", key, err)
	}
	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Set(ctx, key, bytes.NewReader(buf.Bytes()))
	})
}

// ScanDB decodes every record under the directory dir, in key order, and
// passes it to fn. Iteration stops at the first error.
func ScanDB[T any](ctx context.Context, db kv.Database, dir string, fn func(key string, v *T) error) error {
	return kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		return walk(ctx, r, dir, func(key string, data io.Reader) error {
			v, err := decode[T](key, data)
			if err != nil {
				return err
			}
			return fn(key, v)
		})
	})
}

// PathRange returns the half-open key range holding every key under dir.
// The root directory selects the whole keyspace.
func PathRange(dir string) (begin, end string) {
	if dir = path.Clean(dir); dir == "/" {
		return "", ""
	}
	return dir + "/", dir + "0"
}
