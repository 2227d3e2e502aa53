// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bvk/makerbot/gobs"
	"github.com/bvk/makerbot/job"
)

// typeNameForKey guesses the value type from the key namespace.
func typeNameForKey(key string) string {
	switch {
	case strings.HasPrefix(key, job.Keyspace):
		return "JobRecord"
	case strings.HasPrefix(key, "/makerbot/telegram/"):
		return "TelegramState"
	}
	return ""
}

// decodeJSON gob-decodes the value as the named type and returns it in
// indented json form.
func decodeJSON(typename string, r io.Reader) ([]byte, error) {
	value, err := gobs.NewByTypename(typename)
	if err != nil {
		return nil, err
	}
	if err := gob.NewDecoder(r).Decode(value); err != nil {
		return nil, fmt.Errorf("could not gob-decode value as %s: %w", typename, err)
	}
	return json.MarshalIndent(value, "", "  ")
}

func hexOrJSON(key, typename string, data []byte) string {
	if typename == "" {
		typename = typeNameForKey(key)
	}
	if typename == "" {
		return fmt.Sprintf("%x", data)
	}
	js, err := decodeJSON(typename, bytes.NewReader(data))
	if err != nil {
		return fmt.Sprintf("%x", data)
	}
	return string(js)
}
