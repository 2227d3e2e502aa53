// Copyright (c) 2025 BVK Chaitanya

package daemonize

import "testing"

func TestIsChild(t *testing.T) {
	const key = "TEST_MAKERBOT_DAEMONIZE"
	t.Setenv(key, "")
	if IsChild(key) {
		t.Fatalf("wanted parent process with empty %s", key)
	}
	t.Setenv(key, "1234")
	if !IsChild(key) {
		t.Fatalf("wanted child process with %s set", key)
	}
}
