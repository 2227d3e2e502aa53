// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"context"
	"io"
	"os"

	"github.com/visvasity/cli"
)

// Stdout returns the command output writer from the context, which defaults
// to the process standard output.
func Stdout(ctx context.Context) io.Writer {
	if w := cli.Stdout(ctx); w != nil {
		return w
	}
	return os.Stdout
}
