// Copyright (c) 2025 BVK Chaitanya

package trader

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Stop struct {
	cmdutil.ClientFlags
}

func (c *Stop) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("stop", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "stop", fset, cli.CmdFunc(c.run)
}

func (c *Stop) Purpose() string {
	return "Stops a running trading job"
}

func (c *Stop) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (job id) argument")
	}

	req := &api.StopRequest{JobID: args[0]}
	resp, err := cmdutil.Post[api.StopResponse](ctx, &c.ClientFlags, api.StopPath, req)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", args[0], resp.State)
	return nil
}
