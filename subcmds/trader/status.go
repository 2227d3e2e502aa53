// Copyright (c) 2025 BVK Chaitanya

package trader

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) Purpose() string {
	return "Prints the status of a trading job"
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (job id) argument")
	}

	req := &api.StatusRequest{JobID: args[0]}
	resp, err := cmdutil.Post[api.StatusResponse](ctx, &c.ClientFlags, api.StatusPath, req)
	if err != nil {
		return err
	}
	jsdata, _ := json.MarshalIndent(resp.Status, "", "  ")
	fmt.Printf("%s\n", jsdata)
	return nil
}
