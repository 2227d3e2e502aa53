// Copyright (c) 2025 BVK Chaitanya

package trader

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type List struct {
	cmdutil.ClientFlags

	all bool
}

func (c *List) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.all, "all", false, "when true, stopped and failed jobs are also printed")
	return "list", fset, cli.CmdFunc(c.run)
}

func (c *List) Purpose() string {
	return "Prints trading jobs"
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	req := &api.ListRequest{All: c.all}
	resp, err := cmdutil.Post[api.ListResponse](ctx, &c.ClientFlags, api.ListPath, req)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "JobID\tAccount\tPair\tMode\tState\tPhase\tCycles\tUpdated\t\n")
	for _, j := range resp.Jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t\n", j.JobID, j.Account, j.Pair, j.Mode, j.State, j.Phase, j.Cycles, j.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
