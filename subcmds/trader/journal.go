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

type Journal struct {
	cmdutil.ClientFlags

	limit int
}

func (c *Journal) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("journal", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.IntVar(&c.limit, "limit", 20, "max number of recent operations to print; zero prints all")
	return "journal", fset, cli.CmdFunc(c.run)
}

func (c *Journal) Purpose() string {
	return "Prints the operations submitted by a trading job"
}

func (c *Journal) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (job id) argument")
	}

	req := &api.JournalRequest{JobID: args[0], Limit: c.limit}
	if err := req.Check(); err != nil {
		return err
	}
	resp, err := cmdutil.Post[api.JournalResponse](ctx, &c.ClientFlags, api.JournalPath, req)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "Time\tCycle\tKind\tOfferID\tAmount\tPrice\tAttempts\tResult\t\n")
	for _, e := range resp.Entries {
		result := e.ResultCode
		if len(e.Error) != 0 {
			result = e.Error
		} else if result == "" && e.Success {
			result = "ok"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%d\t%s\t\n", e.Time.Local().Format(time.DateTime), e.Cycle, e.Kind, e.OfferID, e.Amount, e.Price, e.Attempts, result)
	}
	return tw.Flush()
}
