// Copyright (c) 2025 BVK Chaitanya

package trader

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/subcmds/cmdutil"
	"github.com/gorilla/websocket"
	"github.com/visvasity/cli"
)

type Watch struct {
	cmdutil.ClientFlags
}

func (c *Watch) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("watch", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "watch", fset, cli.CmdFunc(c.run)
}

func (c *Watch) Purpose() string {
	return "Prints job state changes and cycle results as they happen"
}

func (c *Watch) Description() string {
	return `

Command "watch" streams the events of all trading jobs until it is
interrupted. An optional job id argument limits the stream to one job.

`
}

func (c *Watch) run(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("this command takes at most one (job id) argument")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	query := make(url.Values)
	if len(args) == 1 {
		query.Set("job", args[0])
	}
	conn, err := cmdutil.Dial(ctx, &c.ClientFlags, api.WatchPath, query)
	if err != nil {
		return err
	}
	defer conn.Close()

	context.AfterFunc(ctx, func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	})

	for {
		event := new(api.WatchEvent)
		if err := conn.ReadJSON(event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var cerr *websocket.CloseError
			if errors.As(err, &cerr) {
				return fmt.Errorf("server closed the stream: %s", cerr.Text)
			}
			return err
		}
		fmt.Println(formatEvent(event))
	}
}

func formatEvent(e *api.WatchEvent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s", e.Time.Local().Format(time.DateTime), e.JobID, e.State)
	if len(e.Phase) != 0 {
		fmt.Fprintf(&sb, " phase=%s", e.Phase)
	}
	if len(e.Cause) != 0 {
		fmt.Fprintf(&sb, " cause=%q", e.Cause)
	}
	if e.Cycle != nil {
		fmt.Fprintf(&sb, " cycle=%d intents=%d operations=%d", e.Cycle.Cycle, len(e.Cycle.Intents), len(e.Cycle.Operations))
		if len(e.Cycle.Error) != 0 {
			fmt.Fprintf(&sb, " error=%q", e.Cycle.Error)
		}
	}
	return sb.String()
}
