// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/makerbot/subcmds"
	"github.com/bvk/makerbot/subcmds/db"
	"github.com/bvk/makerbot/subcmds/setup"
	"github.com/bvk/makerbot/subcmds/trader"
	"github.com/visvasity/cli"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.List),
		new(db.Delete),
		new(db.Backup),
		new(db.Restore),
	}

	traderCmds := []cli.Command{
		new(trader.Start),
		new(trader.Stop),
		new(trader.Status),
		new(trader.List),
		new(trader.Watch),
		new(trader.Journal),
	}

	setupCmds := []cli.Command{
		new(setup.Telegram),
		new(setup.Pushover),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		cli.NewGroup("trader", "Start, stop and inspect trading jobs", traderCmds...),
		cli.NewGroup("db", "View/update database directly", dbCmds...),
		cli.NewGroup("setup", "Configure optional services", setupCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
