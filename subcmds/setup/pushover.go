// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bvk/makerbot/config"
	"github.com/bvk/makerbot/pushover"
	"github.com/bvk/makerbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Pushover struct {
	dataDir     string
	configFile  string
	skipTesting bool

	appKey  string
	userKey string
}

func (c *Pushover) Purpose() string {
	return "Configures Pushover notifications"
}

func (c *Pushover) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("pushover", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.configFile, "config", "", "path to the config file (default: makerbot.yaml in the data directory)")
	fset.StringVar(&c.userKey, "user-key", "", "Pushover user key")
	fset.StringVar(&c.appKey, "app-key", "", "Pushover application key")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "pushover", fset, cli.CmdFunc(c.run)
}

func (c *Pushover) Description() string {
	return `

Command "pushover" saves the Pushover keys into the config file. Failed jobs
and low balances are notified to the user's devices.

  $ makerbot setup pushover --app-key=awja5ue...ito7svf --user-key=uscjs2...tvp4kv

`
}

func (c *Pushover) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	dataDir, err := cmdutil.DataDir(c.dataDir)
	if err != nil {
		return err
	}
	if len(c.configFile) == 0 {
		c.configFile = filepath.Join(dataDir, config.DefaultFile)
	}
	cfg, err := config.Read(c.configFile)
	if err != nil {
		return err
	}

	keys := &pushover.Keys{
		ApplicationKey: c.appKey,
		UserKey:        c.userKey,
	}
	client, err := pushover.New(keys, "", 10*time.Second)
	if err != nil {
		return err
	}
	if !c.skipTesting {
		if err := client.SendMessage(ctx, time.Now(), "Test message from makerbot setup; please ignore."); err != nil {
			return err
		}
	}

	cfg.Pushover.ApplicationKey = c.appKey
	cfg.Pushover.UserKey = c.userKey
	return config.Save(c.configFile, cfg)
}
