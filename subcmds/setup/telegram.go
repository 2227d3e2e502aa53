// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bvk/makerbot/config"
	"github.com/bvk/makerbot/ctxutil"
	"github.com/bvk/makerbot/subcmds/cmdutil"
	"github.com/bvk/makerbot/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Telegram struct {
	dataDir     string
	configFile  string
	skipTesting bool

	ownerID  string
	botToken string
}

func (c *Telegram) Purpose() string {
	return "Configures Telegram notifications and commands"
}

func (c *Telegram) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("telegram", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.configFile, "config", "", "path to the config file (default: makerbot.yaml in the data directory)")
	fset.StringVar(&c.ownerID, "owner-id", "", "Owner's telegram user id")
	fset.StringVar(&c.botToken, "bot-token", "", "Telegram bot's authentication token")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "telegram", fset, cli.CmdFunc(c.run)
}

func (c *Telegram) Description() string {
	return `

Command "telegram" saves the Telegram bot parameters into the config file.
When configured, failed jobs and low balances are notified to the owner and
the owner can list and stop jobs through the bot.

  $ makerbot setup telegram --owner-id=username --bot-token=USCJS2...TVP4KV

`
}

func (c *Telegram) run(ctx context.Context, args []string) error {
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

	secrets := &telegram.Secrets{
		OwnerID:  c.ownerID,
		BotToken: c.botToken,
		OtherIDs: cfg.Telegram.OtherIDs,
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		if err := waitForKey("Start a chat with telegram bot and then press any key"); err != nil {
			return err
		}

		// Authenticate with telegram to validate the token.
		client, err := telegram.New(ctx, kvmemdb.New(), secrets)
		if err != nil {
			return err
		}
		defer client.Close()

		// Chat id is learned only after the bot polls the user's first message.
		send := func() error {
			return client.SendMessage(ctx, time.Now(), "Test message from makerbot setup; please ignore.")
		}
		if err := ctxutil.RetryTimeout(ctx, time.Second, 30*time.Second, send); err != nil {
			return err
		}
	}

	cfg.Telegram.OwnerID = c.ownerID
	cfg.Telegram.BotToken = c.botToken
	return config.Save(c.configFile, cfg)
}

func waitForKey(prompt string) error {
	fmt.Println(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, oldState)
	}

	b := make([]byte, 1)
	if _, err := os.Stdin.Read(b); err != nil {
		return fmt.Errorf("could not read from stdin: %w", err)
	}
	return nil
}
