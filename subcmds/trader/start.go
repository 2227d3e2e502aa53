// Copyright (c) 2025 BVK Chaitanya

package trader

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/subcmds/cmdutil"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Start struct {
	cmdutil.ClientFlags

	secretEnv string

	strategy      string
	mode          string
	fraction      string
	spread        string
	tolerance     string
	maxVolatility string
	nativeReserve string
	minAmount     string
	cancelOnStop  bool
}

func (c *Start) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("start", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.secretEnv, "secret-env", "", "name of the environment variable with the account secret (default: read from the terminal)")
	fset.StringVar(&c.strategy, "strategy", "marketmaker", "name of the strategy")
	fset.StringVar(&c.mode, "mode", "bid", "bid or ask")
	fset.StringVar(&c.fraction, "fraction", "", "fraction of the available balance to offer")
	fset.StringVar(&c.spread, "spread", "", "price spread from the reference price")
	fset.StringVar(&c.tolerance, "tolerance", "", "relative drift before an offer is amended")
	fset.StringVar(&c.maxVolatility, "max-volatility", "", "relative price range of recent trades to hold updates")
	fset.StringVar(&c.nativeReserve, "native-reserve", "", "native balance to keep aside for reserves and fees")
	fset.StringVar(&c.minAmount, "min-amount", "", "minimum offer amount")
	fset.BoolVar(&c.cancelOnStop, "cancel-on-stop", false, "when true, offers are canceled when the job is stopped")
	return "start", fset, cli.CmdFunc(c.run)
}

func (c *Start) Purpose() string {
	return "Starts a trading job for an account"
}

func (c *Start) Description() string {
	return `

Command "start" takes two (selling and buying asset) arguments and starts a
trading job for the account of the secret. Assets are written as "native" or
"CODE:ISSUER". Unset strategy parameters take the server side defaults.

  $ makerbot trader start -mode=bid native USD:GDUKMGUG...

Secret is read from the terminal without echo unless the -secret-env flag is
used.

`
}

func (c *Start) run(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("this command takes two (selling and buying asset) arguments")
	}

	strategy := &api.Strategy{
		Name:         c.strategy,
		Mode:         c.mode,
		Selling:      args[0],
		Buying:       args[1],
		CancelOnStop: c.cancelOnStop,
	}
	params := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"fraction", c.fraction, &strategy.Fraction},
		{"spread", c.spread, &strategy.Spread},
		{"tolerance", c.tolerance, &strategy.Tolerance},
		{"max-volatility", c.maxVolatility, &strategy.MaxVolatility},
		{"native-reserve", c.nativeReserve, &strategy.NativeReserve},
		{"min-amount", c.minAmount, &strategy.MinAmount},
	}
	for _, p := range params {
		if len(p.value) == 0 {
			continue
		}
		v, err := decimal.NewFromString(p.value)
		if err != nil {
			return fmt.Errorf("invalid -%s value %q: %w", p.name, p.value, err)
		}
		*p.dst = v
	}

	secret, err := c.readSecret()
	if err != nil {
		return err
	}

	req := &api.StartRequest{
		Secret:   secret,
		Strategy: strategy,
	}
	if err := req.Check(); err != nil {
		return err
	}
	resp, err := cmdutil.Post[api.StartResponse](ctx, &c.ClientFlags, api.StartPath, req)
	if err != nil {
		return err
	}
	jsdata, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Printf("%s\n", jsdata)
	return nil
}

func (c *Start) readSecret() (string, error) {
	if len(c.secretEnv) != 0 {
		v := os.Getenv(c.secretEnv)
		if len(v) == 0 {
			return "", fmt.Errorf("environment variable %q is empty: %w", c.secretEnv, os.ErrInvalid)
		}
		return v, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && len(line) == 0 {
			return "", fmt.Errorf("could not read secret from stdin: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, "Account secret: ")
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("could not read secret from the terminal: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
