// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/bvk/makerbot/config"
	"github.com/bvk/makerbot/ctxutil"
	"github.com/bvk/makerbot/daemonize"
	"github.com/bvk/makerbot/horizon"
	"github.com/bvk/makerbot/httputil"
	"github.com/bvk/makerbot/job"
	"github.com/bvk/makerbot/journal"
	"github.com/bvk/makerbot/ledger"
	"github.com/bvk/makerbot/ledger/ledgerobs"
	"github.com/bvk/makerbot/ledger/memledger"
	"github.com/bvk/makerbot/pushover"
	"github.com/bvk/makerbot/server"
	"github.com/bvk/makerbot/subcmds/cmdutil"
	"github.com/bvk/makerbot/telegram"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type Run struct {
	cmdutil.ServerFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof  bool
	simulate bool
	trace    bool
	logDir   string

	configFile string
	dataDir    string
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the service in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.simulate, "simulate", false, "when true, trades against an in-memory ledger seeded from the config file")
	fset.BoolVar(&c.trace, "trace", false, "when true, ledger calls are traced into a file in the data directory")
	fset.StringVar(&c.logDir, "log-dir", "", "when non-empty, log messages are written to files in this directory")
	fset.StringVar(&c.configFile, "config", "", "path to the config file (default: makerbot.yaml in the data directory)")
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the makerbot service in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts the makerbot service. Service restores the job records
from the database and serves the trader api. Jobs that were active when the
previous instance exited are marked stopped and must be started again.

CONFIG FILE

Service reads the makerbot.yaml file from the data directory. Environment
variables in the .env file of the data directory are loaded before the config
file is read, so secrets like MAKERBOT_TELEGRAM_TOKEN can be kept out of the
config file.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := cmdutil.DataDir(c.dataDir)
	if err != nil {
		return err
	}

	addr, err := c.ServerFlags.TCPAddr()
	if err != nil {
		return err
	}

	if c.background {
		check := func(ctx context.Context, pid int) error {
			return checkPid(ctx, addr, pid)
		}
		if err := daemonize.Daemonize(ctx, "MAKERBOT_DAEMONIZE", check); err != nil {
			return err
		}
	}

	if len(c.logDir) != 0 {
		if err := os.MkdirAll(c.logDir, 0700); err != nil {
			return fmt.Errorf("could not create log directory %q: %w", c.logDir, err)
		}
		backend := sglog.NewBackend(&sglog.Options{
			LogDirs:              []string{c.logDir},
			LogFileReuseDuration: time.Hour,
		})
		defer backend.Close()
		slog.SetDefault(slog.New(backend.Handler()))
	}

	envFile := filepath.Join(dataDir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not load environment file %q: %w", envFile, err)
	}
	if len(c.configFile) == 0 {
		c.configFile = filepath.Join(dataDir, config.DefaultFile)
	}
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	slog.Info("using data directory and config file", "data-dir", dataDir, "config", c.configFile)

	flock, err := c.lock(ctx, dataDir)
	if err != nil {
		return err
	}
	defer flock.Unlock()

	if c.trace {
		shutdown, err := startTracing(ctx, filepath.Join(dataDir, "trace.json"))
		if err != nil {
			return err
		}
		defer shutdown()
	}

	client, err := c.ledgerClient(cfg)
	if err != nil {
		return err
	}

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	bopts := badger.DefaultOptions(filepath.Join(dataDir, "db")).WithLogger(nil)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, cmdutil.IsGoodKey)

	s.AddHandler("/db/", http.StripPrefix("/db", kvhttp.Handler(db)))

	jrnl, err := journal.Open(ctx, filepath.Join(dataDir, cfg.JournalFile))
	if err != nil {
		return err
	}
	defer jrnl.Close()

	var cg ctxutil.CloseGroup
	defer cg.Close()

	registry, err := job.New(client, db, &job.Options{Bot: *cfg.BotOptions()})
	if err != nil {
		return err
	}
	// Registry is closed before the journal and the database so that final
	// job states are saved and recorded.
	defer registry.Close()

	if err := registry.Load(ctx); err != nil {
		return err
	}

	cg.Go(func(ctx context.Context) {
		if err := jrnl.Watch(ctx, registry); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("journal has stopped recording cycles", "err", err)
		}
	})

	trader, err := server.New(registry, jrnl, nil /* opts */)
	if err != nil {
		return err
	}
	defer trader.Close()

	var notifiers server.Notifiers
	if tclient, err := c.startTelegram(ctx, db, cfg, trader); err != nil {
		return err
	} else if tclient != nil {
		defer tclient.Close()
		notifiers = append(notifiers, tclient)
	}
	if len(cfg.Pushover.ApplicationKey) != 0 {
		keys := &pushover.Keys{
			ApplicationKey: cfg.Pushover.ApplicationKey,
			UserKey:        cfg.Pushover.UserKey,
		}
		pclient, err := pushover.New(keys, "", 10*time.Second)
		if err != nil {
			return fmt.Errorf("could not create pushover client: %w", err)
		}
		notifiers = append(notifiers, pclient)
		slog.Info("pushover notifications are enabled")
	}
	if len(notifiers) != 0 {
		if err := trader.StartAlerts(notifiers); err != nil {
			return err
		}
	}

	// Add trader api handlers
	traderAPIs := trader.HandlerMap()
	s.AddHandlerMap(traderAPIs)
	defer func() {
		for k := range traderAPIs {
			s.RemoveHandler(k)
		}
	}()

	slog.Info("started makerbot server", "addr", addr, "simulate", c.simulate, "network", cfg.Horizon.Network)
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, strconv.Itoa(os.Getpid()))
	}))

	<-ctx.Done()
	slog.Info("makerbot server is shutting down")
	return nil
}

// checkPid verifies that the server at addr is the process with the pid and
// not an older instance.
func checkPid(ctx context.Context, addr *net.TCPAddr, pid int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/pid", addr), nil)
	if err != nil {
		return err
	}
	client := http.Client{Timeout: time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if v := string(data); v != strconv.Itoa(pid) {
		return fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", pid, v)
	}
	return nil
}

func (c *Run) lock(ctx context.Context, dataDir string) (*lockfile.Lockfile, error) {
	lockPath := filepath.Join(dataDir, "makerbot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return nil, fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return nil, fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return nil, fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.Info("waiting for the previous instance to shutdown", "pid", owner.Pid)
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return nil, fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return nil, fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	return &flock, nil
}

func (c *Run) ledgerClient(cfg *config.Config) (ledger.Client, error) {
	var client ledger.Client
	if c.simulate {
		if cfg.Simulation == nil {
			return nil, fmt.Errorf("simulation section is required in the config file with -simulate flag: %w", os.ErrInvalid)
		}
		mem := memledger.New()
		if err := cfg.Simulation.Seed(mem); err != nil {
			return nil, err
		}
		client = mem
	} else {
		passphrase, err := horizon.Passphrase(cfg.Horizon.Network)
		if err != nil {
			return nil, err
		}
		hc, err := horizon.New(&horizon.Options{
			URL:               cfg.Horizon.URL,
			Passphrase:        passphrase,
			HttpClientTimeout: cfg.Horizon.Timeout,
			RequestsPerSecond: cfg.Horizon.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		client = hc
	}
	return ledgerobs.Wrap(client), nil
}

func (c *Run) startTelegram(ctx context.Context, db kv.Database, cfg *config.Config, trader *server.Server) (_ *telegram.Client, status error) {
	if len(cfg.Telegram.BotToken) == 0 {
		return nil, nil
	}
	secrets := &telegram.Secrets{
		BotToken: cfg.Telegram.BotToken,
		OwnerID:  cfg.Telegram.OwnerID,
		OtherIDs: cfg.Telegram.OtherIDs,
	}
	tclient, err := telegram.New(ctx, db, secrets)
	if err != nil {
		return nil, fmt.Errorf("could not create telegram client: %w", err)
	}
	defer func() {
		if status != nil {
			tclient.Close()
		}
	}()

	if err := trader.AddTelegramCommands(ctx, tclient); err != nil {
		return nil, err
	}
	slog.Info("telegram notifications are enabled", "bot", tclient.BotUserName(), "owner", tclient.OwnerUserName())
	return tclient, nil
}

// startTracing installs a tracer provider that writes spans as json into the
// file.
func startTracing(ctx context.Context, file string) (func(), error) {
	fp, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("could not open trace file %q: %w", file, err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(fp))
	if err != nil {
		fp.Close()
		return nil, fmt.Errorf("could not create trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName("makerbot")))
	if err != nil {
		fp.Close()
		return nil, fmt.Errorf("could not create trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(sctx); err != nil {
			slog.Warn("could not flush trace spans (ignored)", "err", err)
		}
		fp.Close()
	}
	return shutdown, nil
}
