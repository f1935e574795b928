package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/clipd/internal/client"
	"github.com/hpungsan/clipd/internal/clipboard"
	"github.com/hpungsan/clipd/internal/config"
	"github.com/hpungsan/clipd/internal/dispatch"
	"github.com/hpungsan/clipd/internal/journal"
	"github.com/hpungsan/clipd/internal/mcp"
	"github.com/hpungsan/clipd/internal/metric"
	"github.com/hpungsan/clipd/internal/persist"
	"github.com/hpungsan/clipd/internal/prompt"
	"github.com/hpungsan/clipd/internal/protocol"
	"github.com/hpungsan/clipd/internal/server"
	"github.com/hpungsan/clipd/internal/store"
	"github.com/hpungsan/clipd/internal/watcher"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "clipd",
		Usage:   "Clipboard history daemon",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: $CLIPD_CONFIG, then ~/.config/clipd/config.json)",
			},
		},
		Commands: append([]*cli.Command{
			daemonCmd(),
			historyCmd(),
			mcpCmd(),
		}, clientCmds()...),
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// daemonCmd creates the daemon command.
func daemonCmd() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Run the clipboard daemon",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "headless", Usage: "Disable the interactive console"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Bool("headless") {
				off := false
				cfg.Interactive = &off
			}
			return runDaemon(c.Context, cfg, setupLogger(cfg))
		},
	}
}

// runDaemon wires the store, dispatcher, watcher, listeners, and console
// together and runs them until quit, a signal, or a component failure.
func runDaemon(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := store.New()
	metrics := metric.New()
	tracker := clipboard.Track(clipboard.System{})
	hub := server.NewHub(metrics, log.With("component", "events"))

	deps := dispatch.Deps{
		Store:     st,
		Clipboard: tracker,
		DB:        persist.File{Path: cfg.DBPath},
		Announcer: hub,
		Metrics:   metrics,
		Log:       log.With("component", "dispatch"),
	}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		deps.Journal = j
	}
	d := dispatch.New(deps)

	raw, err := server.NewRaw(cfg.RawAddr(), d, log.With("component", "raw"))
	if err != nil {
		return err
	}
	web := server.NewHTTP(server.HTTPConfig{
		Addr:       cfg.HTTPAddr(),
		Dispatcher: d,
		Metrics:    metrics,
		Hub:        hub,
		Version:    Version,
		Log:        log.With("component", "http"),
	})
	watch := watcher.New(watcher.Config{
		Device:   tracker,
		Tracker:  tracker,
		Sink:     d,
		Interval: cfg.PollInterval(),
		Log:      log.With("component", "watcher"),
	})

	log.Info("daemon starting",
		"version", Version,
		"raw_addr", cfg.RawAddr(),
		"http_addr", cfg.HTTPAddr(),
		"db_path", cfg.DBPath,
		"journal", cfg.JournalPath != "",
		"interactive", cfg.InteractiveEnabled())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A clean quit returns nil, which would leave the group running;
		// every other component stops when the dispatcher does.
		defer cancel()
		return ignoreCancel(d.Run(gctx))
	})
	g.Go(func() error { return ignoreCancel(raw.Run(gctx)) })
	g.Go(func() error { return ignoreCancel(web.Run(gctx)) })
	g.Go(func() error { return ignoreCancel(watch.Run(gctx)) })
	if cfg.InteractiveEnabled() && isTerminal() {
		g.Go(func() error {
			p := prompt.New(prompt.Config{
				Submitter: d,
				Log:       log.With("component", "console"),
			})
			return ignoreCancel(p.Run(gctx))
		})
	}

	werr := g.Wait()

	if cfg.DBPath != "" {
		db := persist.File{Path: cfg.DBPath}
		if saveErr := db.Save(st.Snapshot()); saveErr != nil {
			log.Error("shutdown save failed", "error", saveErr)
		} else {
			log.Info("history saved", "path", cfg.DBPath, "entries", st.Len())
		}
	}

	log.Info("daemon stopped")
	return werr
}

// ignoreCancel maps context cancellation to a clean exit; stopping on a
// signal or on quit is not a failure.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// historyCmd creates the history command.
func historyCmd() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent captures from the journal",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: journal.DefaultRecent, Usage: "Maximum captures to list"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Filter by source: sync|add|insert|load"},
			&cli.BoolFlag{Name: "json", Usage: "Print captures as JSON"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.JournalPath == "" {
				return cli.Exit("history requires journal_path in the config", 1)
			}

			j, err := journal.Open(cfg.JournalPath)
			if err != nil {
				return err
			}
			defer j.Close()

			captures, err := j.Recent(c.String("source"), c.Int("limit"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return outputJSON(captures)
			}
			for _, capture := range captures {
				fmt.Printf("%s  %-6s  %s\n",
					capture.CreatedAt.Local().Format("02-01-2006 15:04:05"),
					capture.Source,
					protocol.Shorten(capture.Value, protocol.DefaultPreview))
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve clipboard tools over MCP stdio, bridging to a running daemon",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log := setupLogger(cfg)
			if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
				log.Warn("ignoring unknown disabled tools", "tools", unknown)
			}
			daemon := client.NewHTTP("http://" + cfg.HTTPAddr())
			return mcp.Run(daemon, cfg, Version)
		},
	}
}

// loadConfig resolves the configuration for a CLI invocation, honoring the
// global --config flag.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// setupLogger builds the process logger from the config. CLIPD_DEBUG=1
// forces debug regardless of the configured level.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv("CLIPD_DEBUG") == "1" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(h)
}
