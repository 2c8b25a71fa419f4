package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdem-table/internal/coordinator"
)

var CLI struct {
	Config        string `short:"c" default:"holdem-table.hcl" help:"Path to HCL configuration file"`
	Host          string `short:"H" help:"Bind host (overrides config)"`
	Port          int    `short:"p" default:"-1" help:"Bind port (overrides config)"`
	Seats         int    `default:"-1" help:"Seats at the table (overrides config)"`
	StartingStack int    `default:"-1" help:"Starting stack in chips (overrides config)"`
	SmallBlind    int    `default:"-1" help:"Small blind (overrides config)"`
	BigBlind      int    `default:"-1" help:"Big blind (overrides config)"`
	MoveTimeMs    int64  `default:"-1" help:"Per-decision deadline in milliseconds; 0 waits for an operator skip (overrides config)"`
	LogLevel      string `short:"l" help:"Log level: debug, info, warn, error (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := coordinator.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		kctx.Exit(1)
	}
	applyOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	session, err := coordinator.NewTableSession(cfg.TableConfig(), logger, quartz.NewReal())
	if err != nil {
		logger.Error("failed to create table", "error", err)
		kctx.Exit(1)
	}
	server := coordinator.NewServer(session, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting table server",
		"addr", cfg.Address(),
		"table", session.ID,
		"variant", cfg.Table.Variant,
		"stakes", fmt.Sprintf("%d/%d", cfg.Table.SmallBlind, cfg.Table.BigBlind),
		"seats", cfg.Table.Seats)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Run(ctx)
	})
	g.Go(func() error {
		return server.Start(cfg.Address())
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", "error", err)
		kctx.Exit(1)
	}
	logger.Info("server stopped")
}

// applyOverrides layers any command-line flags the operator set over the
// loaded (or default) configuration. -1 / empty means "not set".
func applyOverrides(cfg *coordinator.ServerConfig) {
	if CLI.Host != "" {
		cfg.Server.Address = CLI.Host
	}
	if CLI.Port >= 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.Seats >= 0 {
		cfg.Table.Seats = CLI.Seats
	}
	if CLI.StartingStack >= 0 {
		cfg.Table.StartingStack = CLI.StartingStack
	}
	if CLI.SmallBlind >= 0 {
		cfg.Table.SmallBlind = CLI.SmallBlind
	}
	if CLI.BigBlind >= 0 {
		cfg.Table.BigBlind = CLI.BigBlind
	}
	if CLI.MoveTimeMs >= 0 {
		cfg.Table.MoveTimeMs = CLI.MoveTimeMs
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
}
