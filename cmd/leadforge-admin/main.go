// Command leadforge-admin is the operator CLI for the job system: inspect and
// cancel jobs, work the dead-letter queue, run migrations, and fire test
// alerts through the configured channels.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/internal/bootstrap"
	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/data"
	"github.com/leadforge/leadforge/internal/data/filestore"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultCommandTimeout = 2 * time.Minute

func main() {
	logger := bootstrap.InitLogger(false)

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"jobs": {
			name:        "jobs",
			description: "Inspect and manage jobs: jobs list|get|cancel",
			run:         runJobs,
		},
		"stats": {
			name:        "stats",
			description: "Show aggregate job counts by status and type",
			run:         runStats,
		},
		"dlq": {
			name:        "dlq",
			description: "Work the dead-letter queue: dlq list|retry|resolve",
			run:         runDLQ,
		},
		"migrate": {
			name:        "migrate",
			description: "Run database migrations (postgres backend only)",
			run:         runMigrate,
		},
		"alerts": {
			name:        "alerts",
			description: "Alert channel operations: alerts fire",
			run:         runAlerts,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: leadforge-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-12s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

// openStore opens the configured job store plus a closer for its backing
// connection. The memory backend operates on the snapshot file directly, so
// run those commands only while the worker is stopped.
func openStore(ctx context.Context, cmdCtx *commandContext) (core.JobStore, func() error, error) {
	cfg := &cmdCtx.Config
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := bootstrap.ConnectDB(cfg.Postgres, cmdCtx.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
		store := data.NewPostgresStore(db, data.StoreConfig{
			DefaultMaxAttempts: cfg.Queue.DefaultMaxAttempts,
			Logger:             cmdCtx.Logger,
		})
		return store, db.Close, nil

	case config.StoreBackendMemory:
		cmdCtx.Logger.WarnContext(ctx, "operating on the snapshot file directly, stop the worker first",
			"path", cfg.StorePath)
		store, err := filestore.Open(filestore.Config{
			Path:               cfg.StorePath,
			DefaultMaxAttempts: cfg.Queue.DefaultMaxAttempts,
			Logger:             cmdCtx.Logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		return store, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend: %q", cfg.StoreBackend)
	}
}

func runMigrate(cmdCtx *commandContext, _ []string) error {
	if cmdCtx.Config.StoreBackend != config.StoreBackendPostgres {
		return fmt.Errorf("migrate requires the postgres backend, configured backend is %q", cmdCtx.Config.StoreBackend)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
