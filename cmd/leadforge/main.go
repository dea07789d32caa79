// Command leadforge runs the job worker and health monitor.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/leadforge/leadforge/internal/bootstrap"
	"github.com/leadforge/leadforge/internal/domain/model"
	"github.com/leadforge/leadforge/internal/queue"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}

	logger := bootstrap.InitLogger(cfg.IsDev)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &bootstrap.ServiceDeps{Config: &cfg, Logger: logger}); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, deps *bootstrap.ServiceDeps) error {
	logger := deps.Logger
	logger.InfoContext(ctx, "starting leadforge worker",
		"store_backend", deps.Config.StoreBackend,
		"concurrency", deps.Config.Queue.Concurrency,
		"rate_per_minute", deps.Config.Queue.RatePerMinute)

	services, err := bootstrap.NewServices(ctx, deps)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close services failed", "error", cerr)
		}
	}()

	registerHandlers(services.Queue, logger)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		services.Queue.Start(gctx)
		<-gctx.Done()
		services.Queue.Stop()
		return nil
	})

	group.Go(func() error {
		return services.Monitor.Run(gctx)
	})

	err = group.Wait()
	logger.InfoContext(ctx, "leadforge worker stopped")
	return err
}

// registerHandlers binds a handler to every pipeline job type. The real
// stage implementations live with the embedding application; until they are
// wired in, each type gets a placeholder that logs the dispatch and
// acknowledges the payload so jobs settle instead of dead-lettering.
func registerHandlers(q *queue.Queue, logger *slog.Logger) {
	for _, jt := range model.JobTypes() {
		q.RegisterHandler(jt, func(ctx context.Context, job *model.Job) (json.RawMessage, error) {
			logger.WarnContext(ctx, "placeholder handler acknowledged job",
				"job_id", job.ID,
				"job_type", job.Type)
			return json.RawMessage(`{"acknowledged":true}`), nil
		})
	}
	logger.Warn("pipeline stage handlers are placeholders, jobs settle without doing work",
		"types", len(model.JobTypes()))
}
