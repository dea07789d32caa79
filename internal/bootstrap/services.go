package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/internal/alerting"
	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/data"
	"github.com/leadforge/leadforge/internal/data/filestore"
	"github.com/leadforge/leadforge/internal/monitor"
	"github.com/leadforge/leadforge/internal/observability/statsd"
	"github.com/leadforge/leadforge/internal/queue"
)

// ServiceDeps groups the external inputs for service construction.
type ServiceDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger

	// Mailer delivers alert email. Nil disables the email channel even when
	// it is enabled in config.
	Mailer alerting.Mailer
}

// Services holds the wired application runtime.
type Services struct {
	Store   core.JobStore
	Alerts  *alerting.Manager
	Queue   *queue.Queue
	Monitor *monitor.Monitor
	Metrics statsd.Sink

	closers []func() error
}

// NewServices wires the store, alert manager, queue, and monitor from config.
// Call Close when done to release connections.
func NewServices(ctx context.Context, deps *ServiceDeps) (*Services, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps require a config")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Services{}

	sink, err := buildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		s.Metrics = sink
		s.closers = append(s.closers, sink.Close)
	}

	store, err := s.openStore(ctx, cfg, logger)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	s.Store = store

	limiter, err := s.buildRateLimiter(cfg, logger)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	channels, err := BuildAlertChannels(&cfg.Alerting, logger, deps.Mailer)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	s.Alerts = alerting.NewManager(alerting.Options{
		Channels:       channels,
		Logger:         logger,
		Metrics:        s.Metrics,
		RecentCapacity: cfg.Alerting.RecentCapacity,
	})

	q, err := queue.New(queue.Options{
		Store:           store,
		Alerts:          s.Alerts,
		Logger:          logger,
		Metrics:         s.Metrics,
		RateLimiter:     limiter,
		RatePerMinute:   cfg.Queue.RatePerMinute,
		Concurrency:     cfg.Queue.Concurrency,
		ExecTimeout:     cfg.Queue.ExecTimeout,
		TickInterval:    cfg.Queue.TickInterval,
		Retention:       cfg.Queue.Retention,
		CleanupInterval: cfg.Queue.CleanupInterval,
		CleanupBatch:    cfg.Queue.CleanupBatch,
		WorkerID:        cfg.Queue.WorkerID,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("build queue: %w", err), s.Close())
	}
	s.Queue = q

	mon, err := monitor.New(monitor.Options{
		Store:  store,
		Alerts: s.Alerts,
		Config: monitor.Config{
			Interval:             cfg.Monitor.Interval,
			StuckThreshold:       cfg.Monitor.StuckThreshold,
			DLQThreshold:         cfg.Monitor.DLQThreshold,
			BacklogWarning:       cfg.Monitor.BacklogWarning,
			BacklogCritical:      cfg.Monitor.BacklogCritical,
			HeapWarningRatio:     cfg.Monitor.HeapWarningRatio,
			HeapCriticalRatio:    cfg.Monitor.HeapCriticalRatio,
			FailureRateThreshold: cfg.Monitor.FailureRateThreshold,
			FailureRateMinSample: cfg.Monitor.FailureRateMinSample,
		},
		Logger:  logger,
		Metrics: s.Metrics,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("build monitor: %w", err), s.Close())
	}
	s.Monitor = mon

	return s, nil
}

// Close releases connections in reverse construction order.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Services) openStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (core.JobStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := ConnectDB(cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		s.closers = append(s.closers, db.Close)

		if cfg.Postgres.RunMigrationsOnStart {
			if err := RunMigrations(ctx, db, logger); err != nil {
				return nil, err
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}

		return data.NewPostgresStore(db, data.StoreConfig{
			DefaultMaxAttempts: cfg.Queue.DefaultMaxAttempts,
			Logger:             logger,
		}), nil

	case config.StoreBackendMemory:
		store, err := filestore.Open(filestore.Config{
			Path:               cfg.StorePath,
			DefaultMaxAttempts: cfg.Queue.DefaultMaxAttempts,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.StoreBackend)
	}
}

// buildRateLimiter returns the shared Redis limiter when Redis is enabled,
// or nil so the queue falls back to its local sliding window.
func (s *Services) buildRateLimiter(cfg *config.AppConfig, logger *slog.Logger) (queue.RateLimiter, error) {
	if !cfg.Redis.Enabled || cfg.Queue.RatePerMinute <= 0 {
		return nil, nil
	}

	client, err := ConnectRedis(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	s.closers = append(s.closers, client.Close)

	return queue.NewRedisRateLimiter(client, cfg.Redis.RateKey, cfg.Queue.RatePerMinute, time.Minute), nil
}

func buildMetrics(cfg config.MetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build statsd client: %w", err)
	}
	return client, nil
}

// BuildAlertChannels assembles the delivery channels enabled in config. The
// console channel is always present; email joins only when a mailer is
// supplied.
func BuildAlertChannels(cfg *config.AlertingConfig, logger *slog.Logger, mailer alerting.Mailer) ([]alerting.Channel, error) {
	channels := []alerting.Channel{
		alerting.NewConsoleChannel(logger, cfg.ConsoleMinSeverity),
	}

	if cfg.Email.Enabled && mailer != nil {
		ch, err := alerting.NewEmailChannel(alerting.EmailChannelConfig{
			Mailer:      mailer,
			Recipients:  cfg.Email.Recipients,
			MinSeverity: cfg.Email.MinSeverity,
			Limiter:     rate.NewLimiter(rate.Every(cfg.Email.MinInterval), 2),
		})
		if err != nil {
			return nil, fmt.Errorf("build email channel: %w", err)
		}
		channels = append(channels, ch)
	}

	if cfg.Webhook.Enabled {
		ch, err := alerting.NewWebhookChannel(alerting.WebhookChannelConfig{
			URL:         cfg.Webhook.URL,
			Secret:      cfg.Webhook.Secret,
			MinSeverity: cfg.Webhook.MinSeverity,
			Timeout:     cfg.Webhook.Timeout,
			RetryLimit:  cfg.Webhook.RetryLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("build webhook channel: %w", err)
		}
		channels = append(channels, ch)
	}

	if cfg.Slack.Enabled {
		ch, err := alerting.NewSlackChannel(alerting.SlackChannelConfig{
			WebhookURL:  cfg.Slack.WebhookURL,
			Channel:     cfg.Slack.Channel,
			Username:    cfg.Slack.Username,
			MinSeverity: cfg.Slack.MinSeverity,
			Timeout:     cfg.Slack.Timeout,
			RetryLimit:  cfg.Slack.RetryLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("build slack channel: %w", err)
		}
		channels = append(channels, ch)
	}

	return channels, nil
}
