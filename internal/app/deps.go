package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/unipublish/backend/internal/config"
	"github.com/unipublish/backend/internal/db"
	"github.com/unipublish/backend/internal/handlers"
	"github.com/unipublish/backend/internal/jobs"
	"github.com/unipublish/backend/internal/metadata"
	"github.com/unipublish/backend/internal/metrics"
	"github.com/unipublish/backend/internal/middleware"
	"github.com/unipublish/backend/internal/publish"
	"github.com/unipublish/backend/internal/repositories"
	"github.com/unipublish/backend/internal/sessions"
	"github.com/unipublish/backend/internal/storage"
	"github.com/unipublish/backend/internal/workflow"
)

const rateLimiterTTL = 10 * time.Minute

type publicationStore interface {
	workflow.PublicationRecorder
	handlers.PublicationLister
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background workflows.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	recorder := metrics.New()

	gemini, err := metadata.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}
	service := recorder.Instrument(metadata.NewCachingClient(gemini, cfg.AnalysisCacheTTL))
	publisher := publish.NewSimulated(cfg.PublishMinDelay, cfg.PublishMaxDelay)

	var store publicationStore
	if pool != nil {
		store = repositories.NewPostgresPublicationRepository(pool)
	} else {
		store = repositories.NewInMemoryPublicationRepository()
	}

	deps := handlers.Dependencies{
		Publications:   store,
		MaxUploadBytes: cfg.MaxVideoBytes,
		Metrics:        recorder.Handler(),
		HealthCheck:    healthCheck(pool),
	}

	if cfg.ObjectStore.Enabled() {
		archive, err := storage.NewVideoArchive(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("configure video archive: %w", err)
		}
		deps.Archive = archive
	}

	if cfg.GenerateRateLimit > 0 {
		deps.GenerateLimit = middleware.NewIPRateLimiter(cfg.GenerateRateLimit, cfg.GenerateRateWindow, cfg.GenerateRateBurst, rateLimiterTTL)
	}

	runner := jobs.NewRunner(jobs.Config{
		QueueSize: cfg.WorkflowQueueSize,
		Workers:   cfg.WorkflowWorkers,
		Timeout:   cfg.WorkflowTimeout,
		Observe:   recorder.ObserveJob,
	}, logger)
	deps.Runner = runner

	listeners := []workflow.Listener{recorder.Listener(), logTransitions(logger)}
	registry := sessions.NewRegistry(func(id string) *workflow.Controller {
		return workflow.New(workflow.Options{
			SessionID:     id,
			Service:       service,
			Publisher:     publisher,
			Recorder:      store,
			MaxVideoBytes: cfg.MaxVideoBytes,
			Listeners:     listeners,
		})
	}, cfg.SessionTTL)
	recorder.TrackSessions(registry.Len)
	deps.Sessions = registry

	return deps, runner.Shutdown, nil
}

func healthCheck(pool db.Pool) func(context.Context) error {
	if pool == nil {
		return nil
	}
	return func(ctx context.Context) error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return err
		}
		if conn == nil {
			return errors.New("database connection unavailable")
		}
		defer conn.Release()
		return conn.Ping(ctx)
	}
}

func logTransitions(logger *slog.Logger) workflow.Listener {
	return func(t workflow.Transition) {
		logger.Debug("platform status changed",
			"session_id", t.SessionID,
			"platform", t.Platform,
			"from", t.From,
			"to", t.To,
		)
	}
}
