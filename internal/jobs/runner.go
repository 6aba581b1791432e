package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unipublish/backend/internal/logging"
)

// ErrRunnerClosed is returned when enqueueing on a runner that has shut down.
var ErrRunnerClosed = errors.New("job runner closed")

// ErrQueueFull is returned when the queue has no room for another job.
var ErrQueueFull = errors.New("job queue full")

// Job is a unit of background work tied to a dashboard session.
type Job struct {
	Name      string
	SessionID string
	Run       func(ctx context.Context) error
}

// Config controls the concurrency characteristics of the runner.
type Config struct {
	QueueSize int
	Workers   int
	// Timeout bounds a single job. Zero disables the limit.
	Timeout time.Duration
	// Observe, when set, is called after every job with its outcome.
	Observe func(name string, elapsed time.Duration, err error)
}

// Runner executes workflows in the background so HTTP handlers can return
// before generation or publishing completes.
type Runner struct {
	logger  *slog.Logger
	timeout time.Duration
	observe func(name string, elapsed time.Duration, err error)

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	// runCtx is the parent of every job context. It is cancelled only when
	// Shutdown gives up waiting.
	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
	once      sync.Once
}

// NewRunner starts the worker pool.
func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	runCtx, runCancel := context.WithCancel(context.Background())
	r := &Runner{
		logger:    logger,
		timeout:   cfg.Timeout,
		observe:   cfg.Observe,
		jobs:      make(chan Job, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		runCtx:    runCtx,
		runCancel: runCancel,
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}
	return r
}

// Enqueue schedules job without blocking. A full queue is reported as
// ErrQueueFull so callers can surface back-pressure. Jobs without a SessionID
// inherit the one stored on ctx.
func (r *Runner) Enqueue(ctx context.Context, job Job) error {
	if job.Run == nil {
		return fmt.Errorf("enqueue %q: missing run function", job.Name)
	}
	if job.SessionID == "" {
		job.SessionID = logging.SessionIDFromContext(ctx)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrRunnerClosed
	default:
	}

	select {
	case r.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for in-flight ones to finish. Queued
// jobs that have not started are dropped. When ctx ends first, in-flight jobs
// are cancelled.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.cancel()
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		r.runCancel()
		return ctx.Err()
	case <-done:
		r.runCancel()
		return nil
	}
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case job := <-r.jobs:
			r.handle(job)
		}
	}
}

func (r *Runner) handle(job Job) {
	ctx := logging.WithLogger(r.runCtx, r.logger)
	if job.SessionID != "" {
		ctx = logging.WithSessionID(ctx, job.SessionID)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := logging.FromContext(ctx)
	start := time.Now()
	var err error
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %q panicked: %v", job.Name, rec)
			logger.Error("job panicked", "job", job.Name, "panic", rec)
		}
		if r.observe != nil {
			r.observe(job.Name, time.Since(start), err)
		}
	}()

	if err = job.Run(ctx); err != nil {
		logger.Error("job failed", "job", job.Name, "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("job completed", "job", job.Name, "duration", time.Since(start))
}
