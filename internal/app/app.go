package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/unipublish/backend/internal/config"
	"github.com/unipublish/backend/internal/db"
	"github.com/unipublish/backend/internal/handlers"
	"github.com/unipublish/backend/internal/httpserver"
	"github.com/unipublish/backend/internal/logging"
	"github.com/unipublish/backend/internal/middleware"
)

// Run bootstraps the UniPublish backend application.
func Run(ctx context.Context, args []string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unipublish",
		Short: "UniPublish backend",
		Long: `UniPublish generates per-platform video metadata with Gemini and publishes it
to Bilibili, Xiaohongshu, Douyin and Kuaishou.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|status|down]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "status", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) > 0 {
				command = args[0]
			}
			return runMigrations(cmd.Context(), cmd.OutOrStdout(), command)
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <name>",
		Short: "Load a seed file (e.g. dev) into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	var pool db.Pool
	if cfg.DatabaseURL != "" {
		pgPool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		pool = pgPool
	} else {
		logger.Warn("no database configured, publication log is kept in memory")
	}

	deps, cleanup, err := buildDependencies(ctx, pool, cfg, logger)
	if err != nil {
		return err
	}

	handler := newHandler(deps, cfg, logger)
	srv := httpserver.New(cfg.AppPort, handler, cfg.ServerTimeout)

	logger.Info("starting http server", "port", cfg.AppPort, "model", cfg.GeminiModel)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := cleanup(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown workflows: %w", err))
	}
	return runErr
}

func newHandler(deps handlers.Dependencies, cfg config.Config, logger *slog.Logger) http.Handler {
	router := mux.NewRouter()
	handlers.RegisterRoutes(router, deps)

	var handler http.Handler = router
	handler = handlers.CORS(cfg.AllowedOrigins)(handler)
	handler = middleware.RequestLogger(logger)(handler)
	return handler
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
