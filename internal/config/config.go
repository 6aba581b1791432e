package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ObjectStoreConfig describes the S3-compatible bucket used to archive uploads.
type ObjectStoreConfig struct {
	Bucket        string
	Endpoint      string
	Region        string
	PublicBaseURL string
}

// Enabled reports whether a bucket has been configured.
func (c ObjectStoreConfig) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

// Config captures the runtime configuration for the UniPublish backend service.
type Config struct {
	Environment  string
	AppPort      int
	DatabaseURL  string
	MigrationDir string
	SeedDir      string
	LogLevel     string

	GeminiAPIKey     string
	GeminiModel      string
	AnalysisCacheTTL time.Duration
	MaxVideoBytes    int64

	PublishMinDelay time.Duration
	PublishMaxDelay time.Duration

	WorkflowWorkers   int
	WorkflowQueueSize int
	WorkflowTimeout   time.Duration
	SessionTTL        time.Duration

	GenerateRateLimit  int
	GenerateRateWindow time.Duration
	GenerateRateBurst  int

	AllowedOrigins []string
	ServerTimeout  time.Duration

	ObjectStore ObjectStoreConfig
}

// Load reads configuration from environment variables, applying defaults for
// local development. Outside production a .env file in the working directory
// is loaded first; variables already set in the environment win.
func Load() (Config, error) {
	env := getString("UNIPUBLISH_ENV", "development")
	if env != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := Config{
		Environment:  env,
		AppPort:      getInt("UNIPUBLISH_PORT", 8080),
		DatabaseURL:  getString("UNIPUBLISH_DATABASE_URL", ""),
		MigrationDir: getString("UNIPUBLISH_MIGRATIONS", "migrations"),
		SeedDir:      getString("UNIPUBLISH_SEEDS", "seeds"),
		LogLevel:     getString("UNIPUBLISH_LOG_LEVEL", "info"),

		GeminiAPIKey:     firstNonEmpty("UNIPUBLISH_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"),
		GeminiModel:      getString("UNIPUBLISH_GEMINI_MODEL", "gemini-3-flash-preview"),
		AnalysisCacheTTL: getDuration("UNIPUBLISH_ANALYSIS_CACHE_TTL", 30*time.Minute),
		MaxVideoBytes:    int64(getInt("UNIPUBLISH_MAX_VIDEO_BYTES", 0)),

		PublishMinDelay: getDuration("UNIPUBLISH_PUBLISH_MIN_DELAY", 1500*time.Millisecond),
		PublishMaxDelay: getDuration("UNIPUBLISH_PUBLISH_MAX_DELAY", 3500*time.Millisecond),

		WorkflowWorkers:   getInt("UNIPUBLISH_WORKFLOW_WORKERS", 4),
		WorkflowQueueSize: getInt("UNIPUBLISH_WORKFLOW_QUEUE", 32),
		WorkflowTimeout:   getDuration("UNIPUBLISH_WORKFLOW_TIMEOUT", 5*time.Minute),
		SessionTTL:        getDuration("UNIPUBLISH_SESSION_TTL", 2*time.Hour),

		GenerateRateLimit:  getInt("UNIPUBLISH_GENERATE_RATE_LIMIT", 10),
		GenerateRateWindow: getDuration("UNIPUBLISH_GENERATE_RATE_WINDOW", time.Minute),
		GenerateRateBurst:  getInt("UNIPUBLISH_GENERATE_RATE_BURST", 3),

		AllowedOrigins: getList("UNIPUBLISH_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		ServerTimeout:  getDuration("UNIPUBLISH_SERVER_TIMEOUT", 2*time.Minute),

		ObjectStore: ObjectStoreConfig{
			Bucket:        getString("UNIPUBLISH_S3_BUCKET", ""),
			Endpoint:      getString("UNIPUBLISH_S3_ENDPOINT", ""),
			Region:        getString("UNIPUBLISH_S3_REGION", "us-east-1"),
			PublicBaseURL: getString("UNIPUBLISH_S3_PUBLIC_BASE_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.AppPort <= 0 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.AppPort))
	}
	if c.PublishMinDelay < 0 || c.PublishMaxDelay < c.PublishMinDelay {
		errs = append(errs, fmt.Errorf("publish delay range [%s, %s] is invalid", c.PublishMinDelay, c.PublishMaxDelay))
	}
	if c.MaxVideoBytes < 0 {
		errs = append(errs, errors.New("max video bytes must not be negative"))
	}
	if c.WorkflowWorkers < 0 || c.WorkflowQueueSize < 0 {
		errs = append(errs, errors.New("workflow workers and queue size must not be negative"))
	}
	if c.GenerateRateLimit < 0 || c.GenerateRateBurst < 0 {
		errs = append(errs, errors.New("generate rate limit must not be negative"))
	}
	return errors.Join(errs...)
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func firstNonEmpty(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
