// Package config loads sandboxd's configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every option sandboxd recognizes.
type Config struct {
	// Sandbox execution policy (spec §6).
	SandboxImageName      string
	SandboxMaxConcurrent  int
	SandboxRunningTimeout time.Duration
	SandboxSharedHostDir  string
	UserUploadDir         string
	RunInDocker           bool

	// Docker engine connection.
	DockerHost string

	// Execution record sink.
	DatabaseURL string
	SQLitePath  string

	// Optional last-activity mirror.
	RedisURL string

	// HTTP surface.
	HTTPAddr    string
	MetricsAddr string
	AdminToken  string

	// Bridge-module authentication.
	BridgeJWTSecret string

	// Logging / runtime environment.
	Environment string
}

// Load reads .env (if present) and binds environment variables, applying
// the same defaults a standalone run of sandboxd needs.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			// No .env file is fine; environment variables may already be set.
			_ = err
		}
	}

	cfg := &Config{
		SandboxImageName:      envOr("SANDBOX_IMAGE_NAME", "nekro-agent-sandbox"),
		SandboxMaxConcurrent:  envOrInt("SANDBOX_MAX_CONCURRENT", 4),
		SandboxRunningTimeout: envOrSeconds("SANDBOX_RUNNING_TIMEOUT", 60),
		SandboxSharedHostDir:  envOr("SANDBOX_SHARED_HOST_DIR", "/data/sandbox/shared"),
		UserUploadDir:         envOr("USER_UPLOAD_DIR", "/data/sandbox/uploads"),
		RunInDocker:           envOrBool("RUN_IN_DOCKER", false),

		DockerHost: envOr("DOCKER_HOST", "unix:///var/run/docker.sock"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  envOr("SANDBOX_SQLITE_PATH", "./sandboxd.db"),

		RedisURL: os.Getenv("REDIS_URL"),

		HTTPAddr:    envOr("HTTP_ADDR", ":8090"),
		MetricsAddr: envOr("METRICS_ADDR", ":9090"),
		AdminToken:  os.Getenv("SANDBOX_ADMIN_TOKEN"),

		BridgeJWTSecret: envOr("SANDBOX_BRIDGE_JWT_SECRET", ""),

		Environment: envOr("ENVIRONMENT", "development"),
	}

	if cfg.SandboxMaxConcurrent <= 0 {
		return nil, fmt.Errorf("SANDBOX_MAX_CONCURRENT must be positive, got %d", cfg.SandboxMaxConcurrent)
	}
	if cfg.SandboxRunningTimeout <= 0 {
		return nil, fmt.Errorf("SANDBOX_RUNNING_TIMEOUT must be positive, got %s", cfg.SandboxRunningTimeout)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envOrSeconds(key string, fallbackSeconds int) time.Duration {
	return time.Duration(envOrInt(key, fallbackSeconds)) * time.Second
}
