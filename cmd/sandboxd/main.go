package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"nekroagent/sandboxd/internal/cache"
	"nekroagent/sandboxd/internal/config"
	"nekroagent/sandboxd/internal/httpapi"
	"nekroagent/sandboxd/internal/logging"
	"nekroagent/sandboxd/internal/sandbox"
	"nekroagent/sandboxd/internal/store"
	"nekroagent/sandboxd/internal/submitauth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Init()
	defer logging.Sync()

	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithHost(cfg.DockerHost),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		logging.L().Fatal("docker client init failed", zap.Error(err))
	}

	sink := buildSink(cfg)

	paths, err := sandbox.NewPathMapper(cfg.UserUploadDir, cfg.SandboxSharedHostDir)
	if err != nil {
		logging.L().Fatal("path mapper init failed", zap.Error(err))
	}

	registry := sandbox.NewRegistryWithCache(buildActivityMirror(cfg))
	admission := sandbox.NewAdmission(cfg.SandboxMaxConcurrent)
	tokens := submitauth.NewTokenService(bridgeSecret(cfg))

	manager := sandbox.NewManager(cli, registry, admission, paths, sink, tokens,
		cfg.SandboxImageName, "http://host.docker.internal"+cfg.HTTPAddr, cfg.SandboxRunningTimeout, cfg.RunInDocker)

	sweep := func(ctx context.Context) error {
		return sandbox.SweepOrphans(ctx, cli, cfg.SandboxImageName)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := sweep(startupCtx); err != nil {
		logging.L().Warn("startup orphan sweep reported failures", zap.Error(err))
	}
	startupCancel()

	server := httpapi.NewServer(manager, sweep, cfg.AdminToken)
	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.SandboxRunningTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logging.L().Info("sandboxd listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.L().Info("shutting down sandboxd")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logging.L().Error("http server shutdown error", zap.Error(err))
	}
	if err := sweep(shutdownCtx); err != nil {
		logging.L().Warn("shutdown orphan sweep reported failures", zap.Error(err))
	}
}

func buildSink(cfg *config.Config) store.Sink {
	if cfg.DatabaseURL != "" {
		sink, err := store.NewPostgresSink(cfg.DatabaseURL)
		if err != nil {
			logging.L().Error("postgres sink unavailable, falling back to sqlite", zap.Error(err))
		} else {
			return sink
		}
	}
	if cfg.SQLitePath != "" {
		sink, err := store.NewSQLiteSink(cfg.SQLitePath)
		if err != nil {
			logging.L().Error("sqlite sink unavailable, execution records will be dropped", zap.Error(err))
		} else {
			return sink
		}
	}
	return store.NullSink{}
}

// buildActivityMirror wires a RedisActivityCache when REDIS_URL is
// configured, so a pool of sandboxd instances can observe each other's
// last-activity timestamps. A single instance works fine without one.
func buildActivityMirror(cfg *config.Config) cache.ActivityCache {
	if cfg.RedisURL == "" {
		return cache.NullActivityCache{}
	}
	mirror, err := cache.NewRedisActivityCache(cfg.RedisURL)
	if err != nil {
		logging.L().Error("redis activity cache unavailable, falling back to in-process only", zap.Error(err))
		return cache.NullActivityCache{}
	}
	return mirror
}

func bridgeSecret(cfg *config.Config) string {
	if cfg.BridgeJWTSecret != "" {
		return cfg.BridgeJWTSecret
	}
	logging.L().Warn("SANDBOX_BRIDGE_JWT_SECRET not set, using a process-local random secret")
	return randomSecret()
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "insecure-fallback-secret"
	}
	return hex.EncodeToString(buf)
}
