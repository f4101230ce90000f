package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tourflow/internal/api"
	"tourflow/pkg/config"
	"tourflow/pkg/db"
	"tourflow/pkg/logging"
	"tourflow/pkg/probe"
	"tourflow/pkg/request"
	"tourflow/pkg/store"
	"tourflow/pkg/tourapi"
	"tourflow/pkg/tracker"
	"tourflow/pkg/version"
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault("configs/tourflow.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: configs/tourflow.yaml")
		return
	}

	if err := run(context.Background(), "configs/tourflow.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// .env overrides are optional; a missing file is fine.
	_ = godotenv.Load()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("TourFlow Started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.PruneCache(7 * config.Day); err != nil {
		slog.Warn("Cache pruning failed", "error", err)
	}

	st := store.NewSQLiteStore(dbConn)
	tr := tracker.New()

	reqClient := request.New(st, tr, request.ClientConfig{
		Retries: appCfg.Backend.Retries,
		Timeout: appCfg.Backend.Timeout.Std(),
	})
	backend := tourapi.New(appCfg.Backend.BaseURL, reqClient, appCfg.Suggest.CacheResolution)

	if err := os.MkdirAll(appCfg.Audio.SpoolDir, 0o755); err != nil {
		return fmt.Errorf("failed to create audio spool dir: %w", err)
	}

	// Startup Probes
	probes := []probe.Probe{
		{
			Name:     "Tour Backend",
			Check:    backend.HealthCheck,
			Critical: true,
		},
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	return runServer(ctx, appCfg, backend, tr, st)
}

func runServer(ctx context.Context, cfg *config.Config, backend *tourapi.Client, tr *tracker.Tracker, st store.Store) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	sessionsH := api.NewSessionHandler(cfg, backend, st)
	statsH := api.NewStatsHandler(tr, sessionsH)

	srv := api.NewServer(cfg.Server.Address, sessionsH, statsH, shutdownFunc)
	srv.Handler = loggingMiddleware(srv.Handler)

	defer sessionsH.Registry().Close()
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
