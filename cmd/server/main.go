package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/doconv/internal/api"
	"github.com/dgallion1/doconv/internal/config"
	"github.com/dgallion1/doconv/internal/convert"
	"github.com/dgallion1/doconv/internal/metrics"
	"github.com/dgallion1/doconv/internal/parser"
	"github.com/dgallion1/doconv/internal/pipeline"
	"github.com/dgallion1/doconv/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Error("init storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	m := metrics.New(cfg.StatsWindow)
	conv := convert.New(log, m, parser.Options{PDFFallback: cfg.PDFFallbackPdftotext})

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, conv, store, log, m)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, conv, store, m, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting doconv", "port", cfg.Port, "storage", cfg.StorageBackend, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageBackend == "memory" {
		return storage.NewMemory(), nil
	}
	return storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.StorageRegion,
		Endpoint:        cfg.StorageEndpoint,
		AccessKeyID:     cfg.StorageAccessKeyID,
		SecretAccessKey: cfg.StorageSecretAccessKey,
		PathStyle:       cfg.StoragePathStyle,
	})
}
