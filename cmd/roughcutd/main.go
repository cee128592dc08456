package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/lapaas/roughcut/internal/api"
	"github.com/lapaas/roughcut/internal/config"
	"github.com/lapaas/roughcut/internal/media"
	"github.com/lapaas/roughcut/internal/metrics"
	"github.com/lapaas/roughcut/internal/pipeline"
	"github.com/lapaas/roughcut/internal/project"
	"github.com/lapaas/roughcut/internal/runtimes"
)

var version = "dev"

func main() {
	startTime := time.Now()

	// Config
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("roughcutd starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Project store
	store, err := project.NewStore(cfg.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open project store")
	}
	prometheus.MustRegister(metrics.NewCollector(store))

	// Pipeline
	pipe := pipeline.New(cfg, store, log)

	// HTTP server
	runner := media.NewRunner(cfg.FFmpegPath, cfg.FFprobePath)
	caps := runtimes.Detect(runtimes.ProbeSpec{
		PythonBin:         cfg.PythonBin,
		FasterWhisperPath: cfg.FasterWhisperPath,
		WhisperCppBin:     cfg.WhisperCppBin,
		WhisperCppModel:   cfg.WhisperCppModel,
		ElevenLabsAPIKey:  cfg.ElevenLabsAPIKey,
		DeepInfraAPIKey:   cfg.DeepInfraAPIKey,
		OpenRouterAPIKey:  cfg.OpenRouterAPIKey,
	}, log)
	health := api.NewHealthHandler(runner, caps, version, startTime)
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(ctx, cfg, store, pipe, health, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("roughcutd stopped")
}
