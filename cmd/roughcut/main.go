package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/lapaas/roughcut/internal/config"
	"github.com/lapaas/roughcut/internal/media"
	"github.com/lapaas/roughcut/internal/pipeline"
	"github.com/lapaas/roughcut/internal/project"
)

var version = "dev"

func main() {
	var (
		source      = flag.String("source", "", "path to the source media file (required)")
		name        = flag.String("name", "untitled", "project name")
		projectID   = flag.String("project", "", "existing project id to re-run (skips creation)")
		mode        = flag.String("mode", "", "transcription mode: local, api or hybrid")
		policy      = flag.String("fallback-policy", "", "fallback policy: local-first, api-first, local-only, api-only")
		language    = flag.String("language", "", "spoken language hint (ISO 639-1)")
		dataDir     = flag.String("data-dir", "", "artifact directory")
		envFile     = flag.String("env-file", "", "path to .env file")
		logLevel    = flag.String("log-level", "", "log level: trace, debug, info, warn, error")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("roughcut", version)
		return
	}
	if *source == "" {
		fmt.Fprintln(os.Stderr, "usage: roughcut -source <media file> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(config.Overrides{
		EnvFile:        *envFile,
		DataDir:        *dataDir,
		Mode:           *mode,
		FallbackPolicy: *policy,
		Language:       *language,
		LogLevel:       *logLevel,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sourcePath := media.ResolveSource(cfg.MediaDir, *source)
	if sourcePath == "" {
		log.Fatal().Str("source", *source).Msg("source file not found")
	}

	store, err := project.NewStore(cfg.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open project store")
	}

	id := *projectID
	if id == "" {
		p, err := store.Create(*name, project.Settings{
			AspectRatio: "16:9",
			FPS:         30,
			Resolution:  "1920x1080",
			Language:    cfg.Language,
			AIMode:      cfg.Mode,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create project")
		}
		id = p.ID
	}

	pipe := pipeline.New(cfg, store, log)
	result, err := pipe.Run(ctx, id, sourcePath)
	if err != nil {
		log.Fatal().Err(err).Str("projectId", id).Msg("pipeline run failed")
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
