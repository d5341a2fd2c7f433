// Package main runs the boardsight API server: position resolution from page
// readings and board images, engine evaluation and rating-aware move choice.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boardsight/cmd/boardsight-server/cli"
	"boardsight/internal/config"
	"boardsight/internal/engine"
	"boardsight/internal/gateway"
	"boardsight/internal/http"
	"boardsight/internal/processor"
	"boardsight/internal/resolver"
	"boardsight/internal/service"
	"boardsight/internal/storage"
	"boardsight/internal/vision"

	"github.com/rs/zerolog"
)

const (
	gracefulShutdownTimeout = time.Second * 5
	evalTimeout             = 30 * time.Second
)

var subcommands = map[string]func([]string) error{
	"db":    cli.Run,
	"token": cli.RunToken,
}

func main() {
	// Offline subcommands
	if len(os.Args) > 1 {
		if run, ok := subcommands[os.Args[1]]; ok {
			if err := run(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "CLI error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		}
	}

	var (
		apiHost     = flag.String("api-host", "localhost", "API server host")
		apiPort     = flag.Int("api-port", 8080, "API server port")
		dev         = flag.Bool("dev", false, "Development mode (relaxed rate limits)")
		storagePath = flag.String("storage-path", "", "Path to SQLite database file (disables persistence if empty)")
		pidPath     = flag.String("pid", "", "Optional path to write PID file")
		pidLock     = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	log := config.NewLogger(cfg.Logs, os.Stderr)

	if *pidLock && *pidPath == "" {
		log.Fatal().Msg("-pid-lock flag requires the -pid flag to be set")
	}
	if *pidPath != "" {
		cleanup, err := managePIDFile(*pidPath, *pidLock)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to manage PID file")
		}
		defer cleanup()
		log.Info().Str("path", *pidPath).Bool("lock", *pidLock).Msg("PID file created")
	}

	// 1. Storage (optional)
	var store *storage.Store
	if *storagePath != "" {
		store, err = storage.NewStore(*storagePath, *dev, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize storage")
		}
		if err := store.InitDB(); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize schema")
		}
		log.Info().Str("path", *storagePath).Msg("persistent storage enabled")
	} else {
		log.Info().Msg("persistent storage disabled (use -storage-path to enable)")
	}

	// 2. Evaluation collaborators behind the rate-limited gateway
	primary, fallback, closeEngine, err := buildEvaluators(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize evaluation")
	}
	gw := gateway.New(primary, fallback, gateway.Config{
		MinInterval:   cfg.Eval.MinInterval,
		Cooldown:      cfg.Eval.Cooldown,
		Variations:    cfg.Eval.Variations,
		FallbackDepth: cfg.Eval.FallbackDepth,
	}, log)

	// 3. Vision (optional)
	var visionSrc processor.VisionSource
	if cfg.VisionEnabled() {
		visionSrc = vision.New(cfg.Vision.URL, cfg.Vision.APIKey, cfg.Vision.Model)
		log.Info().Str("model", cfg.Vision.Model).Msg("vision recognition enabled")
	} else {
		log.Info().Msg("vision recognition disabled (set VISION_API_KEY to enable)")
	}

	// 4. Service, processor and HTTP surface
	svc := service.New(store, []byte(cfg.APISecret), log)
	proc := processor.New(svc, resolver.New(log), gw, visionSrc, processor.Config{
		TargetRating: cfg.Selector.TargetRating,
		EvalTimeout:  evalTimeout,
	}, log)
	app := http.NewFiberApp(proc, svc, http.Options{DevMode: *dev})

	apiAddr := fmt.Sprintf("%s:%d", *apiHost, *apiPort)
	go func() {
		log.Info().
			Str("addr", "http://"+apiAddr).
			Str("primary", cfg.Eval.Primary).
			Str("fallback", cfg.Eval.Fallback).
			Bool("auth", svc.AuthEnabled()).
			Bool("dev", *dev).
			Msg("boardsight API server starting")
		if err := app.Listen(apiAddr); err != nil {
			log.Error().Err(err).Msg("API server listen error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if err = app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced to shutdown")
	}
	if closeEngine != nil {
		if err = closeEngine(); err != nil {
			log.Warn().Err(err).Msg("engine close error")
		}
	}
	if err = svc.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("service shutdown error")
	}

	log.Info().Msg("server exited")
}

// buildEvaluators wires the configured primary and fallback sources. A local
// engine process is started once and shared when both roles use it.
func buildEvaluators(cfg *config.Config, log zerolog.Logger) (gateway.Primary, gateway.Fallback, func() error, error) {
	var (
		uci       *engine.UCI
		closeFunc func() error
	)
	localEngine := func() (*engine.UCI, error) {
		if uci != nil {
			return uci, nil
		}
		var err error
		uci, err = engine.New(engine.Config{
			Path:     cfg.Engine.Path,
			Depth:    cfg.Engine.Depth,
			MoveTime: cfg.Engine.MoveTime,
			Threads:  cfg.Engine.Threads,
			HashMB:   cfg.Engine.HashMB,
		})
		if err != nil {
			return nil, err
		}
		closeFunc = uci.Close
		log.Info().Str("path", cfg.Engine.Path).Msg("local engine started")
		return uci, nil
	}

	var primary gateway.Primary
	switch cfg.Eval.Primary {
	case config.PrimaryLocal:
		e, err := localEngine()
		if err != nil {
			return nil, nil, nil, err
		}
		primary = e
	default:
		primary = engine.NewCloudClient(cfg.Eval.CloudURL)
	}

	var fallback gateway.Fallback
	switch cfg.Eval.Fallback {
	case config.FallbackLocal:
		e, err := localEngine()
		if err != nil {
			if closeFunc != nil {
				closeFunc()
			}
			return nil, nil, nil, err
		}
		fallback = e
	case config.FallbackService:
		fallback = engine.NewFallbackClient(cfg.Eval.FallbackURL)
	}

	return primary, fallback, closeFunc, nil
}
