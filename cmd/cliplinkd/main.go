// SPDX-License-Identifier: MIT

// Command cliplinkd runs the clip capture pipeline daemon: it accepts
// browser captures over HTTP, trims them with ffmpeg, publishes the clips
// to blob storage and tracks metadata and view analytics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cliplink/cliplink/internal/api"
	"github.com/cliplink/cliplink/internal/config"
	"github.com/cliplink/cliplink/internal/engine"
	cllog "github.com/cliplink/cliplink/internal/log"
	"github.com/cliplink/cliplink/internal/pipeline"
	"github.com/cliplink/cliplink/internal/publish"
	"github.com/cliplink/cliplink/internal/storage"
	"github.com/cliplink/cliplink/internal/store"
	"github.com/cliplink/cliplink/internal/trim"
	"github.com/cliplink/cliplink/internal/videos"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cliplinkd: %v\n", err)
		os.Exit(1)
	}

	cllog.Configure(cllog.Config{
		Level:   cfg.LogLevel,
		Service: "cliplink",
	})
	logger := cllog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("daemon exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	transport, err := buildTransport(cfg)
	if err != nil {
		return err
	}
	loader := engine.NewLoader(transport, cllog.WithComponent("engine"))
	trimmer := trim.New(loader, trim.Policy(cfg.Trim.Policy), cfg.Trim.MIME)

	objects, err := buildStorage(ctx, cfg)
	if err != nil {
		return err
	}

	metadata, closeStore, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn().Err(err).Msg("metadata store close failed")
		}
	}()

	p := pipeline.New(trimmer, publish.New(objects), metadata)
	srv := api.NewServer(p, videos.New(metadata), api.Options{
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	router := srv.Router()
	if cfg.Storage.Backend == config.StorageFS {
		mountMedia(router, cfg.Storage.FSRoot)
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("version", version).
			Str("listen", cfg.Listen).
			Str("engine", cfg.Engine.Transport).
			Str("storage", cfg.Storage.Backend).
			Str("metadata", cfg.Metadata.Backend).
			Msg("cliplinkd listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Scratch holds only per-trim intermediates; safe to discard.
	if cfg.Engine.Transport == config.EngineExec {
		if err := os.RemoveAll(cfg.Engine.ScratchDir); err != nil {
			logger.Warn().Err(err).Str("dir", cfg.Engine.ScratchDir).Msg("scratch cleanup failed")
		}
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func buildTransport(cfg config.Config) (engine.Transport, error) {
	switch cfg.Engine.Transport {
	case config.EngineExec:
		return engine.NewExecTransport(cfg.Engine.FFmpegBin, cfg.Engine.ScratchDir, cllog.WithComponent("engine.exec")), nil
	case config.EngineEmbedded:
		// No in-process ffmpeg runtime ships with the daemon yet; the
		// embedded transport is reachable via engine.NewMemTransport for
		// programs that link their own engine.Runtime.
		return nil, fmt.Errorf("engine transport %q requires an embedded runtime; use %q", config.EngineEmbedded, config.EngineExec)
	default:
		return nil, fmt.Errorf("unknown engine transport %q", cfg.Engine.Transport)
	}
}

func buildStorage(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case config.StorageFS:
		return storage.NewFSStore(cfg.Storage.FSRoot, cfg.Storage.FSBaseURL, cllog.WithComponent("storage.fs"))
	case config.StorageS3:
		return storage.NewS3Store(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3BaseURL, cllog.WithComponent("storage.s3"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// buildStore returns the metadata store plus a close func for backends that
// hold connections or file handles.
func buildStore(cfg config.Config) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Metadata.Backend {
	case config.MetadataMemory:
		return store.NewMemoryStore(), noop, nil
	case config.MetadataRedis:
		s, err := store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.Metadata.RedisAddr,
			Password: cfg.Metadata.RedisPassword,
			DB:       cfg.Metadata.RedisDB,
		}, cllog.WithComponent("store.redis"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.MetadataBadger:
		s, err := store.NewBadgerStore(cfg.Metadata.BadgerDir, cllog.WithComponent("store.badger"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata backend %q", cfg.Metadata.Backend)
	}
}

// mountMedia serves published clips directly when the filesystem blob
// backend is in use, so the locators the API hands out resolve locally.
func mountMedia(router *chi.Mux, root string) {
	fs := http.StripPrefix("/media/", http.FileServer(http.Dir(root)))
	router.Get("/media/*", func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	})
}
