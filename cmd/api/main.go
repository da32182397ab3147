package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/app"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/config"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/export"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/gitrepo"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/metrics"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/render"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/sanitize"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/session"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/store"
	"github.com/HariSeldon343/NexioSolution-sub003/internal/versions"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("nexio api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.PoolOptions{MaxOpenConns: cfg.DBMaxOpen, MaxIdleConns: cfg.DBMaxIdle})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, os.DirFS(cfg.MigrationsDir), logger); err != nil {
		return err
	}

	dataStore := store.NewPostgresStore(db)
	collector := metrics.New()
	policy := sanitize.NewPolicy()

	var sessions app.SessionStore = dataStore
	if cfg.RedisURL != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info("refresh sessions stored in redis")
	} else {
		logger.Info("refresh sessions stored in postgres")
	}

	versionOpts := []versions.Option{versions.WithMetrics(collector), versions.WithLogger(logger)}
	var history app.HistoryReader
	if cfg.MirrorDir != "" {
		if err := os.MkdirAll(cfg.MirrorDir, 0o755); err != nil {
			return err
		}
		mirror := gitrepo.New(cfg.MirrorDir)
		versionOpts = append(versionOpts, versions.WithMirror(mirror))
		history = mirror
	}
	versionService := versions.New(dataStore, policy, versionOpts...)

	renderer := render.NewRenderer(dataStore, render.WithMetrics(collector), render.WithLogger(logger))

	profile, err := config.LoadExportProfile(cfg.ExportProfilePath)
	if err != nil {
		return err
	}
	exportOpts := []export.Option{export.WithMetrics(collector), export.WithLogger(logger)}
	if cfg.Archive.Enabled() {
		archive, err := export.NewMinioArchive(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		exportOpts = append(exportOpts, export.WithArchive(archive))
	}
	exporter := export.NewService(renderer, profile, exportOpts...)

	service := app.New(cfg, profile, app.Deps{
		Users:     dataStore,
		Sessions:  sessions,
		Versions:  versionService,
		Renderer:  renderer,
		Templates: render.NewTemplateResolver(dataStore),
		Exporter:  exporter,
		History:   history,
		Sanitizer: policy,
		Pinger:    dataStore,
		Bootstrap: dataStore,
		Logger:    logger,
	})
	if err := service.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap failed, will retry on next restart", "error", err)
	}

	httpServer := app.NewHTTPServer(service, collector, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("nexio api listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-sigCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	return nil
}
