package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"natours/api/internal/cache"
	"natours/api/internal/config"
	"natours/api/internal/database"
	"natours/api/internal/handlers"
	"natours/api/internal/jobs"
	"natours/api/internal/log"
	"natours/api/internal/notify"
	"natours/api/internal/repository"
	"natours/api/internal/server"
	"natours/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New("natours-api", cfg.Environment, cfg.Log)

	ctx := context.Background()

	store, err := database.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open store")
	}

	var redisCache *cache.Redis
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, cfg.Security.ResetThrottle)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, running without stats cache and reset throttle")
			redisCache = nil
		}
	}

	var objectStore *storage.ObjectStore
	if cfg.Storage.Enabled {
		objectStore, err = storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
	}

	mailer, err := notify.New(cfg.Mail, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init mailer")
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, store, redisCache, objectStore, mailer)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	fatal := make(chan error, 1)
	report := func(err error) {
		select {
		case fatal <- err:
		default:
		}
	}

	scheduler := jobs.NewScheduler(store.Users, store.Ping, cfg.Jobs, logger, report)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			report(err)
		}
	}()

	code := waitForShutdown(logger, cfg, fatal, httpServer, scheduler, store, redisCache)
	os.Exit(code)
}

func waitForShutdown(
	logger zerolog.Logger,
	cfg *config.AppConfig,
	fatal <-chan error,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	store *repository.Store,
	redisCache *cache.Redis,
) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-fatal:
		logger.Error().Err(err).Msg("fatal error, shutting down")
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		code = 1
	}

	scheduler.Stop(shutdownCtx)

	if err := store.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("store close error")
	}
	if err := redisCache.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited")
	return code
}
