package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/soyoshik-git/bro-reserve/internal/api"
	"github.com/soyoshik-git/bro-reserve/internal/config"
	"github.com/soyoshik-git/bro-reserve/internal/database"
	"github.com/soyoshik-git/bro-reserve/internal/engine"
	"github.com/soyoshik-git/bro-reserve/internal/metrics"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	configPath := os.Getenv("BRO_RESERVE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("loading config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening database")
	}
	defer db.Close()

	defaultStart, err := cfg.ScheduleDefaultStart()
	if err != nil {
		logger.Fatal().Err(err).Msg("schedule default start")
	}
	defaultEnd, err := cfg.ScheduleDefaultEnd()
	if err != nil {
		logger.Fatal().Err(err).Msg("schedule default end")
	}
	if err := db.EnsureDefaultSchedules(ctx, cfg.Staff, defaultStart, defaultEnd); err != nil {
		logger.Fatal().Err(err).Msg("seeding default schedules")
	}

	var cache *api.AvailabilityCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, availability cache disabled")
		} else {
			cache = api.NewAvailabilityCache(client, cfg.CacheTTL(), &logger)
			logger.Info().Str("addr", cfg.Redis.Address).Msg("availability cache enabled")
		}
	}

	eng := engine.NewService(db, db, engine.Rules{
		GranularityMinutes: cfg.SlotGranularity(),
		AllowedDurations:   cfg.AllowedDurations(),
		MinAdvance:         cfg.MinAdvance(),
		MaxAdvance:         cfg.MaxAdvance(),
	}, cfg.AdmissionWait(), &logger)

	server := api.NewServer(db, eng, cache, api.Options{
		Addr:            cfg.ServerAddr(),
		RateLimitPerSec: cfg.RateLimitPerSecond(),
		RateLimitBurst:  cfg.RateLimitBurst(),
		MaxRangeDays:    cfg.Booking.MaxAdvanceDays,
	}, &logger)

	healthServer := api.NewHealthServer(cfg.HealthCheckPort(), db, &logger)
	go func() {
		logger.Info().Str("addr", healthServer.Addr).Msg("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metricsServer = api.NewMetricsServer(cfg.PrometheusPort())
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, cfg.BackupInterval(), &logger)
	go backup.Run(ctx)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("api server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api server shutdown")
	}
	healthServer.Shutdown(shutdownCtx)
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}
	logger.Info().Msg("stopped")
}
