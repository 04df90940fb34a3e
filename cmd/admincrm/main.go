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

	"github.com/hibiken/asynq"

	"github.com/martpedro/Admin-CRM-sub000/internal/app"
	"github.com/martpedro/Admin-CRM-sub000/internal/observability"
	"github.com/martpedro/Admin-CRM-sub000/internal/platform/cache"
	"github.com/martpedro/Admin-CRM-sub000/internal/platform/db"
	"github.com/martpedro/Admin-CRM-sub000/internal/quotations"
	"github.com/martpedro/Admin-CRM-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	repo := quotations.NewRepository(pool)
	views := quotations.NewViewStore(redisClient, cfg.ViewTTL)
	coordinator := quotations.NewCoordinator(views, quotations.DeferredScheduler{}, logger).
		WithMetrics(metrics)
	service := quotations.NewService(repo, quotations.DefaultPricingPolicy(), coordinator, views)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	service.WithWarmup(func(ctx context.Context, scope string) {
		if _, err := jobsClient.EnqueueViewsWarmup(ctx, scope); err != nil {
			logger.Warn("enqueue views warmup", slog.Any("error", err))
		}
	})

	handler := quotations.NewHandler(logger, service)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		QuotationHandler: handler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	logger.Info("http server stopped")
}
