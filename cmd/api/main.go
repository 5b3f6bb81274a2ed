package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/invoice-reconciler/internal/app"
	"github.com/josh-kwaku/invoice-reconciler/internal/config"
	"github.com/josh-kwaku/invoice-reconciler/internal/handler"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
	"github.com/josh-kwaku/invoice-reconciler/internal/middleware"
	"github.com/josh-kwaku/invoice-reconciler/internal/service"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("reconciler-api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Init(os.Stdout, "reconciler-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           routes(cfg, a),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	worker := service.NewMatchWorker(a.Repos.SyncEvents, a.Engine, logger.With("component", "match_worker"), service.MatchWorkerConfig{
		Interval:    cfg.WorkerInterval,
		BatchSize:   cfg.WorkerBatchSize,
		Lease:       cfg.WorkerLease,
		MaxAttempts: cfg.WorkerMaxAttempts,
	})
	janitor := service.NewCacheJanitor(a.Repos.Idempotency, logger.With("component", "cache_janitor"), cfg.IdempotencyCleanupInterval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		worker.Start(gctx)
		return nil
	})

	g.Go(func() error {
		janitor.Start(gctx)
		return nil
	})

	if cfg.SchedulerEnabled {
		scheduler := service.NewScheduler(a.Reconciliation, logger.With("component", "scheduler"), service.SchedulerConfig{
			Interval:      cfg.SchedulerInterval,
			DailyHour:     cfg.DailyRunHour,
			WeeklyWeekday: time.Weekday(cfg.WeeklyRunWeekday),
			WeeklyHour:    cfg.WeeklyRunHour,
		})
		g.Go(func() error {
			scheduler.Start(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func routes(cfg *config.Config, a *app.App) http.Handler {
	health := handler.NewHealthHandler(a.DB, version)
	matches := handler.NewMatchHandler(a.Engine, a.Repos.Payments)
	runs := handler.NewReconciliationHandler(a.Reconciliation)
	webhooks := handler.NewWebhookHandler(a.Repos.SyncEvents, cfg.WebhookSecret)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, middleware.Auth(cfg.JWTSecret))
	}
	idempotent := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, middleware.Auth(cfg.JWTSecret), middleware.Idempotency(a.Repos.Idempotency, cfg.IdempotencyTTL))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Liveness)
	mux.HandleFunc("GET /health/ready", health.Readiness)

	mux.Handle("POST /api/v1/payments/{id}/match", authed(matches.AutoMatch))
	mux.Handle("GET /api/v1/payments/{id}/match/{invoiceId}", authed(matches.ValidateMatch))
	mux.Handle("POST /api/v1/reconciliation/runs", idempotent(runs.CreateRun))
	mux.Handle("GET /api/v1/reconciliation/runs/{id}", authed(runs.GetRun))
	mux.HandleFunc("POST /api/v1/webhooks/sync", webhooks.ReceiveSyncEvent)

	return middleware.Chain(mux, middleware.Tracing, middleware.Logging, middleware.Recovery)
}
