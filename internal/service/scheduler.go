package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/reconciliation"
)

type reconciler interface {
	RunReconciliation(ctx context.Context, mode domain.ReconciliationMode, params reconciliation.Params) (*reconciliation.Report, error)
}

type SchedulerConfig struct {
	Interval      time.Duration
	DailyHour     int
	WeeklyWeekday time.Weekday
	WeeklyHour    int
}

// Scheduler triggers the daily and weekly reconciliation runs across all
// tenants. Each run fires at most once per UTC day.
type Scheduler struct {
	runner reconciler
	logger *slog.Logger
	cfg    SchedulerConfig

	lastDaily  string
	lastWeekly string
}

func NewScheduler(runner reconciler, logger *slog.Logger, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logger,
		cfg:    cfg,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("reconciliation scheduler started",
		"interval", s.cfg.Interval,
		"daily_hour", s.cfg.DailyHour,
		"weekly_weekday", s.cfg.WeeklyWeekday.String(),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconciliation scheduler stopped")
			return
		case t := <-ticker.C:
			s.tick(ctx, t.UTC())
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	day := now.Format(time.DateOnly)

	if now.Hour() >= s.cfg.DailyHour && s.lastDaily != day {
		if s.run(ctx, domain.ReconciliationModeDaily, now) {
			s.lastDaily = day
		}
	}

	if now.Weekday() == s.cfg.WeeklyWeekday && now.Hour() >= s.cfg.WeeklyHour && s.lastWeekly != day {
		if s.run(ctx, domain.ReconciliationModeWeekly, now) {
			s.lastWeekly = day
		}
	}
}

func (s *Scheduler) run(ctx context.Context, mode domain.ReconciliationMode, now time.Time) bool {
	report, err := s.runner.RunReconciliation(ctx, mode, reconciliation.Params{Now: now})
	if err != nil {
		s.logger.Error("scheduled reconciliation failed", "mode", mode, "error", err)
		return false
	}
	s.logger.Info("scheduled reconciliation finished", "mode", mode, "run_id", report.RunID)
	return true
}
