package service

import (
	"context"
	"log/slog"
	"time"
)

type expirer interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// CacheJanitor periodically purges expired idempotency cache entries.
type CacheJanitor struct {
	cache    expirer
	logger   *slog.Logger
	interval time.Duration
}

func NewCacheJanitor(cache expirer, logger *slog.Logger, interval time.Duration) *CacheJanitor {
	return &CacheJanitor{cache: cache, logger: logger, interval: interval}
}

func (j *CacheJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *CacheJanitor) sweep(ctx context.Context) int64 {
	n, err := j.cache.CleanExpired(ctx)
	if err != nil {
		j.logger.Error("idempotency cache cleanup failed", "error", err)
		return 0
	}
	if n > 0 {
		j.logger.Info("idempotency cache cleaned", "removed", n)
	}
	return n
}
