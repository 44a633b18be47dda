package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-backoffice/internal/jobs"
	"github.com/odyssey-erp/odyssey-backoffice/internal/lookup"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LookupCache is the part of the lookup service the jobs drive.
type LookupCache interface {
	Warm(ctx context.Context) (lookup.WarmStats, error)
	Invalidate(ctx context.Context) (int64, error)
}

// LookupWarmupJob pre-populates the lookup cache.
type LookupWarmupJob struct {
	Lookups LookupCache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewLookupWarmupJob wires dependencies for the warmup handler.
func NewLookupWarmupJob(lookups LookupCache, logger *slog.Logger, metrics *jobmetrics.Metrics) *LookupWarmupJob {
	return &LookupWarmupJob{Lookups: lookups, Logger: logger, Metrics: metrics, Timeout: 2 * time.Minute}
}

// Handle processes lookup warmup tasks.
func (j *LookupWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Lookups == nil {
		return errors.New("lookup warmup: handler not configured")
	}
	var payload LookupWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.metrics()
	tracker := metrics.Track(TaskLookupWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	logger := jobLogger(j.Logger, TaskLookupWarmup)
	logger.Info("starting lookup warmup", slog.Bool("invalidate", payload.Invalidate))
	started := time.Now()

	if payload.Invalidate {
		version, err := j.Lookups.Invalidate(ctx)
		if err != nil {
			logger.Error("bump lookup cache", slog.Any("error", err))
			return err
		}
		logger.Info("lookup cache bumped", slog.Int64("version", version))
	}

	stats, err := j.Lookups.Warm(ctx)
	metrics.AddWarmed(lookup.KindProduct, stats.Products)
	metrics.AddWarmed(lookup.KindTax, stats.Taxes)
	metrics.AddWarmed(lookup.KindCurrency, stats.Currencies)
	if err != nil {
		logger.Error("warm lookups", slog.Any("error", err))
		return err
	}

	logger.Info("completed lookup warmup",
		slog.Int("products", stats.Products),
		slog.Int("taxes", stats.Taxes),
		slog.Int("currencies", stats.Currencies),
		slog.Duration("duration", time.Since(started)),
	)
	return nil
}

func (j *LookupWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// LookupCacheBumpJob drops every cached lookup.
type LookupCacheBumpJob struct {
	Lookups LookupCache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLookupCacheBumpJob wires dependencies for the cache bump handler.
func NewLookupCacheBumpJob(lookups LookupCache, logger *slog.Logger, metrics *jobmetrics.Metrics) *LookupCacheBumpJob {
	return &LookupCacheBumpJob{Lookups: lookups, Logger: logger, Metrics: metrics}
}

// Handle processes cache bump tasks.
func (j *LookupCacheBumpJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Lookups == nil {
		return errors.New("lookup cache bump: handler not configured")
	}
	var payload LookupCacheBumpPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskLookupCacheBump)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskLookupCacheBump)
	version, err := j.Lookups.Invalidate(ctx)
	if err != nil {
		logger.Error("bump lookup cache", slog.String("reason", payload.Reason), slog.Any("error", err))
		return err
	}
	logger.Info("lookup cache bumped", slog.String("reason", payload.Reason), slog.Int64("version", version))
	return nil
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
