// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	domainsync "github.com/stocksync/backend/internal/domain/sync"
)

// SyncMetrics tracks portal fetch activity, ingestion throughput, and
// sync health for the reconciliation engine.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	fetchTotal    *Counter
	ingestedTotal *Counter

	// Distribution metrics
	fetchDuration *Histogram
	fetchPages    *Histogram

	// Gauge metrics (point-in-time values)
	healthScore       *Gauge
	pendingStockCount *Gauge
	staleItemCount    *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	gaugeProvider SyncGaugeProvider
}

// SyncGaugeProvider supplies point-in-time backlog figures for periodic
// collection. This interface lets the telemetry layer query ledger state
// without depending on the domain packages directly.
type SyncGaugeProvider interface {
	// PendingStockBacklog returns the count of mirrored records not yet
	// folded into the stock ledger
	PendingStockBacklog(ctx context.Context) (int64, error)

	// StaleItemCount returns the count of items whose last portal sync is
	// older than the threshold
	StaleItemCount(ctx context.Context, threshold time.Duration) (int64, error)
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StaleItemAge    time.Duration // Default: 48 hours
	GaugeProvider   SyncGaugeProvider
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		gaugeProvider: cfg.GaugeProvider,
	}

	var err error

	sm.fetchTotal, err = NewCounter(
		cfg.Meter,
		"sync_fetch_total",
		"Total number of portal fetches by outcome",
		"{fetches}",
	)
	if err != nil {
		return nil, err
	}

	sm.ingestedTotal, err = NewCounter(
		cfg.Meter,
		"sync_records_ingested_total",
		"Total number of scraped records by ingestion result",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	sm.fetchDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "sync_fetch_duration_seconds",
		Description: "Portal fetch duration from trigger to finalization",
		Unit:        "s",
		Boundaries:  FetchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.fetchPages, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "sync_fetch_pages",
		Description: "Pages walked per portal fetch",
		Unit:        "{pages}",
		Boundaries:  PageCountBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.healthScore, err = NewGauge(
		cfg.Meter,
		"sync_health_score",
		"Sync health score from the last evaluation (0-100)",
		"{points}",
	)
	if err != nil {
		return nil, err
	}

	sm.pendingStockCount, err = NewGauge(
		cfg.Meter,
		"sync_pending_stock_backlog",
		"Mirrored records not yet folded into the stock ledger",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	sm.staleItemCount, err = NewGauge(
		cfg.Meter,
		"sync_stale_item_count",
		"Items whose last portal sync is older than the staleness threshold",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// Fetch Metrics
// =============================================================================

// RecordFetch records a finalized fetch with its outcome, duration and
// page count. Called by the application layer when a fetch record is
// finalized, whatever the outcome.
func (sm *SyncMetrics) RecordFetch(ctx context.Context, source, kind, status string, duration time.Duration, pages int) {
	sm.fetchTotal.Inc(ctx,
		AttrSource.String(source),
		AttrFetchKind.String(kind),
		AttrFetchStatus.String(status),
	)
	sm.fetchDuration.RecordDuration(ctx, duration,
		AttrSource.String(source),
		AttrFetchKind.String(kind),
		AttrFetchStatus.String(status),
	)
	sm.fetchPages.Record(ctx, float64(pages),
		AttrSource.String(source),
		AttrFetchKind.String(kind),
	)
}

// RecordIngestedRecords breaks a completed fetch's results down by
// ingestion outcome.
func (sm *SyncMetrics) RecordIngestedRecords(ctx context.Context, source, kind string, results domainsync.FetchResults) {
	buckets := []struct {
		result string
		count  int
	}{
		{"created", results.Created},
		{"updated", results.Updated},
		{"failed", results.Failed},
		{"skipped", results.Skipped},
	}
	for _, b := range buckets {
		if b.count == 0 {
			continue
		}
		sm.ingestedTotal.Add(ctx, int64(b.count),
			AttrSource.String(source),
			AttrFetchKind.String(kind),
			AttrIngestResult.String(b.result),
		)
	}
}

// =============================================================================
// Health Metrics
// =============================================================================

// RecordHealthScore records the score of a health evaluation. Called by
// the application layer whenever the health report is computed.
func (sm *SyncMetrics) RecordHealthScore(ctx context.Context, score int, status string) {
	sm.healthScore.Record(ctx, int64(score),
		AttrHealthStatus.String(status),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of backlog gauges.
// This is non-blocking - use Stop() to stop collection.
func (sm *SyncMetrics) StartPeriodicCollection(ctx context.Context, interval, staleAge time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		if staleAge <= 0 {
			staleAge = 48 * time.Hour
		}

		go sm.runPeriodicCollection(ctx, interval, staleAge)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (sm *SyncMetrics) runPeriodicCollection(ctx context.Context, interval, staleAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	sm.collectBacklogGauges(ctx, staleAge)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic sync metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic sync metrics collection")
			return
		case <-ticker.C:
			sm.collectBacklogGauges(ctx, staleAge)
		}
	}
}

// collectBacklogGauges samples the backlog gauges from the provider.
func (sm *SyncMetrics) collectBacklogGauges(ctx context.Context, staleAge time.Duration) {
	if sm.gaugeProvider == nil {
		sm.logger.Debug("No gauge provider configured, skipping backlog collection")
		return
	}

	backlog, err := sm.gaugeProvider.PendingStockBacklog(ctx)
	if err != nil {
		sm.logger.Warn("Failed to count pending stock backlog", zap.Error(err))
	} else {
		sm.pendingStockCount.Record(ctx, backlog)
	}

	stale, err := sm.gaugeProvider.StaleItemCount(ctx, staleAge)
	if err != nil {
		sm.logger.Warn("Failed to count stale items", zap.Error(err))
	} else {
		sm.staleItemCount.Record(ctx, stale)
	}
}

// Stop stops the periodic collection.
func (sm *SyncMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
