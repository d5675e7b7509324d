package scheduler

import (
	"context"
	gosync "sync"
	"time"

	"go.uber.org/zap"
)

// HistoryPurger deletes fetch records older than the retention window
type HistoryPurger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// RetentionWorkerConfig holds configuration for the history purge loop
type RetentionWorkerConfig struct {
	// Enabled determines if the worker is active
	Enabled bool
	// Retention is how long fetch records are kept
	Retention time.Duration
	// Interval is how often the purge runs
	Interval time.Duration
}

// DefaultRetentionWorkerConfig returns default configuration
func DefaultRetentionWorkerConfig() RetentionWorkerConfig {
	return RetentionWorkerConfig{
		Enabled:   true,
		Retention: 10 * 24 * time.Hour,
		Interval:  12 * time.Hour,
	}
}

// Validate validates the configuration
func (c *RetentionWorkerConfig) Validate() error {
	if c.Retention <= 0 || c.Interval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// purgeTimeout bounds one purge run
const purgeTimeout = 5 * time.Minute

// RetentionWorker periodically purges fetch history past its retention
// window so the history table stays small enough to query by hand
type RetentionWorker struct {
	config RetentionWorkerConfig
	purger HistoryPurger
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	isRunning bool
}

// NewRetentionWorker creates a retention worker
func NewRetentionWorker(config RetentionWorkerConfig, purger HistoryPurger, logger *zap.Logger) (*RetentionWorker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionWorker{
		config: config,
		purger: purger,
		logger: logger,
	}, nil
}

// Start starts the purge loop
func (w *RetentionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	if !w.config.Enabled {
		w.mu.Unlock()
		w.logger.Info("Fetch history retention worker is disabled")
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("Fetch history retention worker started",
		zap.Duration("retention", w.config.Retention),
		zap.Duration("interval", w.config.Interval),
	)
	return nil
}

// Stop gracefully stops the worker
func (w *RetentionWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Fetch history retention worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Fetch history retention worker stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the worker is running
func (w *RetentionWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

// run purges on the interval, first tick jittered like the fetch loops
func (w *RetentionWorker) run(ctx context.Context) {
	defer w.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-time.After(firstTickJitter(w.config.Interval)):
	}
	w.purge(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Retention loop stopping")
			return
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

// purge runs one bounded purge pass
func (w *RetentionWorker) purge(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	start := time.Now()
	purged, err := w.purger.PurgeExpired(pctx, w.config.Retention)
	if err != nil {
		w.logger.Error("Fetch history purge failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	if purged > 0 {
		w.logger.Info("Fetch history purge completed",
			zap.Int64("purged", purged),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
