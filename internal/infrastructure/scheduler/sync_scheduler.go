package scheduler

import (
	"context"
	"errors"
	"math/rand"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	appsync "github.com/stocksync/backend/internal/application/sync"
	"github.com/stocksync/backend/internal/domain/sync"
)

// FetchTriggerer is the slice of the sync service the scheduler drives
type FetchTriggerer interface {
	TriggerFetch(ctx context.Context, input appsync.TriggerFetchInput) (*appsync.FetchRecordResponse, error)
}

// SyncSchedulerConfig holds configuration for the interval fetch scheduler
type SyncSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool
	// VendorInterval is the fetch interval for the vendor portal
	VendorInterval time.Duration
	// RetailInterval is the fetch interval for the retail portal
	RetailInterval time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:        true,
		VendorInterval: 6 * time.Hour,
		RetailInterval: 6 * time.Hour,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.VendorInterval <= 0 || c.RetailInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// interval returns the fetch interval for a source
func (c *SyncSchedulerConfig) interval(source sync.Source) time.Duration {
	switch source {
	case sync.SourceRetailPortal:
		return c.RetailInterval
	default:
		return c.VendorInterval
	}
}

// SyncScheduler triggers a fetch for each configured source on its own
// interval. A tick that lands while the source's guard is held is logged
// and skipped; ticks are never queued.
type SyncScheduler struct {
	config    SyncSchedulerConfig
	triggerer FetchTriggerer
	sources   []sync.Source
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a scheduler for the given sources
func NewSyncScheduler(config SyncSchedulerConfig, triggerer FetchTriggerer, sources []sync.Source, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{
		config:    config,
		triggerer: triggerer,
		sources:   sources,
		logger:    logger,
	}, nil
}

// Start starts one ticker loop per source
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Sync scheduler is disabled")
		return nil
	}
	if len(s.sources) == 0 {
		s.mu.Unlock()
		s.logger.Info("Sync scheduler has no configured sources")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, source := range s.sources {
		s.wg.Add(1)
		go s.runSource(ctx, source, s.config.interval(source))
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("sources", len(s.sources)),
		zap.Duration("vendor_interval", s.config.VendorInterval),
		zap.Duration("retail_interval", s.config.RetailInterval),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is running
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// runSource ticks one source at its interval. The first tick is jittered
// so restarting replicas do not hit every portal at the same instant.
func (s *SyncScheduler) runSource(ctx context.Context, source sync.Source, interval time.Duration) {
	defer s.wg.Done()

	delay := firstTickJitter(interval)
	s.logger.Debug("Source fetch loop starting",
		zap.String("source", source.String()),
		zap.Duration("interval", interval),
		zap.Duration("first_tick_in", delay),
	)

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}
	s.trigger(ctx, source)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Source fetch loop stopping",
				zap.String("source", source.String()))
			return
		case <-ticker.C:
			s.trigger(ctx, source)
		}
	}
}

// trigger requests one scheduled fetch. The fetch itself runs on the sync
// service's own goroutine; a trigger only opens it.
func (s *SyncScheduler) trigger(ctx context.Context, source sync.Source) {
	resp, err := s.triggerer.TriggerFetch(ctx, appsync.TriggerFetchInput{
		Source:  source,
		Trigger: sync.TriggerScheduled,
		Actor:   "scheduler",
	})
	switch {
	case err == nil:
		s.logger.Info("Scheduled fetch triggered",
			zap.String("source", source.String()),
			zap.String("fetch_id", resp.ID.String()),
		)
	case errors.Is(err, sync.ErrSyncInProgress):
		s.logger.Info("Scheduled fetch skipped, a fetch is already in flight",
			zap.String("source", source.String()),
		)
	default:
		s.logger.Error("Scheduled fetch failed to trigger",
			zap.String("source", source.String()),
			zap.Error(err),
		)
	}
}

// firstTickJitter spreads the first tick across a tenth of the interval
func firstTickJitter(interval time.Duration) time.Duration {
	window := int64(interval / 10)
	if window <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(window))
}
