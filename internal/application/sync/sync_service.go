package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
	"github.com/stocksync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RecordIngester is the slice of ingestion the fetch orchestrator needs:
// persisting one fetch's raw records and folding pending mirrors afterwards.
type RecordIngester interface {
	IngestInvoices(ctx context.Context, source sync.Source, raws []sync.RawInvoice) (sync.FetchResults, error)
	IngestOrders(ctx context.Context, source sync.Source, raws []sync.RawOrder) (sync.FetchResults, error)
	IngestStockItems(ctx context.Context, source sync.Source, raws []sync.RawStockItem) (sync.FetchResults, error)
	ProcessPendingStock(ctx context.Context, actor string) (*StockProcessingSummary, error)
}

// Ensure IngestionService implements RecordIngester
var _ RecordIngester = (*IngestionService)(nil)

// SyncMetricsRecorder records fetch telemetry. Implemented by the telemetry
// package; a nil recorder disables metrics.
type SyncMetricsRecorder interface {
	RecordFetch(ctx context.Context, source, kind, status string, duration time.Duration, pages int)
	RecordIngestedRecords(ctx context.Context, source, kind string, results sync.FetchResults)
}

// FetchConfig holds configuration for the fetch attempt loop
type FetchConfig struct {
	// MaxAttempts caps whole-fetch attempts per trigger, first try included
	MaxAttempts int
	// BaseDelay is the backoff before the second attempt; it doubles per
	// further attempt
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay
	MaxDelay time.Duration
	// Timeout bounds one whole fetch including retries and ingestion
	Timeout time.Duration
}

// DefaultFetchConfig returns the default fetch configuration
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		MaxDelay:    60 * time.Second,
		Timeout:     10 * time.Minute,
	}
}

// DefaultHistoryRetention is how long fetch records are kept before the
// retention worker purges them
const DefaultHistoryRetention = 10 * 24 * time.Hour

// finalizeTimeout bounds record saves and guard releases that run after the
// fetch context may already be gone
const finalizeTimeout = 5 * time.Second

// SyncService orchestrates fetches against external portals. One fetch per
// source runs at a time, enforced by the source guard; concurrent triggers
// are rejected before any record is created. Each accepted trigger opens
// exactly one fetch record and finalizes it exactly once, whatever happens
// in between.
type SyncService struct {
	recordRepo sync.FetchRecordRepository
	guard      sync.SourceGuard
	fetcher    sync.PortalFetcher
	ingester   RecordIngester
	cfg        FetchConfig
	logger     *zap.Logger
	metrics    SyncMetricsRecorder
	eventBus   shared.EventPublisher

	// sleep is swapped in tests to skip real backoff delays
	sleep func(ctx context.Context, d time.Duration) error
	wg    gosync.WaitGroup
}

// NewSyncService creates a new SyncService
func NewSyncService(
	recordRepo sync.FetchRecordRepository,
	guard sync.SourceGuard,
	fetcher sync.PortalFetcher,
	ingester RecordIngester,
	cfg FetchConfig,
	logger *zap.Logger,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultFetchConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &SyncService{
		recordRepo: recordRepo,
		guard:      guard,
		fetcher:    fetcher,
		ingester:   ingester,
		cfg:        cfg,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// SetMetrics attaches a metrics recorder
func (s *SyncService) SetMetrics(m SyncMetricsRecorder) {
	s.metrics = m
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SyncService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventBus = publisher
}

// TriggerFetchInput carries the parameters of a fetch trigger
type TriggerFetchInput struct {
	// Source names the external portal to fetch from
	Source sync.Source
	// Kind selects the record set; empty means the source's default
	Kind sync.FetchKind
	// Trigger records what initiated the fetch
	Trigger sync.FetchTrigger
	// Actor is recorded on ledger writes produced by stock processing
	Actor string
}

// TriggerFetch starts a fetch for a source. The source guard is taken
// before the fetch record is created, so a rejected trigger leaves no
// history row behind. The fetch itself runs in the background; callers
// poll history for the outcome.
func (s *SyncService) TriggerFetch(ctx context.Context, input TriggerFetchInput) (*FetchRecordResponse, error) {
	source := input.Source
	if !source.IsValid() {
		return nil, sync.ErrUnknownSource
	}
	kind := input.Kind
	if kind == "" {
		kind = source.DefaultFetchKind()
	}

	if err := s.guard.Acquire(ctx, source); err != nil {
		return nil, err
	}

	record, err := sync.NewFetchRecord(source, kind, input.Trigger)
	if err != nil {
		s.releaseGuard(source)
		return nil, err
	}
	if err := s.recordRepo.Save(ctx, record); err != nil {
		s.releaseGuard(source)
		s.logger.Error("Failed to create fetch record",
			zap.String("source", source.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create fetch record")
	}

	s.logger.Info("Fetch triggered",
		zap.String("fetch_id", record.ID.String()),
		zap.String("source", source.String()),
		zap.String("kind", kind.String()),
		zap.String("trigger", record.Trigger.String()))

	actor := input.Actor
	if actor == "" {
		actor = "sync"
	}

	// snapshot the response before the fetch goroutine starts mutating
	// the record
	resp := ToFetchRecordResponse(record)
	s.wg.Add(1)
	go s.runFetch(record, actor)

	return resp, nil
}

// Wait blocks until every in-flight fetch has finished. Called during
// shutdown so records are finalized before the process exits.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// runFetch drives one fetch end to end on its own goroutine. The record is
// finalized exactly once on every path out, including panics, and the
// source guard is always released.
func (s *SyncService) runFetch(record *sync.FetchRecord, actor string) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	// Start tracing span for the whole fetch
	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "fetch")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrFetchID, record.ID.String(),
		telemetry.SpanAttrSource, record.Source.String(),
		telemetry.SpanAttrFetchKind, record.FetchKind.String(),
		telemetry.SpanAttrTrigger, record.Trigger.String(),
	)

	defer s.releaseGuard(record.Source)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Fetch panicked",
				zap.String("fetch_id", record.ID.String()),
				zap.String("source", record.Source.String()),
				zap.Any("panic", r))
			err := fmt.Errorf("panic: %v", r)
			telemetry.RecordError(span, err)
			s.finalizeFailure(record, err.Error())
		}
	}()

	// Wrap in profiling labels for performance analysis
	telemetry.WithProfilingLabels(ctx, telemetry.FetchLabels(record.Source.String(), record.FetchKind.String()), func(c context.Context) {
		outcome, err := s.runAttempts(c, record)
		if err != nil {
			telemetry.RecordError(span, err)
			s.finalizeFailure(record, err.Error())
			return
		}

		results, err := s.ingest(c, record.Source, record.FetchKind, outcome)
		if err != nil {
			telemetry.RecordError(span, err)
			s.finalizeFailure(record, fmt.Sprintf("ingest: %v", err))
			return
		}

		if err := record.Complete(results, outcome.Pages); err != nil {
			s.logger.Error("Fetch record was already finalized",
				zap.String("fetch_id", record.ID.String()),
				zap.Error(err))
			telemetry.RecordError(span, err)
			return
		}
		telemetry.SetAttributes(span,
			telemetry.SpanAttrAttempt, record.Attempts,
			telemetry.SpanAttrPages, outcome.Pages,
		)
		telemetry.AddEvent(span, "fetch_completed",
			"fetched", results.Fetched,
			"created", results.Created,
			"duration_ms", record.DurationMs,
		)
		s.persistRecord(record)
		s.publishEvents(record)
		s.logger.Info("Fetch completed",
			zap.String("fetch_id", record.ID.String()),
			zap.String("source", record.Source.String()),
			zap.String("kind", record.FetchKind.String()),
			zap.Int("fetched", results.Fetched),
			zap.Int("created", results.Created),
			zap.Int("updated", results.Updated),
			zap.Int("failed", results.Failed),
			zap.Int("skipped", results.Skipped),
			zap.Int("pages", outcome.Pages),
			zap.Int64("duration_ms", record.DurationMs))
		if s.metrics != nil {
			s.metrics.RecordFetch(c, record.Source.String(), record.FetchKind.String(), record.Status.String(), time.Duration(record.DurationMs)*time.Millisecond, record.PagesFetched)
			s.metrics.RecordIngestedRecords(c, record.Source.String(), record.FetchKind.String(), results)
		}

		// Fold the freshly mirrored records into the ledger. Processing
		// failures are logged and retried on the next run; they never
		// un-complete the record.
		if _, err := s.ingester.ProcessPendingStock(c, actor); err != nil {
			s.logger.Error("Stock processing failed after fetch",
				zap.String("source", record.Source.String()),
				zap.Error(err))
		}
	})
}

// runAttempts runs the whole-fetch attempt loop: exponential backoff between
// attempts, re-login when the portal bounces to its login page, immediate
// abort on terminal errors.
func (s *SyncService) runAttempts(ctx context.Context, record *sync.FetchRecord) (*sync.FetchOutcome, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := s.backoffDelay(attempt - 1)
			s.logger.Info("Retrying fetch",
				zap.String("source", record.Source.String()),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			telemetry.AddEvent(telemetry.SpanFromContext(ctx), "fetch_retried",
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
			)
			if err := s.sleep(ctx, delay); err != nil {
				return nil, lastErr
			}
		}

		record.RecordAttempt()
		if err := s.recordRepo.Save(ctx, record); err != nil {
			s.logger.Warn("Failed to persist attempt count", zap.Error(err))
		}

		outcome, err := s.fetcher.Fetch(ctx, record.Source, record.FetchKind)
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, sync.ErrAuthRedirect):
			s.logger.Warn("Portal redirected to login, re-authenticating",
				zap.String("source", record.Source.String()),
				zap.Int("attempt", attempt))
			if loginErr := s.fetcher.Login(ctx, record.Source); loginErr != nil {
				return nil, loginErr
			}
		case sync.IsRetryable(err):
			s.logger.Warn("Fetch attempt failed",
				zap.String("source", record.Source.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		default:
			return nil, err
		}
	}
	return nil, lastErr
}

// backoffDelay returns the delay before the next attempt after the given
// number of failed attempts: base, 2x base, 4x base, capped at MaxDelay.
func (s *SyncService) backoffDelay(failedAttempts int) time.Duration {
	delay := s.cfg.BaseDelay << (failedAttempts - 1)
	if s.cfg.MaxDelay > 0 && delay > s.cfg.MaxDelay {
		delay = s.cfg.MaxDelay
	}
	return delay
}

func (s *SyncService) ingest(ctx context.Context, source sync.Source, kind sync.FetchKind, outcome *sync.FetchOutcome) (sync.FetchResults, error) {
	switch kind {
	case sync.FetchKindInvoices:
		return s.ingester.IngestInvoices(ctx, source, outcome.Invoices)
	case sync.FetchKindOrders:
		return s.ingester.IngestOrders(ctx, source, outcome.Orders)
	default:
		return s.ingester.IngestStockItems(ctx, source, outcome.Items)
	}
}

// finalizeFailure fails the record and persists it. A record that was
// already finalized is left alone, which makes this safe to call from the
// panic handler after a normal finalization.
func (s *SyncService) finalizeFailure(record *sync.FetchRecord, msg string) {
	if err := record.Fail(msg); err != nil {
		return
	}
	s.persistRecord(record)
	s.publishEvents(record)
	s.logger.Error("Fetch failed",
		zap.String("fetch_id", record.ID.String()),
		zap.String("source", record.Source.String()),
		zap.String("kind", record.FetchKind.String()),
		zap.Int("attempts", record.Attempts),
		zap.String("error", msg))
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()
		s.metrics.RecordFetch(ctx, record.Source.String(), record.FetchKind.String(), record.Status.String(), time.Duration(record.DurationMs)*time.Millisecond, record.PagesFetched)
	}
}

// persistRecord saves a finalized record on a fresh context; the fetch
// context may already be past its deadline.
func (s *SyncService) persistRecord(record *sync.FetchRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	if err := s.recordRepo.Save(ctx, record); err != nil {
		s.logger.Error("Failed to persist fetch record",
			zap.String("fetch_id", record.ID.String()),
			zap.Error(err))
	}
}

// publishEvents publishes the record's pending domain events after it has
// been persisted, on a fresh context for the same reason as persistRecord
func (s *SyncService) publishEvents(record *sync.FetchRecord) {
	if s.eventBus == nil {
		record.ClearDomainEvents()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	for _, event := range record.GetDomainEvents() {
		_ = s.eventBus.Publish(ctx, event)
	}
	record.ClearDomainEvents()
}

func (s *SyncService) releaseGuard(source sync.Source) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	if err := s.guard.Release(ctx, source); err != nil {
		s.logger.Warn("Failed to release source guard",
			zap.String("source", source.String()),
			zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// History Queries
// ---------------------------------------------------------------------------

// HistoryQuery filters fetch history reads
type HistoryQuery struct {
	Source string
	Kind   string
	Status string
	Limit  int
}

// GetHistory returns fetch records matching the query, newest first
func (s *SyncService) GetHistory(ctx context.Context, query HistoryQuery) ([]FetchRecordResponse, error) {
	filter := sync.FetchRecordFilter{Limit: query.Limit}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if query.Source != "" {
		src := sync.Source(query.Source)
		if !src.IsValid() {
			return nil, sync.ErrUnknownSource
		}
		filter.Source = &src
	}
	if query.Kind != "" {
		kind := sync.FetchKind(query.Kind)
		if !kind.IsValid() {
			return nil, shared.NewDomainError("INVALID_FETCH_KIND", "Unknown fetch kind")
		}
		filter.FetchKind = &kind
	}
	if query.Status != "" {
		status := sync.FetchStatus(query.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_FETCH_STATUS", "Unknown fetch status")
		}
		filter.Status = &status
	}

	records, err := s.recordRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to query fetch history", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to query fetch history")
	}
	return ToFetchRecordResponses(records), nil
}

// GetRecord returns one fetch record by ID
func (s *SyncService) GetRecord(ctx context.Context, id uuid.UUID) (*FetchRecordResponse, error) {
	record, err := s.recordRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("FETCH_RECORD_NOT_FOUND", "Fetch record not found")
		}
		s.logger.Error("Failed to load fetch record", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load fetch record")
	}
	return ToFetchRecordResponse(record), nil
}

// PurgeExpired deletes fetch records older than the retention window and
// returns how many were removed
func (s *SyncService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	cutoff := time.Now().Add(-retention)
	purged, err := s.recordRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to purge fetch history", zap.Error(err))
		return 0, err
	}
	if purged > 0 {
		s.logger.Info("Purged expired fetch records",
			zap.Int64("purged", purged),
			zap.Time("cutoff", cutoff))
	}
	return purged, nil
}

// sleepContext waits for the delay or the context, whichever ends first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
