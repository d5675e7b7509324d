package report

import (
	"context"
	"time"

	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/report"
	"github.com/stocksync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// HealthMetricsRecorder records health scores. Implemented by the telemetry
// package; a nil recorder disables metrics.
type HealthMetricsRecorder interface {
	RecordHealthScore(ctx context.Context, score int, status string)
}

// SyncHealthService assembles the health scorer's snapshot from fetch
// history, mirror backlog and inventory staleness counters. Empty history
// is a valid snapshot (it scores with the staleness penalty); only
// repository failures surface as errors.
type SyncHealthService struct {
	recordRepo    sync.FetchRecordRepository
	orderRepo     sync.ExternalOrderRepository
	invoiceRepo   sync.ExternalInvoiceRepository
	stockItemRepo sync.ExternalStockItemRepository
	itemRepo      inventory.InventoryItemRepository
	logger        *zap.Logger
	metrics       HealthMetricsRecorder
}

// NewSyncHealthService creates a new SyncHealthService
func NewSyncHealthService(
	recordRepo sync.FetchRecordRepository,
	orderRepo sync.ExternalOrderRepository,
	invoiceRepo sync.ExternalInvoiceRepository,
	stockItemRepo sync.ExternalStockItemRepository,
	itemRepo inventory.InventoryItemRepository,
	logger *zap.Logger,
) *SyncHealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHealthService{
		recordRepo:    recordRepo,
		orderRepo:     orderRepo,
		invoiceRepo:   invoiceRepo,
		stockItemRepo: stockItemRepo,
		itemRepo:      itemRepo,
		logger:        logger,
	}
}

// Evaluate scores the current pipeline state
func (s *SyncHealthService) Evaluate(ctx context.Context) (*report.HealthReport, error) {
	now := time.Now()
	snap := &report.HealthSnapshot{Now: now}

	lastCompleted, err := s.newestCompletedFetch(ctx)
	if err != nil {
		return nil, err
	}
	snap.LastCompletedFetch = lastCompleted

	counts, err := s.recordRepo.CountByStatusSince(ctx, now.Add(-report.FetchHistoryWindow))
	if err != nil {
		return nil, err
	}
	// Cancelled fetches were aborted before doing work; they count toward
	// neither side of the success rate.
	snap.SuccessCount = counts[sync.FetchStatusCompleted]
	snap.FailureCount = counts[sync.FetchStatusFailed]

	pending, err := s.countPendingStock(ctx)
	if err != nil {
		return nil, err
	}
	snap.PendingStock = pending

	if snap.StaleItems, err = s.itemRepo.CountStale(ctx, now.Add(-report.StaleItemAge)); err != nil {
		return nil, err
	}
	if snap.UnsyncedItems, err = s.itemRepo.CountUnsynced(ctx); err != nil {
		return nil, err
	}
	if snap.TotalItems, err = s.itemRepo.Count(ctx, inventory.InventoryItemFilter{}); err != nil {
		return nil, err
	}

	if snap.Sources, err = s.sourceStatuses(ctx); err != nil {
		return nil, err
	}

	rep := report.Score(snap)
	s.logger.Debug("Sync health evaluated",
		zap.Int("score", rep.Score),
		zap.String("status", string(rep.Status)),
		zap.Int("warnings", len(rep.Warnings)))
	if s.metrics != nil {
		s.metrics.RecordHealthScore(ctx, rep.Score, string(rep.Status))
	}
	return rep, nil
}

// SetMetrics attaches a metrics recorder
func (s *SyncHealthService) SetMetrics(m HealthMetricsRecorder) {
	s.metrics = m
}

// newestCompletedFetch finds when a fetch last brought data home. The
// newest record per source may be a failure, so this queries by status
// instead of reusing the per-source map.
func (s *SyncHealthService) newestCompletedFetch(ctx context.Context) (*time.Time, error) {
	status := sync.FetchStatusCompleted
	records, err := s.recordRepo.FindAll(ctx, sync.FetchRecordFilter{Status: &status, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0].CompletedAt, nil
}

func (s *SyncHealthService) countPendingStock(ctx context.Context) (int64, error) {
	var total int64
	for _, count := range []func(context.Context) (int64, error){
		s.orderRepo.CountPendingStock,
		s.invoiceRepo.CountPendingStock,
		s.stockItemRepo.CountPendingStock,
	} {
		n, err := count(ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// sourceStatuses reports the last fetch per known source. Sources that have
// never fetched (or whose history was purged) appear with an empty status
// so operators see them rather than wondering where they went.
func (s *SyncHealthService) sourceStatuses(ctx context.Context) ([]report.SourceFetchStatus, error) {
	latest, err := s.recordRepo.FindLatestBySource(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]report.SourceFetchStatus, 0, len(latest))
	for _, source := range sync.AllSources() {
		status := report.SourceFetchStatus{Source: source.String()}
		if record, ok := latest[source]; ok {
			status.Kind = record.FetchKind.String()
			status.LastStatus = record.Status.String()
			status.LastError = record.ErrorMessage
			status.RecordCount = record.Results.Fetched
			if record.CompletedAt != nil {
				status.LastFetchedAt = record.CompletedAt
			} else {
				started := record.StartedAt
				status.LastFetchedAt = &started
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
