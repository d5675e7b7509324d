package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/mapping"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// IngestionConfig holds configuration for mirror ingestion
type IngestionConfig struct {
	// ProcessBatchSize caps how many unprocessed mirrors one stock
	// processing run folds per mirror kind
	ProcessBatchSize int
}

// DefaultIngestionConfig returns the default ingestion configuration
func DefaultIngestionConfig() IngestionConfig {
	return IngestionConfig{
		ProcessBatchSize: 100,
	}
}

// IngestionService turns raw scraped records into mirror rows and folds
// unprocessed mirrors into the purchase and stock ledgers. Upserts are
// idempotent per natural key; folding is guarded by each mirror's
// stock-processed flag and by purchase source refs, so re-fetching the same
// records never double counts stock.
type IngestionService struct {
	resolver    mapping.Resolver
	invoiceRepo sync.ExternalInvoiceRepository
	orderRepo   sync.ExternalOrderRepository
	itemRepo    sync.ExternalStockItemRepository
	scope       TransactionScope
	cfg         IngestionConfig
	logger      *zap.Logger
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	resolver mapping.Resolver,
	invoiceRepo sync.ExternalInvoiceRepository,
	orderRepo sync.ExternalOrderRepository,
	itemRepo sync.ExternalStockItemRepository,
	scope TransactionScope,
	cfg IngestionConfig,
	logger *zap.Logger,
) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProcessBatchSize <= 0 {
		cfg.ProcessBatchSize = DefaultIngestionConfig().ProcessBatchSize
	}
	return &IngestionService{
		resolver:    resolver,
		invoiceRepo: invoiceRepo,
		orderRepo:   orderRepo,
		itemRepo:    itemRepo,
		scope:       scope,
		cfg:         cfg,
		logger:      logger,
	}
}

// resolveFunc returns the canonicalization function for one ingestion batch.
// The lookup table is fetched once per batch; when the mapping store is
// unreachable, names pass through unchanged. Raw spellings are kept on every
// line and reconciliation re-resolves at read time, so a degraded batch
// heals on the next mapping edit.
func (s *IngestionService) resolveFunc(ctx context.Context) func(string) string {
	table, err := s.resolver.Lookup(ctx)
	if err != nil {
		s.logger.Warn("Alias lookup unavailable, ingesting with raw names", zap.Error(err))
		return func(name string) string { return name }
	}
	return table.Resolve
}

// IngestInvoices upserts scraped sales invoices into the mirror store.
// Rows that fail validation count as failed, header-only rows as skipped;
// one bad row never aborts the batch.
func (s *IngestionService) IngestInvoices(ctx context.Context, source sync.Source, raws []sync.RawInvoice) (sync.FetchResults, error) {
	results := sync.FetchResults{}
	resolve := s.resolveFunc(ctx)

	for i := range raws {
		results.Fetched++
		mirror, err := sync.NewExternalInvoice(source, &raws[i], resolve)
		if err != nil {
			if errors.Is(err, sync.ErrRawRecordEmpty) {
				results.Skipped++
				continue
			}
			results.Failed++
			s.logger.Warn("Rejected scraped invoice",
				zap.String("source", source.String()),
				zap.String("invoice_number", raws[i].InvoiceNumber),
				zap.Error(err))
			continue
		}
		created, err := s.invoiceRepo.UpsertByNaturalKey(ctx, mirror)
		if err != nil {
			results.Failed++
			s.logger.Error("Failed to upsert invoice mirror",
				zap.String("natural_key", mirror.NaturalKey()),
				zap.Error(err))
			continue
		}
		if created {
			results.Created++
		} else {
			results.Updated++
		}
	}

	s.logIngested("invoices", source, results)
	return results, nil
}

// IngestOrders upserts scraped purchase orders into the mirror store
func (s *IngestionService) IngestOrders(ctx context.Context, source sync.Source, raws []sync.RawOrder) (sync.FetchResults, error) {
	results := sync.FetchResults{}
	resolve := s.resolveFunc(ctx)

	for i := range raws {
		results.Fetched++
		mirror, err := sync.NewExternalOrder(source, &raws[i], resolve)
		if err != nil {
			if errors.Is(err, sync.ErrRawRecordEmpty) {
				results.Skipped++
				continue
			}
			results.Failed++
			s.logger.Warn("Rejected scraped order",
				zap.String("source", source.String()),
				zap.String("order_number", raws[i].ExternalRef),
				zap.Error(err))
			continue
		}
		created, err := s.orderRepo.UpsertByNaturalKey(ctx, mirror)
		if err != nil {
			results.Failed++
			s.logger.Error("Failed to upsert order mirror",
				zap.String("natural_key", mirror.NaturalKey()),
				zap.Error(err))
			continue
		}
		if created {
			results.Created++
		} else {
			results.Updated++
		}
	}

	s.logIngested("orders", source, results)
	return results, nil
}

// IngestStockItems upserts scraped stock listing rows into the mirror store
func (s *IngestionService) IngestStockItems(ctx context.Context, source sync.Source, raws []sync.RawStockItem) (sync.FetchResults, error) {
	results := sync.FetchResults{}
	resolve := s.resolveFunc(ctx)

	for i := range raws {
		results.Fetched++
		mirror, err := sync.NewExternalStockItem(source, &raws[i], resolve)
		if err != nil {
			results.Failed++
			s.logger.Warn("Rejected scraped stock item",
				zap.String("source", source.String()),
				zap.String("name", raws[i].Name),
				zap.Error(err))
			continue
		}
		created, err := s.itemRepo.UpsertByNaturalKey(ctx, mirror)
		if err != nil {
			results.Failed++
			s.logger.Error("Failed to upsert stock item mirror",
				zap.String("natural_key", mirror.NaturalKey()),
				zap.Error(err))
			continue
		}
		if created {
			results.Created++
		} else {
			results.Updated++
		}
	}

	s.logIngested("items", source, results)
	return results, nil
}

func (s *IngestionService) logIngested(kind string, source sync.Source, results sync.FetchResults) {
	s.logger.Info("Ingested scraped records",
		zap.String("kind", kind),
		zap.String("source", source.String()),
		zap.Int("fetched", results.Fetched),
		zap.Int("created", results.Created),
		zap.Int("updated", results.Updated),
		zap.Int("failed", results.Failed),
		zap.Int("skipped", results.Skipped))
}

// ---------------------------------------------------------------------------
// Stock Processing
// ---------------------------------------------------------------------------

// StockProcessingSummary reports what one stock processing run folded into
// the ledger
type StockProcessingSummary struct {
	OrdersProcessed   int `json:"orders_processed"`
	InvoicesProcessed int `json:"invoices_processed"`
	ItemsProcessed    int `json:"items_processed"`
	PurchasesCreated  int `json:"purchases_created"`
	Failed            int `json:"failed"`
}

// ProcessPendingStock folds every unprocessed mirror into the purchase and
// stock ledgers. Each mirror is one transaction: its ledger writes and its
// processed flag commit together, and one bad mirror fails alone without
// poisoning the rest of the run.
func (s *IngestionService) ProcessPendingStock(ctx context.Context, actor string) (*StockProcessingSummary, error) {
	summary := &StockProcessingSummary{}

	orders, err := s.orderRepo.FindUnprocessed(ctx, s.cfg.ProcessBatchSize)
	if err != nil {
		return nil, fmt.Errorf("find unprocessed orders: %w", err)
	}
	for i := range orders {
		created, err := s.processOrder(ctx, &orders[i], actor)
		if err != nil {
			summary.Failed++
			s.logger.Error("Failed to fold order into stock ledger",
				zap.String("natural_key", orders[i].NaturalKey()),
				zap.Error(err))
			continue
		}
		summary.OrdersProcessed++
		summary.PurchasesCreated += created
	}

	invoices, err := s.invoiceRepo.FindUnprocessed(ctx, s.cfg.ProcessBatchSize)
	if err != nil {
		return nil, fmt.Errorf("find unprocessed invoices: %w", err)
	}
	for i := range invoices {
		if err := s.processInvoice(ctx, &invoices[i], actor); err != nil {
			summary.Failed++
			s.logger.Error("Failed to fold invoice into stock ledger",
				zap.String("natural_key", invoices[i].NaturalKey()),
				zap.Error(err))
			continue
		}
		summary.InvoicesProcessed++
	}

	items, err := s.itemRepo.FindUnprocessed(ctx, s.cfg.ProcessBatchSize)
	if err != nil {
		return nil, fmt.Errorf("find unprocessed stock items: %w", err)
	}
	for i := range items {
		if err := s.processStockItem(ctx, &items[i]); err != nil {
			summary.Failed++
			s.logger.Error("Failed to apply stock item to catalog",
				zap.String("natural_key", items[i].NaturalKey()),
				zap.Error(err))
			continue
		}
		summary.ItemsProcessed++
	}

	if summary.OrdersProcessed+summary.InvoicesProcessed+summary.ItemsProcessed+summary.Failed > 0 {
		s.logger.Info("Stock processing run finished",
			zap.Int("orders", summary.OrdersProcessed),
			zap.Int("invoices", summary.InvoicesProcessed),
			zap.Int("items", summary.ItemsProcessed),
			zap.Int("purchases_created", summary.PurchasesCreated),
			zap.Int("failed", summary.Failed))
	}
	return summary, nil
}

// processOrder creates one purchase batch per order line and books the
// matching stock increase, then marks the mirror processed. Returns how
// many purchases were created; lines whose source ref already exists are
// folded into nothing.
func (s *IngestionService) processOrder(ctx context.Context, order *sync.ExternalOrder, actor string) (int, error) {
	created := 0
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for i := range order.Lines {
			wasCreated, err := s.foldOrderLine(ctx, repos, order, &order.Lines[i], actor)
			if err != nil {
				return err
			}
			if wasCreated {
				created++
			}
		}
		if err := order.MarkStockProcessed(); err != nil {
			return err
		}
		return repos.OrderMirrorRepo().Save(ctx, order)
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *IngestionService) foldOrderLine(ctx context.Context, repos TransactionalRepositories, order *sync.ExternalOrder, line *sync.ExternalOrderLine, actor string) (bool, error) {
	naturalKey := line.NaturalKey(order.NaturalKey())

	existing, err := repos.PurchaseRepo().FindBySourceRef(ctx, order.Source.String(), inventory.SourceRefKindOrderLine, naturalKey)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	canonical := line.CanonicalItemName
	if canonical == "" {
		canonical = line.RawItemName
	}
	item, err := repos.ItemRepo().GetOrCreate(ctx, inventory.SKUFromName(canonical), canonical)
	if err != nil {
		return false, err
	}

	purchase, err := inventory.NewPurchase(item.ID, canonical, line.Quantity, line.UnitPrice, item.SellingPrice, order.Supplier, order.OrderedAt)
	if err != nil {
		return false, err
	}
	purchase.WithSourceRef(order.Source.String(), inventory.SourceRefKindOrderLine, naturalKey)
	if err := repos.PurchaseRepo().Save(ctx, purchase); err != nil {
		return false, err
	}

	entry, err := item.ApplyStockDelta(line.Quantity, inventory.ReasonPurchaseIngested, actor)
	if err != nil {
		return false, err
	}
	entry.WithRef(inventory.RefTypeExternalOrder, order.ID.String())
	if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
		return false, err
	}
	if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
		return false, err
	}

	movement, err := inventory.NewStockMovement(item.SKU, inventory.MovementIn, line.Quantity, inventory.RefTypePurchase, purchase.ID.String(), actor)
	if err != nil {
		return false, err
	}
	movement.WithOccurredAt(order.OrderedAt)
	if err := repos.MovementRepo().Append(ctx, movement); err != nil {
		return false, err
	}
	return true, nil
}

// processInvoice books the stock decrease for every invoice line and marks
// the mirror processed. Sales may drive stock negative; reconciliation
// surfaces those rows as oversold.
func (s *IngestionService) processInvoice(ctx context.Context, invoice *sync.ExternalInvoice, actor string) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for i := range invoice.Lines {
			line := &invoice.Lines[i]
			canonical := line.CanonicalItemName
			if canonical == "" {
				canonical = line.RawItemName
			}
			item, err := repos.ItemRepo().GetOrCreate(ctx, inventory.SKUFromName(canonical), canonical)
			if err != nil {
				return err
			}
			entry, err := item.ApplyStockDelta(line.Quantity.Neg(), inventory.ReasonSaleIngested, actor)
			if err != nil {
				return err
			}
			entry.WithRef(inventory.RefTypeExternalInvoice, invoice.ID.String())
			if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
				return err
			}
			if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
				return err
			}
			movement, err := inventory.NewStockMovement(item.SKU, inventory.MovementOut, line.Quantity, inventory.RefTypeExternalInvoice, invoice.ID.String(), actor)
			if err != nil {
				return err
			}
			movement.WithOccurredAt(invoice.InvoicedAt)
			if err := repos.MovementRepo().Append(ctx, movement); err != nil {
				return err
			}
		}
		if err := invoice.MarkStockProcessed(); err != nil {
			return err
		}
		return repos.InvoiceMirrorRepo().Save(ctx, invoice)
	})
}

// processStockItem refreshes catalog metadata from a stock listing row.
// Listing quantities describe the portal's own stock, not ours, so the
// ledger is untouched; only prices and the sync timestamp move.
func (s *IngestionService) processStockItem(ctx context.Context, item *sync.ExternalStockItem) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		canonical := item.CanonicalItemName
		if canonical == "" {
			canonical = item.RawName
		}
		inv, err := repos.ItemRepo().GetOrCreate(ctx, inventory.SKUFromName(canonical), canonical)
		if err != nil {
			return err
		}
		inv.MarkSynced(item.FetchedAt)
		if item.UnitPrice.IsPositive() {
			if err := inv.UpdatePrices(inv.LastPurchasePrice, item.UnitPrice); err != nil {
				return err
			}
		}
		if err := repos.ItemRepo().Save(ctx, inv); err != nil {
			return err
		}
		if err := item.MarkStockProcessed(); err != nil {
			return err
		}
		return repos.StockItemMirrorRepo().Save(ctx, item)
	})
}
