package report

import (
	"context"

	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/mapping"
	"github.com/stocksync/backend/internal/domain/report"
	"github.com/stocksync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// ReconciliationService cross-references the purchase ledger against
// ingested sale lines. It is read-only and synchronous: every report is
// computed from the current ledger, no aggregation state is kept between
// calls.
type ReconciliationService struct {
	purchaseRepo inventory.PurchaseRepository
	invoiceRepo  sync.ExternalInvoiceRepository
	resolver     mapping.Resolver
	logger       *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	purchaseRepo inventory.PurchaseRepository,
	invoiceRepo sync.ExternalInvoiceRepository,
	resolver mapping.Resolver,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		purchaseRepo: purchaseRepo,
		invoiceRepo:  invoiceRepo,
		resolver:     resolver,
		logger:       logger,
	}
}

// BuildReport reconciles every purchase batch against every ingested sale
// line. Sale lines are re-resolved from their raw names at read time, so a
// mapping added after ingestion regroups history retroactively. Empty
// inputs produce an empty report, not an error.
func (s *ReconciliationService) BuildReport(ctx context.Context) (*report.ReconciliationReport, error) {
	// The zero filter loads the whole ledger. Fully consumed batches stay
	// in: TotalPurchased must cover them or sold-out items would surface
	// as unmatched sales.
	purchases, err := s.purchaseRepo.FindAll(ctx, inventory.PurchaseFilter{})
	if err != nil {
		return nil, err
	}
	lines, err := s.invoiceRepo.ListLines(ctx)
	if err != nil {
		return nil, err
	}

	batches := make([]report.PurchaseBatch, 0, len(purchases))
	for i := range purchases {
		p := &purchases[i]
		batches = append(batches, report.PurchaseBatch{
			ItemName:  p.ItemName,
			Quantity:  p.Quantity,
			Remaining: p.RemainingQuantity,
			UnitPrice: p.PurchasePrice,
		})
	}
	sales := make([]report.SaleLine, 0, len(lines))
	for i := range lines {
		l := &lines[i]
		sales = append(sales, report.SaleLine{
			ItemName:  l.RawItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	reconciler := report.NewReconciler(s.resolveFunc(ctx))
	rep := reconciler.Reconcile(batches, sales)

	s.logger.Debug("Reconciliation report built",
		zap.Int("batches", len(batches)),
		zap.Int("sale_lines", len(sales)),
		zap.Int("identities", rep.Summary.TotalItems))
	return rep, nil
}

func (s *ReconciliationService) resolveFunc(ctx context.Context) report.ResolveFunc {
	table, err := s.resolver.Lookup(ctx)
	if err != nil {
		// Raw names still reconcile against themselves; only cross-source
		// grouping is lost until the lookup recovers.
		s.logger.Warn("Alias lookup unavailable, reconciling raw names", zap.Error(err))
		return nil
	}
	return table.Resolve
}
