package persistence

import (
	"context"
	"errors"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExternalInvoiceRepository implements ExternalInvoiceRepository using GORM
type GormExternalInvoiceRepository struct {
	db *gorm.DB
}

// NewGormExternalInvoiceRepository creates a new GormExternalInvoiceRepository
func NewGormExternalInvoiceRepository(db *gorm.DB) *GormExternalInvoiceRepository {
	return &GormExternalInvoiceRepository{db: db}
}

// UpsertByNaturalKey creates the mirror or refreshes the row with the same
// (source, invoice number). On refresh the stored identity and processing
// state survive and the lines are replaced wholesale.
func (r *GormExternalInvoiceRepository) UpsertByNaturalKey(ctx context.Context, invoice *sync.ExternalInvoice) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing sync.ExternalInvoice
		err := tx.Where("source = ? AND invoice_number = ?", invoice.Source, invoice.InvoiceNumber).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			if err := tx.Omit(clause.Associations).Create(invoice).Error; err != nil {
				return err
			}
			return createInvoiceLines(tx, invoice)
		}
		if err != nil {
			return err
		}

		invoice.ID = existing.ID
		invoice.CreatedAt = existing.CreatedAt
		invoice.Version = existing.Version + 1
		invoice.StockProcessed = existing.StockProcessed
		invoice.StockProcessedAt = existing.StockProcessedAt
		for i := range invoice.Lines {
			invoice.Lines[i].InvoiceID = existing.ID
		}
		if err := tx.Where("invoice_id = ?", existing.ID).Delete(&sync.ExternalInvoiceLine{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(invoice).Error; err != nil {
			return err
		}
		return createInvoiceLines(tx, invoice)
	})
	return created, err
}

func createInvoiceLines(tx *gorm.DB, invoice *sync.ExternalInvoice) error {
	if len(invoice.Lines) == 0 {
		return nil
	}
	return tx.Create(&invoice.Lines).Error
}

// FindByNaturalKey finds a mirror by its business key, lines loaded
func (r *GormExternalInvoiceRepository) FindByNaturalKey(ctx context.Context, source sync.Source, invoiceNumber string) (*sync.ExternalInvoice, error) {
	var invoice sync.ExternalInvoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("source = ? AND invoice_number = ?", source, invoiceNumber).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindAll finds mirrors matching the filter, newest fetch first, lines loaded
func (r *GormExternalInvoiceRepository) FindAll(ctx context.Context, filter sync.MirrorFilter) ([]sync.ExternalInvoice, error) {
	var invoices []sync.ExternalInvoice
	query := r.db.WithContext(ctx).Model(&sync.ExternalInvoice{}).Preload("Lines")

	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.StockProcessed != nil {
		query = query.Where("stock_processed = ?", *filter.StockProcessed)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("fetched_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindUnprocessed finds mirrors not yet folded into the ledger, oldest
// document first so the ledger fills in chronological order
func (r *GormExternalInvoiceRepository) FindUnprocessed(ctx context.Context, limit int) ([]sync.ExternalInvoice, error) {
	var invoices []sync.ExternalInvoice
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where("stock_processed = ?", false).
		Order("invoiced_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save persists mirror mutations, leaving the lines untouched
func (r *GormExternalInvoiceRepository) Save(ctx context.Context, invoice *sync.ExternalInvoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error
}

// ListLines returns every invoice line; reconciliation's sale input
func (r *GormExternalInvoiceRepository) ListLines(ctx context.Context) ([]sync.ExternalInvoiceLine, error) {
	var lines []sync.ExternalInvoiceLine
	if err := r.db.WithContext(ctx).Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// DistinctRawItemNames lists raw item spellings seen on invoice lines
func (r *GormExternalInvoiceRepository) DistinctRawItemNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&sync.ExternalInvoiceLine{}).
		Distinct().
		Order("raw_item_name ASC").
		Pluck("raw_item_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// CountPendingStock counts mirrors awaiting stock processing
func (r *GormExternalInvoiceRepository) CountPendingStock(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sync.ExternalInvoice{}).
		Where("stock_processed = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormExternalInvoiceRepository implements ExternalInvoiceRepository
var _ sync.ExternalInvoiceRepository = (*GormExternalInvoiceRepository)(nil)
