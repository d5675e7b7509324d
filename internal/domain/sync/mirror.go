package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
)

// Mirrors are faithful copies of external entities, keyed by the natural
// business key unique to their source. Upserting by natural key is
// idempotent: re-fetching the same entity refreshes the mirror row but
// never creates a second one. Each mirror owns a stock-processed flag that
// marks whether it has been folded into the purchase/stock-movement
// ledger; processing is one-way so repeated fetches never double count.

// ErrAlreadyProcessed is returned when folding a mirror that was already
// folded into the stock ledger.
var ErrAlreadyProcessed = shared.NewDomainError("MIRROR_ALREADY_PROCESSED", "External record is already folded into the stock ledger")

// ---------------------------------------------------------------------------
// External Invoice Mirror
// ---------------------------------------------------------------------------

// ExternalInvoiceLine is one line of a mirrored sales invoice. RawItemName
// is kept exactly as scraped; CanonicalItemName is resolved at ingestion
// time, and reconciliation re-resolves at read time so later mapping edits
// regroup history retroactively.
type ExternalInvoiceLine struct {
	shared.BaseEntity
	InvoiceID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_ext_invoice_lines_invoice"`
	LineRef           string          `gorm:"type:varchar(50)"`
	RawItemName       string          `gorm:"type:varchar(255);not null"`
	CanonicalItemName string          `gorm:"type:varchar(255);not null;index"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ExternalInvoiceLine) TableName() string {
	return "external_invoice_lines"
}

// ExternalInvoice mirrors one sales invoice from an external portal,
// keyed by (source, invoice number).
type ExternalInvoice struct {
	shared.BaseAggregateRoot
	Source           Source     `gorm:"type:varchar(30);not null;uniqueIndex:idx_ext_invoices_natural,priority:1"`
	InvoiceNumber    string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_ext_invoices_natural,priority:2"`
	Customer         string     `gorm:"type:varchar(255)"`
	InvoicedAt       time.Time  `gorm:"type:timestamptz;not null;index"`
	FetchedAt        time.Time  `gorm:"type:timestamptz;not null"`
	StockProcessed   bool       `gorm:"not null;default:false;index"`
	StockProcessedAt *time.Time `gorm:"type:timestamptz"`

	Lines []ExternalInvoiceLine `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (ExternalInvoice) TableName() string {
	return "external_invoices"
}

// NewExternalInvoice builds a mirror from a validated raw scrape, resolving
// each line's canonical identity through the supplied resolver
func NewExternalInvoice(source Source, raw *RawInvoice, resolve func(string) string) (*ExternalInvoice, error) {
	if !source.IsValid() {
		return nil, ErrUnknownSource
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	inv := &ExternalInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Source:            source,
		InvoiceNumber:     raw.InvoiceNumber,
		Customer:          raw.Customer,
		InvoicedAt:        raw.InvoicedAt,
		FetchedAt:         time.Now(),
		Lines:             make([]ExternalInvoiceLine, 0, len(raw.Lines)),
	}
	for _, l := range raw.Lines {
		inv.Lines = append(inv.Lines, ExternalInvoiceLine{
			BaseEntity:        shared.NewBaseEntity(),
			InvoiceID:         inv.ID,
			LineRef:           l.LineRef,
			RawItemName:       l.ItemName,
			CanonicalItemName: resolve(l.ItemName),
			Quantity:          l.Quantity,
			UnitPrice:         l.UnitPrice,
		})
	}
	return inv, nil
}

// NaturalKey returns the source-scoped business key of the invoice
func (i *ExternalInvoice) NaturalKey() string {
	return fmt.Sprintf("%s/%s", i.Source, i.InvoiceNumber)
}

// RefreshFrom updates mirror fields from a re-fetched raw record. The
// stock-processed flag survives refreshes; processing never repeats.
func (i *ExternalInvoice) RefreshFrom(raw *RawInvoice, resolve func(string) string) error {
	if err := raw.Validate(); err != nil {
		return err
	}
	i.Customer = raw.Customer
	i.InvoicedAt = raw.InvoicedAt
	i.FetchedAt = time.Now()
	lines := make([]ExternalInvoiceLine, 0, len(raw.Lines))
	for _, l := range raw.Lines {
		lines = append(lines, ExternalInvoiceLine{
			BaseEntity:        shared.NewBaseEntity(),
			InvoiceID:         i.ID,
			LineRef:           l.LineRef,
			RawItemName:       l.ItemName,
			CanonicalItemName: resolve(l.ItemName),
			Quantity:          l.Quantity,
			UnitPrice:         l.UnitPrice,
		})
	}
	i.Lines = lines
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// MarkStockProcessed flags the invoice as folded into the stock ledger.
// Folding happens exactly once; a second attempt is an error.
func (i *ExternalInvoice) MarkStockProcessed() error {
	if i.StockProcessed {
		return ErrAlreadyProcessed
	}
	now := time.Now()
	i.StockProcessed = true
	i.StockProcessedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()
	return nil
}

// ---------------------------------------------------------------------------
// External Order Mirror
// ---------------------------------------------------------------------------

// ExternalOrderLine is one line of a mirrored purchase order
type ExternalOrderLine struct {
	shared.BaseEntity
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_ext_order_lines_order"`
	LineRef           string          `gorm:"type:varchar(50)"`
	RawItemName       string          `gorm:"type:varchar(255);not null"`
	CanonicalItemName string          `gorm:"type:varchar(255);not null;index"`
	ExternalSKU       string          `gorm:"type:varchar(100)"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ExternalOrderLine) TableName() string {
	return "external_order_lines"
}

// NaturalKey returns the key that dedupes the purchase ingested from this
// line: the owning order's key plus the line reference
func (l *ExternalOrderLine) NaturalKey(orderKey string) string {
	ref := l.LineRef
	if ref == "" {
		ref = l.RawItemName
	}
	return fmt.Sprintf("%s#%s", orderKey, ref)
}

// ExternalOrder mirrors one purchase order from an external portal,
// keyed by (source, order number).
type ExternalOrder struct {
	shared.BaseAggregateRoot
	Source           Source     `gorm:"type:varchar(30);not null;uniqueIndex:idx_ext_orders_natural,priority:1"`
	OrderNumber      string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_ext_orders_natural,priority:2"`
	Supplier         string     `gorm:"type:varchar(255)"`
	OrderedAt        time.Time  `gorm:"type:timestamptz;not null;index"`
	FetchedAt        time.Time  `gorm:"type:timestamptz;not null"`
	StockProcessed   bool       `gorm:"not null;default:false;index"`
	StockProcessedAt *time.Time `gorm:"type:timestamptz"`

	Lines []ExternalOrderLine `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (ExternalOrder) TableName() string {
	return "external_orders"
}

// NewExternalOrder builds a mirror from a validated raw scrape
func NewExternalOrder(source Source, raw *RawOrder, resolve func(string) string) (*ExternalOrder, error) {
	if !source.IsValid() {
		return nil, ErrUnknownSource
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	order := &ExternalOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Source:            source,
		OrderNumber:       raw.ExternalRef,
		Supplier:          raw.Supplier,
		OrderedAt:         raw.OrderedAt,
		FetchedAt:         time.Now(),
		Lines:             make([]ExternalOrderLine, 0, len(raw.Lines)),
	}
	for _, l := range raw.Lines {
		order.Lines = append(order.Lines, ExternalOrderLine{
			BaseEntity:        shared.NewBaseEntity(),
			OrderID:           order.ID,
			LineRef:           l.LineRef,
			RawItemName:       l.ItemName,
			CanonicalItemName: resolve(l.ItemName),
			ExternalSKU:       l.ExternalSKU,
			Quantity:          l.Quantity,
			UnitPrice:         l.UnitPrice,
		})
	}
	return order, nil
}

// NaturalKey returns the source-scoped business key of the order
func (o *ExternalOrder) NaturalKey() string {
	return fmt.Sprintf("%s/%s", o.Source, o.OrderNumber)
}

// RefreshFrom updates mirror fields from a re-fetched raw record,
// preserving the stock-processed flag
func (o *ExternalOrder) RefreshFrom(raw *RawOrder, resolve func(string) string) error {
	if err := raw.Validate(); err != nil {
		return err
	}
	o.Supplier = raw.Supplier
	o.OrderedAt = raw.OrderedAt
	o.FetchedAt = time.Now()
	lines := make([]ExternalOrderLine, 0, len(raw.Lines))
	for _, l := range raw.Lines {
		lines = append(lines, ExternalOrderLine{
			BaseEntity:        shared.NewBaseEntity(),
			OrderID:           o.ID,
			LineRef:           l.LineRef,
			RawItemName:       l.ItemName,
			CanonicalItemName: resolve(l.ItemName),
			ExternalSKU:       l.ExternalSKU,
			Quantity:          l.Quantity,
			UnitPrice:         l.UnitPrice,
		})
	}
	o.Lines = lines
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// MarkStockProcessed flags the order as folded into the stock ledger
func (o *ExternalOrder) MarkStockProcessed() error {
	if o.StockProcessed {
		return ErrAlreadyProcessed
	}
	now := time.Now()
	o.StockProcessed = true
	o.StockProcessedAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	return nil
}

// ---------------------------------------------------------------------------
// External Stock Item Mirror
// ---------------------------------------------------------------------------

// ExternalStockItem mirrors one row of an external portal's stock listing,
// keyed by (source, external SKU or raw name when the portal shows no SKU).
type ExternalStockItem struct {
	shared.BaseAggregateRoot
	Source            Source          `gorm:"type:varchar(30);not null;uniqueIndex:idx_ext_items_natural,priority:1"`
	ExternalSKU       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_ext_items_natural,priority:2"`
	RawName           string          `gorm:"type:varchar(255);not null"`
	CanonicalItemName string          `gorm:"type:varchar(255);not null;index"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FetchedAt         time.Time       `gorm:"type:timestamptz;not null"`
	StockProcessed    bool            `gorm:"not null;default:false;index"`
	StockProcessedAt  *time.Time      `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (ExternalStockItem) TableName() string {
	return "external_stock_items"
}

// NewExternalStockItem builds a mirror from a validated raw scrape
func NewExternalStockItem(source Source, raw *RawStockItem, resolve func(string) string) (*ExternalStockItem, error) {
	if !source.IsValid() {
		return nil, ErrUnknownSource
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	sku := raw.ExternalSKU
	if sku == "" {
		sku = raw.Name
	}
	return &ExternalStockItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Source:            source,
		ExternalSKU:       sku,
		RawName:           raw.Name,
		CanonicalItemName: resolve(raw.Name),
		Quantity:          raw.Quantity,
		UnitPrice:         raw.UnitPrice,
		FetchedAt:         time.Now(),
	}, nil
}

// NaturalKey returns the source-scoped business key of the item
func (s *ExternalStockItem) NaturalKey() string {
	return fmt.Sprintf("%s/%s", s.Source, s.ExternalSKU)
}

// RefreshFrom updates mirror fields from a re-fetched raw record,
// preserving the stock-processed flag
func (s *ExternalStockItem) RefreshFrom(raw *RawStockItem, resolve func(string) string) error {
	if err := raw.Validate(); err != nil {
		return err
	}
	s.RawName = raw.Name
	s.CanonicalItemName = resolve(raw.Name)
	s.Quantity = raw.Quantity
	s.UnitPrice = raw.UnitPrice
	s.FetchedAt = time.Now()
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// MarkStockProcessed flags the item as applied to the inventory catalog
func (s *ExternalStockItem) MarkStockProcessed() error {
	if s.StockProcessed {
		return ErrAlreadyProcessed
	}
	now := time.Now()
	s.StockProcessed = true
	s.StockProcessedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()
	return nil
}

// ---------------------------------------------------------------------------
// Mirror Repository Interfaces
// ---------------------------------------------------------------------------

// MirrorFilter defines filter criteria for mirror queries
type MirrorFilter struct {
	// Source filters by external source (optional)
	Source *Source
	// StockProcessed filters by processing state (optional)
	StockProcessed *bool
	// Limit caps the number of rows returned, newest first
	Limit int
}

// ExternalInvoiceRepository defines the interface for invoice mirrors
type ExternalInvoiceRepository interface {
	// UpsertByNaturalKey creates the mirror or refreshes the existing row
	// with the same (source, invoice number); reports whether a new row
	// was created
	UpsertByNaturalKey(ctx context.Context, invoice *ExternalInvoice) (created bool, err error)

	// FindByNaturalKey finds a mirror by its business key
	FindByNaturalKey(ctx context.Context, source Source, invoiceNumber string) (*ExternalInvoice, error)

	// FindAll finds mirrors matching the filter, lines loaded
	FindAll(ctx context.Context, filter MirrorFilter) ([]ExternalInvoice, error)

	// FindUnprocessed finds mirrors not yet folded into the ledger
	FindUnprocessed(ctx context.Context, limit int) ([]ExternalInvoice, error)

	// Save persists mirror mutations (processing flags)
	Save(ctx context.Context, invoice *ExternalInvoice) error

	// ListLines returns every invoice line; reconciliation's sale input
	ListLines(ctx context.Context) ([]ExternalInvoiceLine, error)

	// DistinctRawItemNames lists raw item spellings seen on invoice lines
	DistinctRawItemNames(ctx context.Context) ([]string, error)

	// CountPendingStock counts mirrors awaiting stock processing
	CountPendingStock(ctx context.Context) (int64, error)
}

// ExternalOrderRepository defines the interface for order mirrors
type ExternalOrderRepository interface {
	// UpsertByNaturalKey creates the mirror or refreshes the existing row
	// with the same (source, order number); reports whether a new row was
	// created
	UpsertByNaturalKey(ctx context.Context, order *ExternalOrder) (created bool, err error)

	// FindByNaturalKey finds a mirror by its business key
	FindByNaturalKey(ctx context.Context, source Source, orderNumber string) (*ExternalOrder, error)

	// FindAll finds mirrors matching the filter, lines loaded
	FindAll(ctx context.Context, filter MirrorFilter) ([]ExternalOrder, error)

	// FindUnprocessed finds mirrors not yet folded into the ledger
	FindUnprocessed(ctx context.Context, limit int) ([]ExternalOrder, error)

	// Save persists mirror mutations (processing flags)
	Save(ctx context.Context, order *ExternalOrder) error

	// DistinctRawItemNames lists raw item spellings seen on order lines
	DistinctRawItemNames(ctx context.Context) ([]string, error)

	// CountPendingStock counts mirrors awaiting stock processing
	CountPendingStock(ctx context.Context) (int64, error)
}

// ExternalStockItemRepository defines the interface for stock item mirrors
type ExternalStockItemRepository interface {
	// UpsertByNaturalKey creates the mirror or refreshes the existing row
	// with the same (source, external SKU); reports whether a new row was
	// created
	UpsertByNaturalKey(ctx context.Context, item *ExternalStockItem) (created bool, err error)

	// FindByNaturalKey finds a mirror by its business key
	FindByNaturalKey(ctx context.Context, source Source, externalSKU string) (*ExternalStockItem, error)

	// FindAll finds mirrors matching the filter
	FindAll(ctx context.Context, filter MirrorFilter) ([]ExternalStockItem, error)

	// FindUnprocessed finds mirrors not yet applied to the catalog
	FindUnprocessed(ctx context.Context, limit int) ([]ExternalStockItem, error)

	// Save persists mirror mutations (processing flags)
	Save(ctx context.Context, item *ExternalStockItem) error

	// DistinctRawItemNames lists raw item spellings seen in stock listings
	DistinctRawItemNames(ctx context.Context) ([]string, error)

	// CountPendingStock counts mirrors awaiting processing
	CountPendingStock(ctx context.Context) (int64, error)
}
