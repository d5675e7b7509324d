package sync

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocksync/backend/internal/domain/shared"
)

// Raw records are what a portal scrape produces before anything is
// persisted: untrusted rows read out of rendered tables. Validate rejects
// rows that cannot be keyed or that carry nonsense quantities; callers
// count rejected rows as Failed rather than aborting the whole fetch.

// ErrRawRecordEmpty marks a scraped order or invoice with no lines.
// Portals render header-only rows for cancelled documents; ingestion
// counts these as skipped rather than failed.
var ErrRawRecordEmpty = shared.NewDomainError("RAW_RECORD_EMPTY", "Scraped record has no lines")

// RawOrderLine is one scraped line of a purchase order
type RawOrderLine struct {
	// LineRef identifies the line within its order (position or row id)
	LineRef string
	// ItemName is the item name exactly as rendered by the portal
	ItemName string
	// ExternalSKU is the portal's SKU code, if the table exposes one
	ExternalSKU string
	// Quantity is the ordered quantity
	Quantity decimal.Decimal
	// UnitPrice is the per-unit purchase price
	UnitPrice decimal.Decimal
}

// RawOrder is one scraped purchase order
type RawOrder struct {
	// ExternalRef is the portal's order number
	ExternalRef string
	// Supplier is the supplier name shown on the order
	Supplier string
	// OrderedAt is the order date shown on the portal
	OrderedAt time.Time
	// Lines are the order's line items
	Lines []RawOrderLine
}

// Validate checks the order can be keyed and its lines are sane
func (r *RawOrder) Validate() error {
	if strings.TrimSpace(r.ExternalRef) == "" {
		return shared.NewDomainError("RAW_ORDER_MISSING_REF", "Scraped order has no order number")
	}
	if len(r.Lines) == 0 {
		return ErrRawRecordEmpty
	}
	for i := range r.Lines {
		if err := r.Lines[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (l *RawOrderLine) validate() error {
	if strings.TrimSpace(l.ItemName) == "" {
		return shared.NewDomainError("RAW_LINE_MISSING_ITEM", "Scraped line has no item name")
	}
	if !l.Quantity.IsPositive() {
		return shared.NewDomainError("RAW_LINE_BAD_QUANTITY", "Scraped line quantity must be positive")
	}
	if l.UnitPrice.IsNegative() {
		return shared.NewDomainError("RAW_LINE_BAD_PRICE", "Scraped line price cannot be negative")
	}
	return nil
}

// RawInvoiceLine is one scraped line of a sales invoice
type RawInvoiceLine struct {
	// LineRef identifies the line within its invoice
	LineRef string
	// ItemName is the item name exactly as rendered by the portal
	ItemName string
	// Quantity is the sold quantity
	Quantity decimal.Decimal
	// UnitPrice is the per-unit selling price
	UnitPrice decimal.Decimal
}

// RawInvoice is one scraped sales invoice
type RawInvoice struct {
	// InvoiceNumber is the portal's invoice number
	InvoiceNumber string
	// Customer is the customer name shown on the invoice
	Customer string
	// InvoicedAt is the invoice date shown on the portal
	InvoicedAt time.Time
	// Lines are the invoice's line items
	Lines []RawInvoiceLine
}

// Validate checks the invoice can be keyed and its lines are sane
func (r *RawInvoice) Validate() error {
	if strings.TrimSpace(r.InvoiceNumber) == "" {
		return shared.NewDomainError("RAW_INVOICE_MISSING_REF", "Scraped invoice has no invoice number")
	}
	if len(r.Lines) == 0 {
		return ErrRawRecordEmpty
	}
	for i := range r.Lines {
		if err := r.Lines[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (l *RawInvoiceLine) validate() error {
	if strings.TrimSpace(l.ItemName) == "" {
		return shared.NewDomainError("RAW_LINE_MISSING_ITEM", "Scraped line has no item name")
	}
	if !l.Quantity.IsPositive() {
		return shared.NewDomainError("RAW_LINE_BAD_QUANTITY", "Scraped line quantity must be positive")
	}
	if l.UnitPrice.IsNegative() {
		return shared.NewDomainError("RAW_LINE_BAD_PRICE", "Scraped line price cannot be negative")
	}
	return nil
}

// RawStockItem is one scraped row of a portal's stock listing
type RawStockItem struct {
	// ExternalSKU is the portal's item code
	ExternalSKU string
	// Name is the item name exactly as rendered by the portal
	Name string
	// Quantity is the stock level the portal reports
	Quantity decimal.Decimal
	// UnitPrice is the listed selling price, zero if not shown
	UnitPrice decimal.Decimal
}

// Validate checks the item can be keyed
func (r *RawStockItem) Validate() error {
	if strings.TrimSpace(r.ExternalSKU) == "" && strings.TrimSpace(r.Name) == "" {
		return shared.NewDomainError("RAW_ITEM_MISSING_KEY", "Scraped item has neither SKU nor name")
	}
	if r.Quantity.IsNegative() {
		return shared.NewDomainError("RAW_ITEM_BAD_QUANTITY", "Scraped item quantity cannot be negative")
	}
	return nil
}
