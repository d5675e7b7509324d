package portal

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/sync"
)

// Scraped tables are line-level: orders and invoices render one row per
// document line with the header columns repeated, and the parser folds
// consecutive rows with the same reference back into documents. Rows that
// cannot be parsed structurally are dropped and counted; rows with bad
// cell contents flow through so ingestion can count them as failed.
//
// Expected columns per kind:
//
//	orders:   ref | supplier | date | line | item | sku | qty | unit price
//	invoices: number | customer | date | line | item | qty | unit price
//	items:    sku | name | qty | unit price
const (
	orderColumns   = 8
	invoiceColumns = 7
	stockColumns   = 4
)

// dateLayouts are tried in order when parsing portal dates
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseOrderRows folds scraped order-line rows into orders, preserving
// row order. Returns the orders and how many rows were malformed.
func ParseOrderRows(rows [][]string) ([]sync.RawOrder, int) {
	var orders []sync.RawOrder
	index := make(map[string]int)
	malformed := 0

	for _, cells := range rows {
		if skippableRow(cells, orderColumns) {
			continue
		}
		if len(cells) < orderColumns {
			malformed++
			continue
		}

		ref := strings.TrimSpace(cells[0])
		i, ok := index[ref]
		if !ok {
			orders = append(orders, sync.RawOrder{
				ExternalRef: ref,
				Supplier:    strings.TrimSpace(cells[1]),
				OrderedAt:   parseDate(cells[2]),
			})
			i = len(orders) - 1
			index[ref] = i
		}

		orders[i].Lines = append(orders[i].Lines, sync.RawOrderLine{
			LineRef:     lineRef(cells[3], len(orders[i].Lines)),
			ItemName:    strings.TrimSpace(cells[4]),
			ExternalSKU: strings.TrimSpace(cells[5]),
			Quantity:    parseAmount(cells[6]),
			UnitPrice:   parseAmount(cells[7]),
		})
	}
	return orders, malformed
}

// ParseInvoiceRows folds scraped invoice-line rows into invoices,
// preserving row order. Returns the invoices and how many rows were
// malformed.
func ParseInvoiceRows(rows [][]string) ([]sync.RawInvoice, int) {
	var invoices []sync.RawInvoice
	index := make(map[string]int)
	malformed := 0

	for _, cells := range rows {
		if skippableRow(cells, invoiceColumns) {
			continue
		}
		if len(cells) < invoiceColumns {
			malformed++
			continue
		}

		number := strings.TrimSpace(cells[0])
		i, ok := index[number]
		if !ok {
			invoices = append(invoices, sync.RawInvoice{
				InvoiceNumber: number,
				Customer:      strings.TrimSpace(cells[1]),
				InvoicedAt:    parseDate(cells[2]),
			})
			i = len(invoices) - 1
			index[number] = i
		}

		invoices[i].Lines = append(invoices[i].Lines, sync.RawInvoiceLine{
			LineRef:   lineRef(cells[3], len(invoices[i].Lines)),
			ItemName:  strings.TrimSpace(cells[4]),
			Quantity:  parseAmount(cells[5]),
			UnitPrice: parseAmount(cells[6]),
		})
	}
	return invoices, malformed
}

// ParseStockRows turns scraped stock rows into stock items. Returns the
// items and how many rows were malformed.
func ParseStockRows(rows [][]string) ([]sync.RawStockItem, int) {
	var items []sync.RawStockItem
	malformed := 0

	for _, cells := range rows {
		if skippableRow(cells, stockColumns) {
			continue
		}
		if len(cells) < stockColumns {
			malformed++
			continue
		}

		items = append(items, sync.RawStockItem{
			ExternalSKU: strings.TrimSpace(cells[0]),
			Name:        strings.TrimSpace(cells[1]),
			Quantity:    parseAmount(cells[2]),
			UnitPrice:   parseAmount(cells[3]),
		})
	}
	return items, malformed
}

// skippableRow recognizes spacer and placeholder rows: empty rows and
// single-cell "no records" banners are layout, not data
func skippableRow(cells []string, want int) bool {
	if len(cells) >= want {
		return false
	}
	nonEmpty := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			nonEmpty++
		}
	}
	return nonEmpty <= 1
}

// lineRef falls back to the line's position when the portal renders no
// line number
func lineRef(cell string, position int) string {
	ref := strings.TrimSpace(cell)
	if ref != "" {
		return ref
	}
	return strconv.Itoa(position + 1)
}

// parseAmount reads a portal-rendered quantity or money cell. Currency
// symbols and thousands separators are stripped; an unparseable cell
// degrades to zero, which downstream validation rejects for fields that
// must be positive.
func parseAmount(cell string) decimal.Decimal {
	s := strings.TrimSpace(cell)
	s = strings.NewReplacer("₹", "", "$", "", "€", "", ",", "", " ", "").Replace(s)
	if s == "" || s == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseDate reads a portal-rendered date cell, zero time when no layout
// matches
func parseDate(cell string) time.Time {
	s := strings.TrimSpace(cell)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
