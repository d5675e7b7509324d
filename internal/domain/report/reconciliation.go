package report

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ResolveFunc canonicalizes a raw item name. The reconciler is handed one
// so it can group source-specific spellings under a single identity
// without depending on the mapping package.
type ResolveFunc func(name string) string

// PurchaseBatch is a snapshot of one purchase batch used as reconciliation
// input: what was ordered, what is still unconsumed, and at what price.
type PurchaseBatch struct {
	ItemName  string
	Quantity  decimal.Decimal
	Remaining decimal.Decimal
	UnitPrice decimal.Decimal
}

// SaleLine is a snapshot of one ingested invoice line used as
// reconciliation input.
type SaleLine struct {
	ItemName  string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// StockClassification labels the computed stock position of one identity
type StockClassification string

const (
	// ClassOversold means more was recorded sold than purchased
	ClassOversold StockClassification = "OVERSOLD"
	// ClassOutOfStock means purchased and sold quantities balance exactly
	ClassOutOfStock StockClassification = "OUT_OF_STOCK"
	// ClassInStock means purchased quantity exceeds sold quantity
	ClassInStock StockClassification = "IN_STOCK"
	// ClassUnmatchedSale means the identity has sales but no purchase
	// records at all: a missing receipt or a mapping gap, remediated
	// differently than ordinary oversell
	ClassUnmatchedSale StockClassification = "UNMATCHED_SALE"
)

// ReconciliationRow is the per-identity cross-reference of purchases
// against sales
type ReconciliationRow struct {
	ItemName        string              `json:"item_name"`
	TotalPurchased  decimal.Decimal     `json:"total_purchased"`
	TotalSold       decimal.Decimal     `json:"total_sold"`
	CurrentStock    decimal.Decimal     `json:"current_stock"`
	WeightedAvgCost decimal.Decimal     `json:"weighted_avg_cost"`
	AvgSalePrice    decimal.Decimal     `json:"avg_sale_price"`
	ProfitMargin    decimal.Decimal     `json:"profit_margin"` // Percentage
	SalesRevenue    decimal.Decimal     `json:"sales_revenue"`
	StockValue      decimal.Decimal     `json:"stock_value"`
	BatchCount      int                 `json:"batch_count"`
	Classification  StockClassification `json:"classification"`
}

// ReconciliationSummary provides aggregated counts across all rows
type ReconciliationSummary struct {
	TotalItems         int             `json:"total_items"`
	OversoldCount      int             `json:"oversold_count"`
	OutOfStockCount    int             `json:"out_of_stock_count"`
	InStockCount       int             `json:"in_stock_count"`
	UnmatchedSaleCount int             `json:"unmatched_sale_count"`
	TotalStockValue    decimal.Decimal `json:"total_stock_value"`
}

// ReconciliationReport is the full reconciliation output
type ReconciliationReport struct {
	Rows    []ReconciliationRow   `json:"rows"`
	Summary ReconciliationSummary `json:"summary"`
}

// Reconciler cross-references purchased against sold quantities per
// canonical identity. Pure computation over the snapshots it is given:
// it never errors, missing data degrades to zero values.
type Reconciler struct {
	resolve ResolveFunc
}

// NewReconciler creates a reconciler. A nil resolve func leaves names
// unchanged, which keeps every spelling its own identity.
func NewReconciler(resolve ResolveFunc) *Reconciler {
	if resolve == nil {
		resolve = func(name string) string { return name }
	}
	return &Reconciler{resolve: resolve}
}

type identityTotals struct {
	purchased    decimal.Decimal
	sold         decimal.Decimal
	salesRevenue decimal.Decimal
	// live batches are those with remaining > 0; weighted-average cost is
	// taken over them only, weighted by ordered quantity, so a long-gone
	// cheap batch stops dragging the figure down once fully consumed
	liveQty     decimal.Decimal
	liveCost    decimal.Decimal
	batchCount  int
	hasPurchase bool
}

// Reconcile groups both snapshot sets by canonical identity and computes
// stock position, weighted-average cost and margin per identity.
func (r *Reconciler) Reconcile(batches []PurchaseBatch, sales []SaleLine) *ReconciliationReport {
	totals := make(map[string]*identityTotals)
	get := func(name string) *identityTotals {
		canonical := r.resolve(name)
		t, ok := totals[canonical]
		if !ok {
			t = &identityTotals{}
			totals[canonical] = t
		}
		return t
	}

	for i := range batches {
		b := &batches[i]
		t := get(b.ItemName)
		t.hasPurchase = true
		t.batchCount++
		t.purchased = t.purchased.Add(b.Quantity)
		if b.Remaining.IsPositive() {
			t.liveQty = t.liveQty.Add(b.Quantity)
			t.liveCost = t.liveCost.Add(b.Quantity.Mul(b.UnitPrice))
		}
	}
	for i := range sales {
		s := &sales[i]
		t := get(s.ItemName)
		t.sold = t.sold.Add(s.Quantity)
		t.salesRevenue = t.salesRevenue.Add(s.Quantity.Mul(s.UnitPrice))
	}

	report := &ReconciliationReport{Rows: make([]ReconciliationRow, 0, len(totals))}
	for name, t := range totals {
		report.Rows = append(report.Rows, buildRow(name, t))
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].ItemName < report.Rows[j].ItemName
	})

	s := &report.Summary
	s.TotalItems = len(report.Rows)
	for i := range report.Rows {
		switch report.Rows[i].Classification {
		case ClassOversold:
			s.OversoldCount++
		case ClassOutOfStock:
			s.OutOfStockCount++
		case ClassInStock:
			s.InStockCount++
		case ClassUnmatchedSale:
			s.UnmatchedSaleCount++
		}
		s.TotalStockValue = s.TotalStockValue.Add(report.Rows[i].StockValue)
	}
	return report
}

func buildRow(name string, t *identityTotals) ReconciliationRow {
	row := ReconciliationRow{
		ItemName:       name,
		TotalPurchased: t.purchased,
		TotalSold:      t.sold,
		CurrentStock:   t.purchased.Sub(t.sold),
		SalesRevenue:   t.salesRevenue,
		BatchCount:     t.batchCount,
	}

	switch {
	case !t.hasPurchase:
		row.Classification = ClassUnmatchedSale
	case row.CurrentStock.IsNegative():
		row.Classification = ClassOversold
	case row.CurrentStock.IsZero():
		row.Classification = ClassOutOfStock
	default:
		row.Classification = ClassInStock
	}

	if t.liveQty.IsPositive() {
		row.WeightedAvgCost = t.liveCost.Div(t.liveQty).Round(4)
	}
	if t.sold.IsPositive() {
		row.AvgSalePrice = t.salesRevenue.Div(t.sold).Round(4)
	}
	// margin is 0 when there are no sales, never a division error
	if row.AvgSalePrice.IsPositive() {
		row.ProfitMargin = row.AvgSalePrice.Sub(row.WeightedAvgCost).
			Div(row.AvgSalePrice).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	if row.CurrentStock.IsPositive() {
		row.StockValue = row.CurrentStock.Mul(row.WeightedAvgCost).Round(4)
	}
	return row
}
