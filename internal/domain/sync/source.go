package sync

// Source identifies an external portal records are fetched from.
type Source string

const (
	// SourceVendorPortal is the distributor back office: purchase orders
	// and the supplier's stock item catalog.
	SourceVendorPortal Source = "vendor_portal"
	// SourceRetailPortal is the storefront back office: sales invoices.
	SourceRetailPortal Source = "retail_portal"
)

// IsValid returns true if the source is a known external system
func (s Source) IsValid() bool {
	switch s {
	case SourceVendorPortal, SourceRetailPortal:
		return true
	default:
		return false
	}
}

// String returns the string representation of Source
func (s Source) String() string {
	return string(s)
}

// AllSources returns every known source in a stable order.
func AllSources() []Source {
	return []Source{SourceVendorPortal, SourceRetailPortal}
}

// DefaultFetchKind returns the record kind a bare fetch request for this
// source retrieves.
func (s Source) DefaultFetchKind() FetchKind {
	switch s {
	case SourceRetailPortal:
		return FetchKindInvoices
	default:
		return FetchKindOrders
	}
}

// FetchKind identifies which record set a fetch retrieves from a source.
type FetchKind string

const (
	// FetchKindInvoices retrieves sales invoices
	FetchKindInvoices FetchKind = "invoices"
	// FetchKindOrders retrieves purchase orders
	FetchKindOrders FetchKind = "orders"
	// FetchKindItems retrieves the stock item catalog
	FetchKindItems FetchKind = "items"
)

// IsValid returns true if the fetch kind is known
func (k FetchKind) IsValid() bool {
	switch k {
	case FetchKindInvoices, FetchKindOrders, FetchKindItems:
		return true
	default:
		return false
	}
}

// String returns the string representation of FetchKind
func (k FetchKind) String() string {
	return string(k)
}

// FetchTrigger records what initiated a fetch.
type FetchTrigger string

const (
	// TriggerManual marks fetches requested by an operator or API caller
	TriggerManual FetchTrigger = "manual"
	// TriggerScheduled marks fetches started by the interval scheduler
	TriggerScheduled FetchTrigger = "scheduled"
)

// IsValid returns true if the trigger is known
func (t FetchTrigger) IsValid() bool {
	return t == TriggerManual || t == TriggerScheduled
}

// String returns the string representation of FetchTrigger
func (t FetchTrigger) String() string {
	return string(t)
}
