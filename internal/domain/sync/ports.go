package sync

import (
	"context"
)

// FetchOutcome is what one successful portal fetch produced: the raw
// records scraped across all pages, plus how many pages were walked.
// Only the slice matching the fetch kind is populated.
type FetchOutcome struct {
	Invoices []RawInvoice
	Orders   []RawOrder
	Items    []RawStockItem
	Pages    int
}

// RecordCount returns how many raw records the fetch scraped
func (o *FetchOutcome) RecordCount() int {
	return len(o.Invoices) + len(o.Orders) + len(o.Items)
}

// PortalFetcher drives a browser session against an external portal and
// returns the raw records it scraped. Implementations own navigation
// strategy laddering, login, auth-redirect detection, and pagination;
// the orchestrator only sees raw records or a classified error.
type PortalFetcher interface {
	// Fetch retrieves one record set. Errors are classified: retryable
	// (timeouts, portal unavailable), auth redirect (fatal per attempt;
	// caller re-authenticates and retries the whole fetch), or terminal.
	Fetch(ctx context.Context, source Source, kind FetchKind) (*FetchOutcome, error)

	// Login authenticates the session for a source. Called before the
	// first fetch and again after an auth redirect is detected.
	Login(ctx context.Context, source Source) error
}

// SourceGuard enforces the one-in-flight-fetch-per-source rule. Acquire
// fails fast with ErrSyncInProgress when the source is already held;
// requests are never queued. Release must be called in a deferred block so
// a panicking fetch cannot leave the source locked forever (guards carry a
// TTL as a backstop).
type SourceGuard interface {
	Acquire(ctx context.Context, source Source) error
	Release(ctx context.Context, source Source) error
}

// ArtifactStore persists fetch diagnostics (failure screenshots) for
// operator review. Upload failures are logged and swallowed by callers;
// diagnostics never break a fetch.
type ArtifactStore interface {
	// StoreScreenshot saves a PNG capture and returns its storage key
	StoreScreenshot(ctx context.Context, source Source, name string, png []byte) (string, error)
}
