package sync

import (
	"context"
	"errors"

	"github.com/stocksync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Fetch Errors
// ---------------------------------------------------------------------------

var (
	// ErrSyncInProgress is returned when a fetch is requested for a source
	// that already has one in flight. Callers poll history and retry; the
	// request is rejected, never queued.
	ErrSyncInProgress = shared.NewDomainError("SYNC_IN_PROGRESS", "A fetch for this source is already in progress")

	// ErrUnknownSource is returned for a source outside the configured set
	ErrUnknownSource = shared.NewDomainError("UNKNOWN_SOURCE", "Unknown external source")

	// ErrFetchRecordFinalized is returned when completing or failing an
	// already-terminal fetch record; finalization happens exactly once.
	ErrFetchRecordFinalized = shared.NewDomainError("FETCH_RECORD_FINALIZED", "Fetch record is already finalized")

	// ErrPortalUnavailable indicates the portal did not respond; retryable.
	ErrPortalUnavailable = errors.New("sync: portal unavailable")

	// ErrNavigationTimeout indicates every strategy in the navigation
	// ladder timed out; retryable.
	ErrNavigationTimeout = errors.New("sync: navigation timed out")

	// ErrAuthRedirect indicates the portal bounced navigation back to its
	// login page. Fatal for the attempt: the orchestrator re-authenticates
	// and retries the whole fetch.
	ErrAuthRedirect = errors.New("sync: redirected to portal login")

	// ErrLoginFailed indicates portal authentication itself failed.
	ErrLoginFailed = errors.New("sync: portal login failed")

	// ErrContentNotFound indicates the post-navigation content wait missed.
	// Non-fatal: content may still be rendering; callers log and continue.
	ErrContentNotFound = errors.New("sync: expected content not found")
)

// IsRetryable reports whether a fetch failure should consume a retry
// attempt with backoff. Timeouts and portal availability problems are
// transient; auth redirects and login failures are not (they need a fresh
// login first), and record validation problems never are.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrAuthRedirect), errors.Is(err, ErrLoginFailed):
		return false
	case errors.Is(err, ErrPortalUnavailable), errors.Is(err, ErrNavigationTimeout):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}
