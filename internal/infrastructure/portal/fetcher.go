package portal

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/sync"
)

const (
	defaultLoginTimeout = 45 * time.Second
	defaultMaxPages     = 20

	// artifactUploadTimeout bounds screenshot uploads; diagnostics must
	// not hold a failed fetch open
	artifactUploadTimeout = 10 * time.Second
)

// ChromeFetcher scrapes portal record tables through a Navigator. It
// logs in lazily per source and re-authenticates when the orchestrator
// asks after an auth redirect. On failures it captures a screenshot for
// the artifact store; artifact problems are logged, never escalated.
type ChromeFetcher struct {
	nav       *Navigator
	registry  *Registry
	artifacts sync.ArtifactStore
	logger    *zap.Logger

	mu     gosync.Mutex
	authed map[sync.Source]bool
}

// NewChromeFetcher creates a fetcher. artifacts may be nil, which
// disables failure screenshots.
func NewChromeFetcher(nav *Navigator, registry *Registry, artifacts sync.ArtifactStore, logger *zap.Logger) *ChromeFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeFetcher{
		nav:       nav,
		registry:  registry,
		artifacts: artifacts,
		logger:    logger,
		authed:    make(map[sync.Source]bool),
	}
}

// Fetch scrapes one record set from a source, walking its pages in order
func (f *ChromeFetcher) Fetch(ctx context.Context, source sync.Source, kind sync.FetchKind) (*sync.FetchOutcome, error) {
	profile, err := f.registry.Get(source)
	if err != nil {
		return nil, err
	}
	table, ok := profile.Table(kind)
	if !ok {
		return nil, fmt.Errorf("source %s does not serve %s records", source, kind)
	}

	if !f.isAuthed(source) {
		if err := f.login(ctx, profile); err != nil {
			return nil, err
		}
	}

	session, cancel, err := f.nav.NewSession()
	if err != nil {
		return nil, err
	}
	defer cancel()

	url := profile.TableURL(table)
	strategy, err := f.nav.Navigate(session, url, profile.Strategy)
	if err != nil {
		f.captureFailure(session, source, string(kind)+"-navigate")
		return nil, err
	}
	f.logger.Debug("Portal page loaded",
		zap.String("source", source.String()),
		zap.String("url", url),
		zap.String("strategy", strategy))

	if err := f.checkAuthRedirect(session, profile); err != nil {
		f.captureFailure(session, source, string(kind)+"-auth-redirect")
		return nil, err
	}

	if err := f.nav.WaitPresence(session, table.ContentSelector, profile.ContentWaitTimeout); err != nil {
		// Non-fatal: rows may render without the landmark; read what is
		// there and let the row count speak
		f.logger.Warn("Expected content did not appear",
			zap.String("source", source.String()),
			zap.String("kind", kind.String()),
			zap.Error(err))
	}

	rows, pages, err := f.walkPages(ctx, session, profile, table)
	if err != nil {
		f.captureFailure(session, source, string(kind)+"-scrape")
		return nil, err
	}

	outcome := f.buildOutcome(source, kind, rows)
	outcome.Pages = pages
	f.logger.Info("Portal fetch scraped records",
		zap.String("source", source.String()),
		zap.String("kind", kind.String()),
		zap.Int("rows", len(rows)),
		zap.Int("records", outcome.RecordCount()),
		zap.Int("pages", pages))
	return outcome, nil
}

// Login authenticates against a source's portal, replacing whatever
// session the browser held
func (f *ChromeFetcher) Login(ctx context.Context, source sync.Source) error {
	profile, err := f.registry.Get(source)
	if err != nil {
		return err
	}
	return f.login(ctx, profile)
}

// login drives the portal's login form. Every failure maps to
// ErrLoginFailed with the cause preserved; the orchestrator treats login
// failures as terminal for the fetch.
func (f *ChromeFetcher) login(ctx context.Context, profile *Profile) error {
	f.setAuthed(profile.Source, false)

	session, cancel, err := f.nav.NewSession()
	if err != nil {
		return fmt.Errorf("%w: %v", sync.ErrLoginFailed, err)
	}
	defer cancel()

	timeout := profile.Login.Timeout
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	lctx, lcancel := context.WithTimeout(session, timeout)
	defer lcancel()

	if _, err := f.nav.Navigate(lctx, profile.Login.URL, profile.Strategy); err != nil {
		f.captureFailure(session, profile.Source, "login-navigate")
		return fmt.Errorf("%w: %v", sync.ErrLoginFailed, err)
	}

	formPresent, err := f.nav.ElementExists(lctx, profile.Login.UsernameSelector)
	if err != nil {
		return fmt.Errorf("%w: %v", sync.ErrLoginFailed, err)
	}
	if !formPresent {
		// No form but the landmark is there: the cookie jar still holds
		// a live session and the portal skipped its own login page
		ready, rerr := f.nav.ElementExists(lctx, profile.Login.ReadySelector)
		if rerr == nil && ready {
			f.setAuthed(profile.Source, true)
			f.logger.Debug("Portal session still authenticated",
				zap.String("source", profile.Source.String()))
			return nil
		}
		f.captureFailure(session, profile.Source, "login-form-missing")
		return fmt.Errorf("%w: login form not found", sync.ErrLoginFailed)
	}

	if err := f.nav.SubmitCredentials(lctx, profile.Login, profile.Username, profile.Password); err != nil {
		f.captureFailure(session, profile.Source, "login-submit")
		return fmt.Errorf("%w: %v", sync.ErrLoginFailed, err)
	}

	if err := f.nav.WaitPresence(lctx, profile.Login.ReadySelector, profile.ContentWaitTimeout); err != nil {
		f.captureFailure(session, profile.Source, "login-rejected")
		if url, uerr := f.nav.CurrentURL(session); uerr == nil && profile.IsLoginPath(url) {
			return fmt.Errorf("%w: portal stayed on the login page", sync.ErrLoginFailed)
		}
		return fmt.Errorf("%w: %v", sync.ErrLoginFailed, err)
	}

	f.setAuthed(profile.Source, true)
	f.logger.Info("Portal login succeeded",
		zap.String("source", profile.Source.String()))
	return nil
}

// walkPages reads the current table, then clicks through the remaining
// pages in order up to the profile's page cap
func (f *ChromeFetcher) walkPages(ctx, session context.Context, profile *Profile, table RecordTable) ([][]string, int, error) {
	maxPages := profile.Paging.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	var all [][]string
	pages := 0
	for {
		rows, err := f.nav.ReadRows(session, table.RowsSelector)
		if err != nil {
			return nil, pages, err
		}
		pages++
		all = append(all, rows...)

		if pages >= maxPages {
			f.logger.Debug("Page cap reached",
				zap.String("source", profile.Source.String()),
				zap.Int("pages", pages))
			break
		}

		enabled, err := f.nav.NextPageEnabled(session, profile.Paging.NextSelector, profile.Paging.DisabledClass)
		if err != nil {
			return nil, pages, err
		}
		if !enabled {
			break
		}
		if err := f.nav.ClickNext(session, profile.Paging.NextSelector, profile.Paging.SettleDelay); err != nil {
			return nil, pages, err
		}
		// Session expiry shows up as a bounce to the login page on any
		// page transition, not just the first navigation
		if err := f.checkAuthRedirect(session, profile); err != nil {
			return nil, pages, err
		}
		if err := ctx.Err(); err != nil {
			return nil, pages, err
		}
	}
	return all, pages, nil
}

// buildOutcome parses scraped rows into the record set for the kind
func (f *ChromeFetcher) buildOutcome(source sync.Source, kind sync.FetchKind, rows [][]string) *sync.FetchOutcome {
	outcome := &sync.FetchOutcome{}
	var malformed int
	switch kind {
	case sync.FetchKindOrders:
		outcome.Orders, malformed = ParseOrderRows(rows)
	case sync.FetchKindInvoices:
		outcome.Invoices, malformed = ParseInvoiceRows(rows)
	default:
		outcome.Items, malformed = ParseStockRows(rows)
	}
	if malformed > 0 {
		f.logger.Warn("Dropped malformed table rows",
			zap.String("source", source.String()),
			zap.String("kind", kind.String()),
			zap.Int("malformed", malformed))
	}
	return outcome
}

// checkAuthRedirect detects the portal bouncing the session back to its
// login page. An unreadable location is not treated as a redirect.
func (f *ChromeFetcher) checkAuthRedirect(session context.Context, profile *Profile) error {
	url, err := f.nav.CurrentURL(session)
	if err != nil {
		return nil
	}
	if profile.IsLoginPath(url) {
		f.setAuthed(profile.Source, false)
		return fmt.Errorf("%w: %s", sync.ErrAuthRedirect, url)
	}
	return nil
}

// captureFailure stores a screenshot of the failed session for operator
// diagnosis. Best effort: capture and upload problems are logged only.
func (f *ChromeFetcher) captureFailure(session context.Context, source sync.Source, reason string) {
	if f.artifacts == nil {
		return
	}
	png, err := f.nav.Screenshot(session)
	if err != nil {
		f.logger.Debug("Failed to capture failure screenshot",
			zap.String("source", source.String()),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}

	// The fetch context may already be past its deadline; uploads get a
	// fresh one
	ctx, cancel := context.WithTimeout(context.Background(), artifactUploadTimeout)
	defer cancel()

	name := fmt.Sprintf("%s-%s.png", reason, time.Now().UTC().Format("20060102T150405Z"))
	key, err := f.artifacts.StoreScreenshot(ctx, source, name, png)
	if err != nil {
		f.logger.Warn("Failed to store failure screenshot",
			zap.String("source", source.String()),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}
	f.logger.Info("Stored failure screenshot",
		zap.String("source", source.String()),
		zap.String("key", key))
}

func (f *ChromeFetcher) isAuthed(source sync.Source) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authed[source]
}

func (f *ChromeFetcher) setAuthed(source sync.Source, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authed[source] = v
}

// Ensure ChromeFetcher implements PortalFetcher
var _ sync.PortalFetcher = (*ChromeFetcher)(nil)
