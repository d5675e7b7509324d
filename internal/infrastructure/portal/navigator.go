package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/sync"
	"github.com/stocksync/backend/internal/infrastructure/config"
)

const (
	defaultLoadCompleteTimeout = 30 * time.Second
	defaultDOMReadyTimeout     = 20 * time.Second
	defaultNavCommitTimeout    = 15 * time.Second
	defaultFixedWaitDelay      = 8 * time.Second
	defaultContentWaitTimeout  = 10 * time.Second

	// opTimeout bounds single browser interactions (reads, clicks,
	// screenshots) that are not covered by a strategy timeout
	opTimeout = 15 * time.Second
)

// StrategyTimeouts holds the per-rung timeouts of the navigation ladder
type StrategyTimeouts struct {
	LoadComplete time.Duration
	DOMReady     time.Duration
	NavCommit    time.Duration
	FixedWait    time.Duration
}

func (t StrategyTimeouts) withDefaults() StrategyTimeouts {
	if t.LoadComplete <= 0 {
		t.LoadComplete = defaultLoadCompleteTimeout
	}
	if t.DOMReady <= 0 {
		t.DOMReady = defaultDOMReadyTimeout
	}
	if t.NavCommit <= 0 {
		t.NavCommit = defaultNavCommitTimeout
	}
	if t.FixedWait <= 0 {
		t.FixedWait = defaultFixedWaitDelay
	}
	return t
}

// Navigator drives a headless browser through portal pages. Navigation
// runs a ladder of strategies from strictest to most lenient: a page that
// never fires its load event can still be scraped once its DOM settles.
// Each strategy runs at most once per navigation, under its own timeout.
type Navigator struct {
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc

	// One browser serves all sessions; sessions are tabs. Tabs share the
	// browser's cookie jar, which is what keeps a login valid across the
	// fetches that follow it.
	startOnce     gosync.Once
	startErr      error
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewNavigator creates a Navigator with a shared browser allocator.
// Sessions created from it share the browser's cookie jar, so a login
// performed in one session authenticates the ones that follow.
func NewNavigator(cfg config.PortalConfig, logger *zap.Logger) (*Navigator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.DisableGPU),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Navigator{
		logger:      logger,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// NewSession opens a fresh tab in the shared browser, launching the
// browser on first use. The caller must cancel the session.
func (n *Navigator) NewSession() (context.Context, context.CancelFunc, error) {
	if err := n.ensureBrowser(); err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	ctx, cancel := chromedp.NewContext(n.browserCtx)
	return ctx, cancel, nil
}

// ensureBrowser starts the shared browser exactly once
func (n *Navigator) ensureBrowser() error {
	n.startOnce.Do(func() {
		n.browserCtx, n.browserCancel = chromedp.NewContext(n.allocCtx,
			chromedp.WithLogf(func(format string, args ...interface{}) {
				n.logger.Debug(fmt.Sprintf(format, args...))
			}),
		)
		// An empty run forces the launch so later tabs attach to this
		// browser instead of allocating their own
		n.startErr = chromedp.Run(n.browserCtx)
	})
	return n.startErr
}

// Close shuts the browser down
func (n *Navigator) Close() error {
	if n.browserCancel != nil {
		n.browserCancel()
	}
	if n.allocCancel != nil {
		n.allocCancel()
	}
	return nil
}

// Navigate walks the strategy ladder until one rung lands the page, and
// returns the name of the strategy that did. All rungs exhausted maps to
// ErrNavigationTimeout, or ErrPortalUnavailable when the browser reported
// a network-level failure.
func (n *Navigator) Navigate(ctx context.Context, url string, timeouts StrategyTimeouts) (string, error) {
	timeouts = timeouts.withDefaults()

	rungs := []struct {
		name    string
		timeout time.Duration
		action  chromedp.Action
	}{
		// load-complete: full navigation, wait for the document load event
		{"load-complete", timeouts.LoadComplete, chromedp.Navigate(url)},
		// dom-ready: navigation commit, then wait for the body to exist
		{"dom-ready", timeouts.DOMReady, chromedp.Tasks{
			navigateCommit(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
		}},
		// nav-commit: navigation commit only
		{"nav-commit", timeouts.NavCommit, navigateCommit(url)},
	}

	var lastErr error
	for _, rung := range rungs {
		err := n.run(ctx, rung.timeout, rung.action)
		if err == nil {
			return rung.name, nil
		}
		lastErr = err
		n.logger.Debug("Navigation strategy failed",
			zap.String("strategy", rung.name),
			zap.String("url", url),
			zap.Error(err))
	}

	// fixed-wait: fire the navigation without waiting on the browser at
	// all, then give the page a fixed grace period to land
	fireErr := n.run(ctx, opTimeout, chromedp.Tasks{
		chromedp.Evaluate(fmt.Sprintf("window.location.href = %q", url), nil),
		chromedp.Sleep(timeouts.FixedWait),
	})
	if fireErr != nil {
		n.logger.Debug("Navigation strategy failed",
			zap.String("strategy", "fixed-wait"),
			zap.String("url", url),
			zap.Error(fireErr))
		return "", classifyNavError(lastErr)
	}

	landed, err := n.CurrentURL(ctx)
	if err != nil || !pageLanded(landed) {
		return "", classifyNavError(lastErr)
	}
	return "fixed-wait", nil
}

// WaitPresence waits for a node matching the selector to exist in the
// DOM. Presence, not visibility: portals hide tables behind spinners
// while rows are already attached. A miss maps to ErrContentNotFound.
func (n *Navigator) WaitPresence(ctx context.Context, selector string, timeout time.Duration) error {
	if selector == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultContentWaitTimeout
	}
	if err := n.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: selector %q: %v", sync.ErrContentNotFound, selector, err)
	}
	return nil
}

// CurrentURL returns the URL the session is currently on
func (n *Navigator) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := n.run(ctx, opTimeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// ElementExists reports whether a node matching the selector exists
// right now, without waiting for one to appear
func (n *Navigator) ElementExists(ctx context.Context, selector string) (bool, error) {
	var exists bool
	expr := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	if err := n.run(ctx, opTimeout, chromedp.Evaluate(expr, &exists)); err != nil {
		return false, err
	}
	return exists, nil
}

// SubmitCredentials fills the login form and submits it
func (n *Navigator) SubmitCredentials(ctx context.Context, form LoginForm, username, password string) error {
	return n.run(ctx, opTimeout,
		chromedp.WaitVisible(form.UsernameSelector, chromedp.ByQuery),
		chromedp.SendKeys(form.UsernameSelector, username, chromedp.ByQuery),
		chromedp.SendKeys(form.PasswordSelector, password, chromedp.ByQuery),
		chromedp.Click(form.SubmitSelector, chromedp.ByQuery),
	)
}

// ReadRows extracts the cell texts of every row matching the selector
func (n *Navigator) ReadRows(ctx context.Context, rowsSelector string) ([][]string, error) {
	expr := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(function(tr) {
		return Array.from(tr.querySelectorAll("td")).map(function(td) { return td.innerText.trim(); });
	})`, rowsSelector)

	var rows [][]string
	if err := n.run(ctx, opTimeout, chromedp.Evaluate(expr, &rows)); err != nil {
		return nil, fmt.Errorf("failed to read table rows: %w", err)
	}
	return rows, nil
}

// NextPageEnabled reports whether the pagination control exists and is
// clickable. Portals mark the last page by disabling the control or by
// tagging it (or its parent) with a disabled class.
func (n *Navigator) NextPageEnabled(ctx context.Context, nextSelector, disabledClass string) (bool, error) {
	expr := fmt.Sprintf(`(function() {
		var el = document.querySelector(%q);
		if (!el) { return false; }
		if (el.disabled) { return false; }
		var cls = %q;
		if (cls !== "") {
			if (el.classList.contains(cls)) { return false; }
			if (el.parentElement && el.parentElement.classList.contains(cls)) { return false; }
		}
		return true;
	})()`, nextSelector, disabledClass)

	var enabled bool
	if err := n.run(ctx, opTimeout, chromedp.Evaluate(expr, &enabled)); err != nil {
		return false, fmt.Errorf("failed to inspect pagination control: %w", err)
	}
	return enabled, nil
}

// ClickNext advances to the next page and sleeps the settle delay so the
// portal can swap the table contents in
func (n *Navigator) ClickNext(ctx context.Context, nextSelector string, settle time.Duration) error {
	if err := n.run(ctx, opTimeout+settle,
		chromedp.Click(nextSelector, chromedp.ByQuery),
		chromedp.Sleep(settle),
	); err != nil {
		return fmt.Errorf("failed to advance page: %w", err)
	}
	return nil
}

// Screenshot captures the current viewport as PNG
func (n *Navigator) Screenshot(ctx context.Context) ([]byte, error) {
	var png []byte
	if err := n.run(ctx, opTimeout, chromedp.CaptureScreenshot(&png)); err != nil {
		return nil, err
	}
	return png, nil
}

// run executes browser actions under a bounded context
func (n *Navigator) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

// navigateCommit fires a navigation and returns once the browser commits
// it, without waiting for loading to finish
func navigateCommit(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("navigation failed: %s", errorText)
		}
		return nil
	})
}

// classifyNavError maps browser-level failures onto the fetch error
// taxonomy the orchestrator retries on
func classifyNavError(err error) error {
	switch {
	case err == nil:
		return sync.ErrNavigationTimeout
	case isNetworkError(err):
		return fmt.Errorf("%w: %v", sync.ErrPortalUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", sync.ErrNavigationTimeout, err)
	default:
		return err
	}
}

// isNetworkError recognizes the browser's network-level error codes
// (connection refused, DNS failure) in a navigation error
func isNetworkError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "net::ERR")
}

// pageLanded reports whether a URL belongs to a real page rather than a
// blank tab or the browser's own error page
func pageLanded(url string) bool {
	if url == "" {
		return false
	}
	return !strings.HasPrefix(url, "about:") && !strings.HasPrefix(url, "chrome-error://")
}
