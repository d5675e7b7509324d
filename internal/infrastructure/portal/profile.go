package portal

import (
	"strings"
	"time"

	"github.com/stocksync/backend/internal/domain/sync"
	"github.com/stocksync/backend/internal/infrastructure/config"
)

// LoginForm describes a portal's login page
type LoginForm struct {
	// URL is the full login page address
	URL string
	// UsernameSelector locates the username input
	UsernameSelector string
	// PasswordSelector locates the password input
	PasswordSelector string
	// SubmitSelector locates the submit control
	SubmitSelector string
	// ReadySelector is a node that only exists once login succeeded
	ReadySelector string
	// Timeout bounds the whole login flow
	Timeout time.Duration
}

// RecordTable describes where one record kind renders on a portal
type RecordTable struct {
	// Path is the listing page path relative to the portal base URL
	Path string
	// ContentSelector is the presence-wait target after navigation
	ContentSelector string
	// RowsSelector matches the data rows to scrape
	RowsSelector string
}

// Pagination describes a portal's table paging controls
type Pagination struct {
	// NextSelector locates the next-page control
	NextSelector string
	// DisabledClass marks the control (or its parent) unclickable on the
	// last page
	DisabledClass string
	// MaxPages caps how many pages one fetch walks
	MaxPages int
	// SettleDelay is slept after every page transition
	SettleDelay time.Duration
}

// Profile carries everything needed to drive one portal: where its pages
// live, how to log in, which tables to scrape, and how patient navigation
// should be. Selectors are fixed per portal; config supplies the
// deployment's URLs, credentials, and timing.
type Profile struct {
	Source   sync.Source
	BaseURL  string
	Username string
	Password string

	Login  LoginForm
	Tables map[sync.FetchKind]RecordTable
	Paging Pagination

	// LoginPathMarkers are URL fragments that identify the portal's login
	// pages; landing on one mid-fetch means the session expired
	LoginPathMarkers []string

	ContentWaitTimeout time.Duration
	Strategy           StrategyTimeouts
}

// Table returns the record table serving a fetch kind
func (p *Profile) Table(kind sync.FetchKind) (RecordTable, bool) {
	table, ok := p.Tables[kind]
	return table, ok
}

// TableURL returns the absolute listing page URL for a fetch kind
func (p *Profile) TableURL(table RecordTable) string {
	return joinURL(p.BaseURL, table.Path)
}

// IsLoginPath reports whether a URL points at one of the portal's login
// pages
func (p *Profile) IsLoginPath(url string) bool {
	lowered := strings.ToLower(url)
	for _, marker := range p.LoginPathMarkers {
		if strings.Contains(lowered, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// Registry holds the profiles of every configured source
type Registry struct {
	profiles map[sync.Source]*Profile
}

// NewRegistry builds profiles for the sources enabled in config
func NewRegistry(cfg config.PortalConfig) *Registry {
	profiles := make(map[sync.Source]*Profile)
	if cfg.VendorPortal.Enabled {
		profiles[sync.SourceVendorPortal] = vendorProfile(cfg.VendorPortal)
	}
	if cfg.RetailPortal.Enabled {
		profiles[sync.SourceRetailPortal] = retailProfile(cfg.RetailPortal)
	}
	return &Registry{profiles: profiles}
}

// Get returns the profile for a source; sources outside the configured
// set map to ErrUnknownSource
func (r *Registry) Get(source sync.Source) (*Profile, error) {
	profile, ok := r.profiles[source]
	if !ok {
		return nil, sync.ErrUnknownSource
	}
	return profile, nil
}

// Sources returns the configured sources in the domain's stable order
func (r *Registry) Sources() []sync.Source {
	var sources []sync.Source
	for _, source := range sync.AllSources() {
		if _, ok := r.profiles[source]; ok {
			sources = append(sources, source)
		}
	}
	return sources
}

// vendorProfile describes the distributor back office: purchase order
// history plus the supplier stock catalog
func vendorProfile(s config.PortalSourceConfig) *Profile {
	return &Profile{
		Source:   sync.SourceVendorPortal,
		BaseURL:  s.BaseURL,
		Username: s.Username,
		Password: s.Password,
		Login: LoginForm{
			URL:              loginURL(s, "/login"),
			UsernameSelector: "#username",
			PasswordSelector: "#password",
			SubmitSelector:   "button[type='submit']",
			ReadySelector:    "#main-menu",
			Timeout:          s.LoginTimeout,
		},
		Tables: map[sync.FetchKind]RecordTable{
			sync.FetchKindOrders: {
				Path:            "/orders/history",
				ContentSelector: "table#order-history",
				RowsSelector:    "table#order-history tbody tr",
			},
			sync.FetchKindItems: {
				Path:            "/stock/catalog",
				ContentSelector: "table#stock-catalog",
				RowsSelector:    "table#stock-catalog tbody tr",
			},
		},
		Paging: Pagination{
			NextSelector:  "ul.pagination li.next a",
			DisabledClass: "disabled",
			MaxPages:      s.MaxPages,
			SettleDelay:   s.PageSettleDelay,
		},
		LoginPathMarkers:   []string{"/login", "/account/signin"},
		ContentWaitTimeout: s.ContentWaitTimeout,
		Strategy: StrategyTimeouts{
			LoadComplete: s.LoadCompleteTimeout,
			DOMReady:     s.DOMReadyTimeout,
			NavCommit:    s.NavCommitTimeout,
			FixedWait:    s.FixedWaitDelay,
		},
	}
}

// retailProfile describes the storefront back office: sales invoices plus
// the store's own product list
func retailProfile(s config.PortalSourceConfig) *Profile {
	return &Profile{
		Source:   sync.SourceRetailPortal,
		BaseURL:  s.BaseURL,
		Username: s.Username,
		Password: s.Password,
		Login: LoginForm{
			URL:              loginURL(s, "/auth/login"),
			UsernameSelector: "input[name='email']",
			PasswordSelector: "input[name='password']",
			SubmitSelector:   "button.login-submit",
			ReadySelector:    "nav.sidebar",
			Timeout:          s.LoginTimeout,
		},
		Tables: map[sync.FetchKind]RecordTable{
			sync.FetchKindInvoices: {
				Path:            "/sales/invoices",
				ContentSelector: "table.invoice-lines",
				RowsSelector:    "table.invoice-lines tbody tr",
			},
			sync.FetchKindItems: {
				Path:            "/inventory/products",
				ContentSelector: "table.product-list",
				RowsSelector:    "table.product-list tbody tr",
			},
		},
		Paging: Pagination{
			NextSelector:  "button.pagination-next",
			DisabledClass: "is-disabled",
			MaxPages:      s.MaxPages,
			SettleDelay:   s.PageSettleDelay,
		},
		LoginPathMarkers:   []string{"/auth/login", "/auth"},
		ContentWaitTimeout: s.ContentWaitTimeout,
		Strategy: StrategyTimeouts{
			LoadComplete: s.LoadCompleteTimeout,
			DOMReady:     s.DOMReadyTimeout,
			NavCommit:    s.NavCommitTimeout,
			FixedWait:    s.FixedWaitDelay,
		},
	}
}

// loginURL prefers the configured login URL over the portal default path
func loginURL(s config.PortalSourceConfig, defaultPath string) string {
	if s.LoginURL != "" {
		return s.LoginURL
	}
	return joinURL(s.BaseURL, defaultPath)
}

// joinURL joins a base URL and a path without doubling slashes
func joinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
