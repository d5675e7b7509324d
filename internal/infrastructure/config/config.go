package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Portal    PortalConfig
	Storage   StorageConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string // time layout for log entries
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds JWT and admin-key settings
type AuthConfig struct {
	JWTSecret              string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	MaxRefreshCount        int
	// AdminKeyHash is a bcrypt hash accepted via X-Admin-Key on approval
	// routes as a fallback when the caller has no admin JWT
	AdminKeyHash string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// AuthRateLimit* apply a stricter per-IP budget to routes that accept
	// the admin key header, so failed guesses exhaust it quickly
	AuthRateLimitEnabled  bool
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// SyncConfig holds fetch orchestration and ingestion settings
type SyncConfig struct {
	// MaxAttempts caps whole-fetch attempts per trigger, first try included
	MaxAttempts int
	// BaseDelay is the backoff before the second attempt; it doubles per
	// further attempt up to MaxDelay
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// FetchTimeout bounds one whole fetch including retries and ingestion
	FetchTimeout time.Duration
	// GuardTTL is the source-guard expiry backstop for crashed fetches
	GuardTTL time.Duration
	// IngestBatchSize caps mirrors folded per stock-processing run
	IngestBatchSize int
	// StaleItemAge is how old an item's last sync may be before it counts
	// as stale
	StaleItemAge time.Duration
	// DetailTrailLimit caps history and movement rows on detail views
	DetailTrailLimit int
	// AliasCacheTTL bounds how long a cached alias lookup table may serve
	// reads; writes invalidate it immediately within one instance
	AliasCacheTTL time.Duration
}

// SchedulerConfig holds background fetch scheduling configuration
type SchedulerConfig struct {
	Enabled bool
	// VendorInterval and RetailInterval are the per-source fetch cadences
	VendorInterval time.Duration
	RetailInterval time.Duration
	// RetentionDays is how long fetch history is kept before purging
	RetentionDays int
	// RetentionInterval is how often the purge runs
	RetentionInterval time.Duration
}

// PortalSourceConfig holds per-source portal access settings. Selectors
// live in the portal profile registry; config supplies deployment-specific
// URLs, credentials, and timing.
type PortalSourceConfig struct {
	Enabled             bool
	BaseURL             string
	LoginURL            string
	Username            string
	Password            string
	MaxPages            int
	PageSettleDelay     time.Duration
	ContentWaitTimeout  time.Duration
	LoadCompleteTimeout time.Duration
	DOMReadyTimeout     time.Duration
	NavCommitTimeout    time.Duration
	FixedWaitDelay      time.Duration
	LoginTimeout        time.Duration
}

// PortalConfig holds browser automation settings
type PortalConfig struct {
	Headless     bool
	NoSandbox    bool
	DisableGPU   bool
	ExecPath     string // custom browser binary, empty for the default
	VendorPortal PortalSourceConfig
	RetailPortal PortalSourceConfig
}

// StorageConfig holds S3-compatible object storage settings for fetch
// diagnostics (failure screenshots)
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	KeyPrefix         string
	PresignExpiration time.Duration
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool     // Whether to enable Swagger endpoint
	RequireAuth bool     // Require authentication to access Swagger
	AllowedIPs  []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// Continuous profiling
	ProfilingEnabled       bool
	ProfilingServerAddress string // Pyroscope server address
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SYNC_ prefix (e.g., SYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			JWTSecret:              v.GetString("auth.jwt_secret"),
			RefreshSecret:          v.GetString("auth.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("auth.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("auth.refresh_token_expiration"),
			Issuer:                 v.GetString("auth.issuer"),
			MaxRefreshCount:        v.GetInt("auth.max_refresh_count"),
			AdminKeyHash:           v.GetString("auth.admin_key_hash"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			TimeFormat: v.GetString("log.time_format"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			MaxAttempts:      v.GetInt("sync.max_attempts"),
			BaseDelay:        v.GetDuration("sync.base_delay"),
			MaxDelay:         v.GetDuration("sync.max_delay"),
			FetchTimeout:     v.GetDuration("sync.fetch_timeout"),
			GuardTTL:         v.GetDuration("sync.guard_ttl"),
			IngestBatchSize:  v.GetInt("sync.ingest_batch_size"),
			StaleItemAge:     v.GetDuration("sync.stale_item_age"),
			DetailTrailLimit: v.GetInt("sync.detail_trail_limit"),
			AliasCacheTTL:    v.GetDuration("sync.alias_cache_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			VendorInterval:    v.GetDuration("scheduler.vendor_interval"),
			RetailInterval:    v.GetDuration("scheduler.retail_interval"),
			RetentionDays:     v.GetInt("scheduler.retention_days"),
			RetentionInterval: v.GetDuration("scheduler.retention_interval"),
		},
		Portal: PortalConfig{
			Headless:     v.GetBool("portal.headless"),
			NoSandbox:    v.GetBool("portal.no_sandbox"),
			DisableGPU:   v.GetBool("portal.disable_gpu"),
			ExecPath:     v.GetString("portal.exec_path"),
			VendorPortal: portalSourceConfig(v, "portal.vendor_portal"),
			RetailPortal: portalSourceConfig(v, "portal.retail_portal"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			KeyPrefix:         v.GetString("storage.key_prefix"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:                v.GetBool("telemetry.enabled"),
			CollectorEndpoint:      v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:          v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:            v.GetString("telemetry.service_name"),
			Insecure:               v.GetBool("telemetry.insecure"),
			DBTraceEnabled:         v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:           v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:      v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:       v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress: v.GetString("telemetry.profiling_server_address"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// portalSourceConfig reads one per-source portal section
func portalSourceConfig(v *viper.Viper, prefix string) PortalSourceConfig {
	return PortalSourceConfig{
		Enabled:             v.GetBool(prefix + ".enabled"),
		BaseURL:             v.GetString(prefix + ".base_url"),
		LoginURL:            v.GetString(prefix + ".login_url"),
		Username:            v.GetString(prefix + ".username"),
		Password:            v.GetString(prefix + ".password"),
		MaxPages:            v.GetInt(prefix + ".max_pages"),
		PageSettleDelay:     v.GetDuration(prefix + ".page_settle_delay"),
		ContentWaitTimeout:  v.GetDuration(prefix + ".content_wait_timeout"),
		LoadCompleteTimeout: v.GetDuration(prefix + ".load_complete_timeout"),
		DOMReadyTimeout:     v.GetDuration(prefix + ".dom_ready_timeout"),
		NavCommitTimeout:    v.GetDuration(prefix + ".nav_commit_timeout"),
		FixedWaitDelay:      v.GetDuration(prefix + ".fixed_wait_delay"),
		LoginTimeout:        v.GetDuration(prefix + ".login_timeout"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "stocksync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "stocksync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Auth.AccessTokenExpiration == 0 {
		cfg.Auth.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.Auth.RefreshTokenExpiration == 0 {
		cfg.Auth.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "stocksync-backend"
	}
	if cfg.Auth.MaxRefreshCount == 0 {
		cfg.Auth.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.TimeFormat == "" {
		cfg.Log.TimeFormat = "2006-01-02T15:04:05.000Z07:00"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Admin-Key"}
	}
	if cfg.Sync.MaxAttempts == 0 {
		cfg.Sync.MaxAttempts = 3
	}
	if cfg.Sync.BaseDelay == 0 {
		cfg.Sync.BaseDelay = 5 * time.Second
	}
	if cfg.Sync.MaxDelay == 0 {
		cfg.Sync.MaxDelay = 60 * time.Second
	}
	if cfg.Sync.FetchTimeout == 0 {
		cfg.Sync.FetchTimeout = 10 * time.Minute
	}
	if cfg.Sync.GuardTTL == 0 {
		cfg.Sync.GuardTTL = 15 * time.Minute
	}
	if cfg.Sync.IngestBatchSize == 0 {
		cfg.Sync.IngestBatchSize = 100
	}
	if cfg.Sync.StaleItemAge == 0 {
		cfg.Sync.StaleItemAge = 48 * time.Hour
	}
	if cfg.Sync.DetailTrailLimit == 0 {
		cfg.Sync.DetailTrailLimit = 50
	}
	if cfg.Sync.AliasCacheTTL == 0 {
		cfg.Sync.AliasCacheTTL = 5 * time.Minute
	}
	if cfg.Scheduler.VendorInterval == 0 {
		cfg.Scheduler.VendorInterval = 6 * time.Hour
	}
	if cfg.Scheduler.RetailInterval == 0 {
		cfg.Scheduler.RetailInterval = 6 * time.Hour
	}
	if cfg.Scheduler.RetentionDays == 0 {
		cfg.Scheduler.RetentionDays = 10
	}
	if cfg.Scheduler.RetentionInterval == 0 {
		cfg.Scheduler.RetentionInterval = 12 * time.Hour
	}
	applyPortalSourceDefaults(&cfg.Portal.VendorPortal)
	applyPortalSourceDefaults(&cfg.Portal.RetailPortal)
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "sync-artifacts"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "stocksync-backend"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	// Note: DBLogFullSQL defaults to false for security (disable in production)
}

func applyPortalSourceDefaults(src *PortalSourceConfig) {
	if src.MaxPages == 0 {
		src.MaxPages = 20
	}
	if src.PageSettleDelay == 0 {
		src.PageSettleDelay = 2 * time.Second
	}
	if src.ContentWaitTimeout == 0 {
		src.ContentWaitTimeout = 10 * time.Second
	}
	if src.LoadCompleteTimeout == 0 {
		src.LoadCompleteTimeout = 30 * time.Second
	}
	if src.DOMReadyTimeout == 0 {
		src.DOMReadyTimeout = 20 * time.Second
	}
	if src.NavCommitTimeout == 0 {
		src.NavCommitTimeout = 15 * time.Second
	}
	if src.FixedWaitDelay == 0 {
		src.FixedWaitDelay = 8 * time.Second
	}
	if src.LoginTimeout == 0 {
		src.LoginTimeout = 45 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("sync.max_attempts must be at least 1")
	}
	if c.Sync.BaseDelay < 0 || c.Sync.MaxDelay < c.Sync.BaseDelay {
		return fmt.Errorf("sync.max_delay (%s) cannot be below sync.base_delay (%s)",
			c.Sync.MaxDelay, c.Sync.BaseDelay)
	}
	if c.Scheduler.RetentionDays < 1 {
		return fmt.Errorf("scheduler.retention_days must be at least 1")
	}

	// An enabled portal source needs enough to actually reach the portal
	for name, src := range map[string]PortalSourceConfig{
		"portal.vendor_portal": c.Portal.VendorPortal,
		"portal.retail_portal": c.Portal.RetailPortal,
	} {
		if !src.Enabled {
			continue
		}
		if src.BaseURL == "" {
			return fmt.Errorf("%s.base_url is required when the source is enabled", name)
		}
		if src.Username == "" || src.Password == "" {
			return fmt.Errorf("%s credentials are required when the source is enabled", name)
		}
	}

	if c.Storage.Enabled {
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage is enabled")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage credentials are required when storage is enabled")
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required in production")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// Swagger must be disabled OR protected in production
		if c.Swagger.Enabled {
			if !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
				return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
			}
		}
		// Database tracing: full SQL logging is a security risk in production
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// SourceSettings returns the portal settings for a source key
// (vendor_portal or retail_portal); ok is false for unknown keys
func (p *PortalConfig) SourceSettings(source string) (PortalSourceConfig, bool) {
	switch source {
	case "vendor_portal":
		return p.VendorPortal, true
	case "retail_portal":
		return p.RetailPortal, true
	}
	return PortalSourceConfig{}, false
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
