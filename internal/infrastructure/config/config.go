// Package config loads the server settings from config.toml and SHOP_*
// environment variables.
package config

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Shop      ShopConfig      `mapstructure:"shop"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig describes the postgres pool. Lifetimes are in minutes.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
}

// DSN renders a postgres URL with user info and options escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig is optional. Disabled means the in-process stores are used,
// which only holds for a single replica.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// JWTConfig signs access and refresh tokens. An empty RefreshSecret reuses
// Secret.
type JWTConfig struct {
	Secret                 string        `mapstructure:"secret"`
	RefreshSecret          string        `mapstructure:"refresh_secret"`
	AccessTokenExpiration  time.Duration `mapstructure:"access_token_expiration"`
	RefreshTokenExpiration time.Duration `mapstructure:"refresh_token_expiration"`
	Issuer                 string        `mapstructure:"issuer"`
}

type AuthConfig struct {
	MaxLoginAttempts int           `mapstructure:"max_login_attempts"`
	LockDuration     time.Duration `mapstructure:"lock_duration"`
}

// LogConfig selects the zap encoder and sink. Any Output other than stdout
// or stderr is a file rotated by lumberjack.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	DBLevel    string `mapstructure:"db_level"`
}

type HTTPConfig struct {
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	WriteTimeout          time.Duration `mapstructure:"write_timeout"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes        int           `mapstructure:"max_header_bytes"`
	MaxBodySize           int64         `mapstructure:"max_body_size"`
	RateLimitEnabled      bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests     int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow       time.Duration `mapstructure:"rate_limit_window"`
	AuthRateLimitEnabled  bool          `mapstructure:"auth_rate_limit_enabled"`
	AuthRateLimitRequests int           `mapstructure:"auth_rate_limit_requests"`
	AuthRateLimitWindow   time.Duration `mapstructure:"auth_rate_limit_window"`
	CORSAllowOrigins      []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods      []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders      []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies        []string      `mapstructure:"trusted_proxies"`
}

// StorageConfig points at an S3 compatible bucket for product images
type StorageConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Endpoint          string        `mapstructure:"endpoint"`
	Region            string        `mapstructure:"region"`
	Bucket            string        `mapstructure:"bucket"`
	AccessKey         string        `mapstructure:"access_key"`
	SecretKey         string        `mapstructure:"secret_key"`
	UseSSL            bool          `mapstructure:"use_ssl"`
	UsePathStyle      bool          `mapstructure:"use_path_style"`
	PresignExpiration time.Duration `mapstructure:"presign_expiration"`
	MaxImageSize      int64         `mapstructure:"max_image_size"`
}

// InvoiceConfig drives the headless Chrome PDF renderer. An empty ChromeURL
// launches a local browser.
type InvoiceConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ChromeURL      string        `mapstructure:"chrome_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	CompanyName    string        `mapstructure:"company_name"`
	CompanyAddress string        `mapstructure:"company_address"`
}

// ShopConfig holds the storefront business rules. The money fields are
// parsed separately so they never pass through float64.
type ShopConfig struct {
	Currency              string          `mapstructure:"currency"`
	FlatShippingFee       decimal.Decimal `mapstructure:"-"`
	FreeShippingThreshold decimal.Decimal `mapstructure:"-"` // zero disables free shipping
	LowStockThreshold     int             `mapstructure:"low_stock_threshold"`
	GuestCartTTL          time.Duration   `mapstructure:"guest_cart_ttl"`
	PendingOrderTTL       time.Duration   `mapstructure:"pending_order_ttl"` // zero never expires orders
	IdempotencyTTL        time.Duration   `mapstructure:"idempotency_ttl"`
	ProductCacheTTL       time.Duration   `mapstructure:"product_cache_ttl"`
}

type SchedulerConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	WorkerCount          int           `mapstructure:"worker_count"`
	JobTimeout           time.Duration `mapstructure:"job_timeout"`
	RetryAttempts        int           `mapstructure:"retry_attempts"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
	TokenPurgeInterval   time.Duration `mapstructure:"token_purge_interval"`
	CartCleanupInterval  time.Duration `mapstructure:"cart_cleanup_interval"`
	OrderExpiryInterval  time.Duration `mapstructure:"order_expiry_interval"`
	ExpiredTokenRetainAt time.Duration `mapstructure:"expired_token_retention"`
}

// SwaggerConfig guards /swagger. An empty AllowedIPs admits every client.
type SwaggerConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	RequireAuth bool     `mapstructure:"require_auth"`
	AllowedIPs  []string `mapstructure:"allowed_ips"`
}

type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
	ProfilingEnabled  bool          `mapstructure:"profiling_enabled"`
	PyroscopeAddress  string        `mapstructure:"pyroscope_address"`
}
