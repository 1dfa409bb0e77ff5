package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const envPrefix = "SHOP"

// defaults registers every key so that SHOP_* variables reach Unmarshal
// even when config.toml omits the key.
var defaults = map[string]any{
	"app.name": "storefront",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "storefront",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                   "",
	"jwt.refresh_secret":           "",
	"jwt.access_token_expiration":  15 * time.Minute,
	"jwt.refresh_token_expiration": 7 * 24 * time.Hour,
	"jwt.issuer":                   "storefront",

	"auth.max_login_attempts": 5,
	"auth.lock_duration":      15 * time.Minute,

	"log.level":        "info",
	"log.format":       "console",
	"log.output":       "stdout",
	"log.max_size_mb":  100,
	"log.max_backups":  5,
	"log.max_age_days": 30,
	"log.compress":     false,
	"log.db_level":     "warn",

	"http.read_timeout":             15 * time.Second,
	"http.write_timeout":            30 * time.Second,
	"http.idle_timeout":             60 * time.Second,
	"http.max_header_bytes":         1 << 20,
	"http.max_body_size":            int64(1 << 20),
	"http.rate_limit_enabled":       false,
	"http.rate_limit_requests":      100,
	"http.rate_limit_window":        time.Minute,
	"http.auth_rate_limit_enabled":  false,
	"http.auth_rate_limit_requests": 10,
	"http.auth_rate_limit_window":   time.Minute,
	"http.cors_allow_origins":       []string{},
	"http.cors_allow_methods":       []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
	"http.cors_allow_headers":       []string{"Content-Type", "Authorization", "X-Request-ID", "X-Session-ID", "Idempotency-Key"},
	"http.trusted_proxies":          []string{},

	"storage.enabled":            false,
	"storage.endpoint":           "",
	"storage.region":             "us-east-1",
	"storage.bucket":             "",
	"storage.access_key":         "",
	"storage.secret_key":         "",
	"storage.use_ssl":            false,
	"storage.use_path_style":     false,
	"storage.presign_expiration": 15 * time.Minute,
	"storage.max_image_size":     int64(5 << 20),

	"invoice.enabled":         false,
	"invoice.chrome_url":      "",
	"invoice.timeout":         30 * time.Second,
	"invoice.company_name":    "Storefront",
	"invoice.company_address": "",

	"shop.currency":                "USD",
	"shop.flat_shipping_fee":       "5.00",
	"shop.free_shipping_threshold": "50.00",
	"shop.low_stock_threshold":     5,
	"shop.guest_cart_ttl":          30 * 24 * time.Hour,
	"shop.pending_order_ttl":       time.Duration(0),
	"shop.idempotency_ttl":         24 * time.Hour,
	"shop.product_cache_ttl":       5 * time.Minute,

	"scheduler.enabled":                 false,
	"scheduler.worker_count":            2,
	"scheduler.job_timeout":             5 * time.Minute,
	"scheduler.retry_attempts":          3,
	"scheduler.retry_delay":             30 * time.Second,
	"scheduler.token_purge_interval":    time.Hour,
	"scheduler.cart_cleanup_interval":   6 * time.Hour,
	"scheduler.order_expiry_interval":   10 * time.Minute,
	"scheduler.expired_token_retention": 24 * time.Hour,

	"swagger.enabled":      false,
	"swagger.require_auth": false,
	"swagger.allowed_ips":  []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.profiling_enabled":       false,
	"telemetry.pyroscope_address":       "http://localhost:4040",
}

// Load reads config.toml from the working directory, ./config or /app and
// overlays SHOP_* environment variables, e.g. SHOP_DATABASE_PASSWORD.
// A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "./config", "/app"} {
		v.AddConfigPath(dir)
	}

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Shop.FlatShippingFee, err = money(v, "shop.flat_shipping_fee"); err != nil {
		return nil, err
	}
	if cfg.Shop.FreeShippingThreshold, err = money(v, "shop.free_shipping_threshold"); err != nil {
		return nil, err
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// money parses a decimal amount. An explicitly empty value means zero.
func money(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid amount %q: %w", key, raw, err)
	}
	return d, nil
}
