package config

import (
	"errors"
	"fmt"
	"slices"
)

const minProductionSecret = 32

// validate reports every problem at once, joined into a single error
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns <= db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	check(c.JWT.RefreshTokenExpiration > c.JWT.AccessTokenExpiration,
		"jwt.refresh_token_expiration must be longer than jwt.access_token_expiration")
	check(c.Auth.MaxLoginAttempts >= 1, "auth.max_login_attempts must be at least 1")
	check(!c.Shop.FlatShippingFee.IsNegative() && !c.Shop.FreeShippingThreshold.IsNegative(),
		"shop shipping amounts cannot be negative")
	check(c.Shop.PendingOrderTTL >= 0, "shop.pending_order_ttl cannot be negative")
	check(!c.Storage.Enabled || c.Storage.Bucket != "", "storage.bucket is required when storage is enabled")
	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)

	if c.App.IsProduction() {
		errs = append(errs, c.productionProblems()...)
	}
	return errors.Join(errs...)
}

// productionProblems lists settings that are tolerated in development only
func (c *Config) productionProblems() []error {
	var errs []error
	switch {
	case c.JWT.Secret == "":
		errs = append(errs, errors.New("jwt.secret is required in production"))
	case len(c.JWT.Secret) < minProductionSecret:
		errs = append(errs, fmt.Errorf("jwt.secret must be at least %d characters in production", minProductionSecret))
	}
	if c.JWT.RefreshSecret != "" && len(c.JWT.RefreshSecret) < minProductionSecret {
		errs = append(errs, fmt.Errorf("jwt.refresh_secret must be at least %d characters in production", minProductionSecret))
	}
	if c.Database.Password == "" {
		errs = append(errs, errors.New("database.password is required in production"))
	}
	if c.Database.SSLMode == "disable" {
		errs = append(errs, errors.New("database.sslmode cannot be 'disable' in production"))
	}
	if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
		errs = append(errs, errors.New("http.cors_allow_origins cannot contain '*' in production"))
	}
	if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
		errs = append(errs, errors.New("swagger must be disabled, authenticated or IP restricted in production"))
	}
	if c.Telemetry.DBLogFullSQL {
		errs = append(errs, errors.New("telemetry.db_log_full_sql must be false in production"))
	}
	return errs
}
