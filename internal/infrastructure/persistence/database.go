package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database wraps the shared GORM handle. Repositories take Database.DB.
type Database struct {
	DB *gorm.DB
}

type openOptions struct {
	log       gormlogger.Interface
	dialector gorm.Dialector
	pingWait  time.Duration
}

// OpenOption customises Open
type OpenOption func(*openOptions)

// WithGormLogger routes SQL logging through l. The default is silent.
func WithGormLogger(l gormlogger.Interface) OpenOption {
	return func(o *openOptions) { o.log = l }
}

// WithLogLevel uses GORM's stdout logger at the given level
func WithLogLevel(level gormlogger.LogLevel) OpenOption {
	return func(o *openOptions) { o.log = gormlogger.Default.LogMode(level) }
}

// WithDialector replaces the postgres dialector built from the DSN
func WithDialector(d gorm.Dialector) OpenOption {
	return func(o *openOptions) { o.dialector = d }
}

// WithPingTimeout bounds the connectivity check done by Open
func WithPingTimeout(d time.Duration) OpenOption {
	return func(o *openOptions) { o.pingWait = d }
}

// Open connects to the configured database, applies the pool limits and
// verifies the connection before returning.
func Open(ctx context.Context, cfg *config.DatabaseConfig, opts ...OpenOption) (*Database, error) {
	o := openOptions{
		log:      gormlogger.Default.LogMode(gormlogger.Silent),
		pingWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialector == nil {
		o.dialector = postgres.Open(cfg.DSN())
	}

	gdb, err := gorm.Open(o.dialector, &gorm.Config{
		Logger:                 o.log,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
		DisableAutomaticPing:   true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &Database{DB: gdb}
	pool, err := db.pool()
	if err != nil {
		return nil, err
	}
	applyPoolLimits(pool, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, o.pingWait)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func applyPoolLimits(pool *sql.DB, cfg *config.DatabaseConfig) {
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	return pool, nil
}

func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

// Ping is the readiness check for the database
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// PoolStats is a snapshot of the connection pool, logged on shutdown
type PoolStats struct {
	MaxOpen      int           `json:"max_open_connections"`
	Open         int           `json:"open_connections"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"wait_count"`
	WaitDuration time.Duration `json:"wait_duration"`
}

func (d *Database) PoolStats() (PoolStats, error) {
	pool, err := d.pool()
	if err != nil {
		return PoolStats{}, err
	}
	s := pool.Stats()
	return PoolStats{
		MaxOpen:      s.MaxOpenConnections,
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
	}, nil
}
