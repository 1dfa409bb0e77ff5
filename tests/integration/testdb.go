// Package integration runs the storefront against real PostgreSQL and Redis
// containers started with testcontainers.
package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/migration"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Postgres is a migrated database running in a container
type Postgres struct {
	DB *gorm.DB
	t  *testing.T
}

// sharedPG is started once per package run and stopped from TestMain
var sharedPG struct {
	sync.Mutex
	container testcontainers.Container
	dsn       string
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

func startPostgres(ctx context.Context, t *testing.T, database string) (testcontainers.Container, string) {
	t.Helper()
	c, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase(database),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres")
	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
	}
	require.NoError(t, err, "postgres dsn")
	return c, dsn
}

// connect opens the database through the same path the server uses.
// TEST_DB_DEBUG=1 logs every statement.
func connect(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := persistence.Open(context.Background(),
		&config.DatabaseConfig{MaxOpenConns: 10, MaxIdleConns: 2, ConnMaxLifetime: 5},
		persistence.WithDialector(gormpostgres.Open(dsn)),
		persistence.WithLogLevel(level),
	)
	require.NoError(t, err, "connect to postgres")
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

// migrate applies the embedded migrations, the set cmd/migrate ships
func migrate(t *testing.T, db *gorm.DB) {
	t.Helper()
	pool, err := db.DB()
	require.NoError(t, err)
	m, err := migration.New(pool, migration.Embedded(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	status, err := m.Status()
	require.NoError(t, err)
	require.False(t, status.Dirty, "schema left dirty")
	require.Empty(t, status.Pending, "migrations left pending")
}

// OwnPostgres starts a container for this test alone
func OwnPostgres(t *testing.T) *Postgres {
	t.Helper()
	requireDocker(t)

	c, dsn := startPostgres(context.Background(), t, "storefront_test")
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})
	db := connect(t, dsn)
	migrate(t, db)
	return &Postgres{DB: db, t: t}
}

// SharedPostgres connects to the package-wide container, starting and
// migrating it on first use. Callers Truncate before they begin.
func SharedPostgres(t *testing.T) *Postgres {
	t.Helper()
	requireDocker(t)

	sharedPG.Lock()
	defer sharedPG.Unlock()
	fresh := sharedPG.container == nil
	if fresh {
		sharedPG.container, sharedPG.dsn = startPostgres(context.Background(), t, "storefront_shared_test")
	}

	db := connect(t, sharedPG.dsn)
	if fresh {
		migrate(t, db)
	}
	return &Postgres{DB: db, t: t}
}

// StopSharedPostgres terminates the shared container; TestMain calls it
func StopSharedPostgres() {
	sharedPG.Lock()
	defer sharedPG.Unlock()
	if sharedPG.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = sharedPG.container.Terminate(ctx)
	sharedPG.container, sharedPG.dsn = nil, ""
}

// Truncate empties every table except the migration bookkeeping
func (p *Postgres) Truncate() {
	p.t.Helper()
	var tables []string
	require.NoError(p.t, p.DB.Raw(
		`SELECT quote_ident(tablename) FROM pg_tables WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`,
	).Scan(&tables).Error)
	for _, table := range tables {
		require.NoError(p.t, p.DB.Exec("TRUNCATE TABLE "+table+" CASCADE").Error)
	}
}

// StartRedis runs a throwaway Redis and returns a connected client
func StartRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	requireDocker(t)

	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	addr, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}
