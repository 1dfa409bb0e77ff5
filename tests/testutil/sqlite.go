package testutil

import (
	"testing"
	"time"

	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens an in-memory sqlite database with the storefront schema.
// One connection keeps every query on the same in-memory database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX idx_carts_active_user ON carts (user_id) WHERE status = 'active' AND user_id IS NOT NULL`,
	).Error)
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX idx_carts_active_session ON carts (session_id) WHERE status = 'active' AND session_id IS NOT NULL`,
	).Error)

	return db
}
