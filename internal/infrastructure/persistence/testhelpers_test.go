package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewSQLiteDB(t)
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(email, "Passw0rd!", "Test User")
	require.NoError(t, err)
	require.NoError(t, NewGormUserRepository(db).Create(t.Context(), user))
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, name, sku, price string, stock int) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(name, sku, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Create(t.Context(), product))
	return product
}

func newTestOrder(t *testing.T, number string, userID uuid.UUID, products ...*catalog.Product) *order.Order {
	t.Helper()
	lines := make([]order.Line, len(products))
	for i, p := range products {
		lines[i] = order.Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			UnitPrice:   p.Price,
			Quantity:    i + 1,
		}
	}
	o, err := order.NewOrder(number, userID, lines, order.ShippingAddress{
		Recipient:  "Jane Doe",
		Phone:      "+1 555 0100",
		Line1:      "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}, decimal.RequireFromString("5.00"), "")
	require.NoError(t, err)
	return o
}
