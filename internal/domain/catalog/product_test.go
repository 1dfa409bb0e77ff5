package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T, stock int) *Product {
	t.Helper()
	product, err := NewProduct("Espresso Cup", "cup-001", decimal.RequireFromString("12.50"), stock)
	require.NoError(t, err)
	product.PullDomainEvents()
	return product
}

func TestNewProduct(t *testing.T) {
	t.Run("creates active product", func(t *testing.T) {
		product, err := NewProduct(" Espresso Cup ", "cup-001", decimal.RequireFromString("12.5"), 10)
		require.NoError(t, err)

		assert.Equal(t, "Espresso Cup", product.Name)
		assert.Equal(t, "espresso-cup", product.Slug)
		assert.Equal(t, "CUP-001", product.SKU)
		assert.True(t, product.Price.Equal(decimal.RequireFromString("12.50")))
		assert.Equal(t, 10, product.Stock)
		assert.True(t, product.Active)

		events := product.PendingEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeProductCreated, events[0].EventType())
	})

	t.Run("validation", func(t *testing.T) {
		price := decimal.RequireFromString("1.00")
		cases := []struct {
			name  string
			sku   string
			price decimal.Decimal
			stock int
			code  string
		}{
			{"", "SKU", price, 1, "INVALID_PRODUCT_NAME"},
			{"Cup", "", price, 1, "INVALID_SKU"},
			{"Cup", "bad sku", price, 1, "INVALID_SKU"},
			{"Cup", "SKU", decimal.Zero, 1, "INVALID_PRICE"},
			{"Cup", "SKU", decimal.RequireFromString("1.999"), 1, "INVALID_PRICE"},
			{"Cup", "SKU", price, -1, "INVALID_STOCK"},
			{"Cup", "SKU", price, MaxStock + 1, "INVALID_STOCK"},
		}
		for _, tc := range cases {
			_, err := NewProduct(tc.name, tc.sku, tc.price, tc.stock)
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr, tc.code)
			assert.Equal(t, tc.code, domainErr.Code)
		}
	})
}

func TestProduct_Stock(t *testing.T) {
	t.Run("decrease within stock", func(t *testing.T) {
		product := newTestProduct(t, 5)
		require.NoError(t, product.DecreaseStock(5))
		assert.Zero(t, product.Stock)
		assert.Len(t, product.PendingEvents(), 1)
		assert.Equal(t, EventTypeProductStockChanged, product.PendingEvents()[0].EventType())
	})

	t.Run("decrease beyond stock", func(t *testing.T) {
		product := newTestProduct(t, 2)
		err := product.DecreaseStock(3)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 2, product.Stock)
	})

	t.Run("increase and adjust", func(t *testing.T) {
		product := newTestProduct(t, 2)
		require.NoError(t, product.IncreaseStock(3))
		require.NoError(t, product.AdjustStock(-4))
		assert.Equal(t, 1, product.Stock)
		assert.Error(t, product.AdjustStock(-2))
		assert.Error(t, product.AdjustStock(0))
	})

	t.Run("set stock", func(t *testing.T) {
		product := newTestProduct(t, 2)
		require.NoError(t, product.SetStock(0))
		assert.Error(t, product.SetStock(-1))
		assert.True(t, product.IsLowStock(0))
	})
}

func TestProduct_IsPurchasable(t *testing.T) {
	product := newTestProduct(t, 3)

	assert.True(t, product.IsPurchasable(3))
	assert.False(t, product.IsPurchasable(4))
	assert.False(t, product.IsPurchasable(0))

	require.NoError(t, product.Deactivate())
	assert.False(t, product.IsPurchasable(1))
	assert.Error(t, product.Deactivate())
	require.NoError(t, product.Activate())
}

func TestProduct_Setters(t *testing.T) {
	product := newTestProduct(t, 3)

	require.NoError(t, product.SetPrice(decimal.RequireFromString("9.99")))
	assert.Error(t, product.SetPrice(decimal.RequireFromString("-1")))

	categoryID := uuid.New()
	product.SetCategory(&categoryID)
	assert.Equal(t, &categoryID, product.CategoryID)

	product.SetImageKey("products/cup.png")
	assert.Equal(t, "products/cup.png", product.ImageKey)

	require.NoError(t, product.Update("Espresso Cup XL", "bigger"))
	assert.Equal(t, "espresso-cup", product.Slug, "slug stays stable on rename")
	assert.Len(t, product.PendingEvents(), 4)
}
