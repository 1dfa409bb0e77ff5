package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const guestSession = "guest-session-0001"

type cartFixture struct {
	db       *gorm.DB
	products catalog.ProductRepository
	carts    cart.Repository
	svc      *CartService
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	products := persistence.NewGormProductRepository(db)
	carts := persistence.NewGormCartRepository(db)
	return &cartFixture{
		db:       db,
		products: products,
		carts:    carts,
		svc:      NewCartService(persistence.NewGormTransactionScope(db), carts, products, zap.NewNop()),
	}
}

func (f *cartFixture) product(t *testing.T, name, sku, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, sku, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func TestCartService_Get(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	t.Run("returns an empty cart without persisting", func(t *testing.T) {
		view, err := f.svc.Get(ctx, cart.SessionOwner(guestSession))

		require.NoError(t, err)
		assert.Nil(t, view.ID)
		assert.Empty(t, view.Items)
		assert.True(t, view.Subtotal.IsZero())

		_, err = f.carts.FindActive(ctx, cart.SessionOwner(guestSession))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("requires an owner", func(t *testing.T) {
		_, err := f.svc.Get(ctx, cart.Owner{})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CART_OWNER_REQUIRED", domainErr.Code)
	})

	t.Run("rejects a malformed session id", func(t *testing.T) {
		_, err := f.svc.Get(ctx, cart.SessionOwner("short"))

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_SESSION_ID", domainErr.Code)
	})
}

func TestCartService_AddItem(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	owner := cart.SessionOwner(guestSession)
	mug := f.product(t, "Mug", "MUG-1", "8.50", 5)

	t.Run("creates the cart and accumulates quantity", func(t *testing.T) {
		_, err := f.svc.AddItem(ctx, owner, mug.ID, 2)
		require.NoError(t, err)
		view, err := f.svc.AddItem(ctx, owner, mug.ID, 1)
		require.NoError(t, err)

		require.NotNil(t, view.ID)
		require.Len(t, view.Items, 1)
		assert.Equal(t, 3, view.Items[0].Quantity)
		assert.Equal(t, 3, view.ItemCount)
		assert.True(t, view.Subtotal.Equal(decimal.RequireFromString("25.50")))
		assert.True(t, view.Purchasable)
	})

	t.Run("refuses more than the stock for the whole line", func(t *testing.T) {
		_, err := f.svc.AddItem(ctx, owner, mug.ID, 3)

		assert.ErrorIs(t, err, shared.ErrInsufficientStock)

		view, err := f.svc.Get(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, 3, view.Items[0].Quantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.svc.AddItem(ctx, owner, uuid.New(), 1)

		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("inactive product", func(t *testing.T) {
		hidden := f.product(t, "Hidden", "HID-1", "1.00", 10)
		require.NoError(t, hidden.Deactivate())
		require.NoError(t, f.products.Update(ctx, hidden))

		_, err := f.svc.AddItem(ctx, owner, hidden.ID, 1)

		assert.ErrorIs(t, err, ErrProductUnavailable)
	})

	t.Run("failed first add leaves no cart behind", func(t *testing.T) {
		other := cart.SessionOwner("another-session-01")

		_, err := f.svc.AddItem(ctx, other, mug.ID, 50)
		require.Error(t, err)

		_, err = f.carts.FindActive(ctx, other)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestCartService_UpdateAndRemove(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := cart.UserOwner(userID)
	pen := f.product(t, "Pen", "PEN-1", "2.00", 10)
	ink := f.product(t, "Ink", "INK-1", "4.00", 10)

	_, err := f.svc.AddItem(ctx, owner, pen.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, owner, ink.ID, 1)
	require.NoError(t, err)

	view, err := f.svc.UpdateItem(ctx, owner, pen.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, view.ItemCount)

	_, err = f.svc.UpdateItem(ctx, owner, pen.ID, 11)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	_, err = f.svc.UpdateItem(ctx, owner, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)

	view, err = f.svc.UpdateItem(ctx, owner, pen.ID, 0)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, ink.ID, view.Items[0].ProductID)

	view, err = f.svc.RemoveItem(ctx, owner, ink.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.False(t, view.Purchasable)
}

func TestCartService_ViewReflectsCurrentProduct(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	owner := cart.SessionOwner(guestSession)
	lamp := f.product(t, "Lamp", "LMP-1", "30.00", 2)

	_, err := f.svc.AddItem(ctx, owner, lamp.ID, 2)
	require.NoError(t, err)

	require.NoError(t, lamp.SetPrice(decimal.RequireFromString("25.00")))
	require.NoError(t, lamp.SetStock(1))
	require.NoError(t, f.products.Update(ctx, lamp))

	view, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	line := view.Items[0]
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, 1, line.Stock)
	assert.False(t, line.Available)
	assert.False(t, view.Purchasable)
}

func TestCartService_Clear(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	owner := cart.SessionOwner(guestSession)
	cup := f.product(t, "Cup", "CUP-1", "3.00", 10)

	t.Run("without a cart", func(t *testing.T) {
		view, err := f.svc.Clear(ctx, owner)
		require.NoError(t, err)
		assert.Nil(t, view.ID)
	})

	t.Run("with items", func(t *testing.T) {
		_, err := f.svc.AddItem(ctx, owner, cup.ID, 3)
		require.NoError(t, err)

		view, err := f.svc.Clear(ctx, owner)
		require.NoError(t, err)
		assert.NotNil(t, view.ID)
		assert.Empty(t, view.Items)
	})
}

func TestCartService_Merge(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	guest := cart.SessionOwner(guestSession)
	user := cart.UserOwner(userID)
	tea := f.product(t, "Tea", "TEA-1", "5.00", 200)
	jam := f.product(t, "Jam", "JAM-1", "3.00", 200)

	_, err := f.svc.AddItem(ctx, user, tea.ID, 60)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, guest, tea.ID, 60)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, guest, jam.ID, 2)
	require.NoError(t, err)

	view, err := f.svc.Merge(ctx, guestSession, userID)
	require.NoError(t, err)

	quantities := map[uuid.UUID]int{}
	for _, item := range view.Items {
		quantities[item.ProductID] = item.Quantity
	}
	assert.Equal(t, cart.MaxItemQuantity, quantities[tea.ID])
	assert.Equal(t, 2, quantities[jam.ID])

	_, err = f.carts.FindActive(ctx, guest)
	assert.ErrorIs(t, err, shared.ErrNotFound, "guest cart is no longer active")

	t.Run("merging again is a no-op", func(t *testing.T) {
		again, err := f.svc.Merge(ctx, guestSession, userID)
		require.NoError(t, err)
		assert.Equal(t, view.ItemCount, again.ItemCount)
	})

	t.Run("new user without a cart takes over the guest lines", func(t *testing.T) {
		otherGuest := "other-guest-000001"
		_, err := f.svc.AddItem(ctx, cart.SessionOwner(otherGuest), jam.ID, 1)
		require.NoError(t, err)

		merged, err := f.svc.Merge(ctx, otherGuest, uuid.New())
		require.NoError(t, err)
		require.Len(t, merged.Items, 1)
		assert.Equal(t, jam.ID, merged.Items[0].ProductID)
	})
}
