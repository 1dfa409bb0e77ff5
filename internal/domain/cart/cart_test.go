package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var price = decimal.RequireFromString("4.25")

func newGuestCart(t *testing.T) *Cart {
	t.Helper()
	c, err := NewCart(SessionOwner("guest-session-1"))
	require.NoError(t, err)
	return c
}

func TestOwner_Validate(t *testing.T) {
	userID := uuid.New()
	nilID := uuid.Nil

	assert.NoError(t, UserOwner(userID).Validate())
	assert.NoError(t, SessionOwner("abcd_1234-xyz").Validate())

	var domainErr *shared.DomainError
	require.ErrorAs(t, Owner{}.Validate(), &domainErr)
	assert.Equal(t, "CART_OWNER_REQUIRED", domainErr.Code)

	require.ErrorAs(t, Owner{UserID: &nilID}.Validate(), &domainErr)
	assert.Equal(t, "CART_OWNER_REQUIRED", domainErr.Code)

	require.ErrorAs(t, SessionOwner("short").Validate(), &domainErr)
	assert.Equal(t, "INVALID_SESSION_ID", domainErr.Code)

	require.ErrorAs(t, SessionOwner("has spaces in it").Validate(), &domainErr)
	assert.Equal(t, "INVALID_SESSION_ID", domainErr.Code)

	require.ErrorAs(t, Owner{UserID: &userID, SessionID: "abcd_1234"}.Validate(), &domainErr)
	assert.Equal(t, "INVALID_CART_OWNER", domainErr.Code)

	assert.True(t, SessionOwner("abcd_1234").IsGuest())
	assert.Equal(t, "user:"+userID.String(), UserOwner(userID).String())
}

func TestCart_AddItem(t *testing.T) {
	c := newGuestCart(t)
	productID := uuid.New()

	require.NoError(t, c.AddItem(productID, 2, price))
	require.NoError(t, c.AddItem(productID, 3, price))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.QuantityOf(productID))
	assert.Equal(t, 5, c.ItemCount())
	assert.True(t, c.Subtotal().Equal(decimal.RequireFromString("21.25")))

	assert.Error(t, c.AddItem(productID, 0, price))

	err := c.AddItem(productID, MaxItemQuantity, price)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "QUANTITY_LIMIT_EXCEEDED", domainErr.Code)
	assert.Equal(t, 5, c.QuantityOf(productID))
}

func TestCart_SetItemQuantity(t *testing.T) {
	c := newGuestCart(t)
	productID := uuid.New()
	require.NoError(t, c.AddItem(productID, 2, price))

	require.NoError(t, c.SetItemQuantity(productID, 7, price))
	assert.Equal(t, 7, c.QuantityOf(productID))

	require.NoError(t, c.SetItemQuantity(productID, 0, price))
	assert.True(t, c.IsEmpty())

	assert.Error(t, c.SetItemQuantity(productID, -1, price))
	assert.Error(t, c.SetItemQuantity(uuid.Nil, 1, price))
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := newGuestCart(t)
	a, b := uuid.New(), uuid.New()
	require.NoError(t, c.AddItem(a, 1, price))
	require.NoError(t, c.AddItem(b, 1, price))

	require.NoError(t, c.RemoveItem(a))
	assert.Len(t, c.Items, 1)

	var domainErr *shared.DomainError
	require.ErrorAs(t, c.RemoveItem(a), &domainErr)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", domainErr.Code)

	require.NoError(t, c.Clear())
	assert.True(t, c.IsEmpty())
}

func TestCart_MergeFrom(t *testing.T) {
	userCart, err := NewCart(UserOwner(uuid.New()))
	require.NoError(t, err)
	guest := newGuestCart(t)

	common, onlyGuest, capped := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, userCart.AddItem(common, 1, price))
	require.NoError(t, userCart.AddItem(capped, 90, price))
	require.NoError(t, guest.AddItem(common, 2, price))
	require.NoError(t, guest.AddItem(onlyGuest, 4, price))
	require.NoError(t, guest.AddItem(capped, 20, price))

	require.NoError(t, userCart.MergeFrom(guest))

	assert.Equal(t, 3, userCart.QuantityOf(common))
	assert.Equal(t, 4, userCart.QuantityOf(onlyGuest))
	assert.Equal(t, MaxItemQuantity, userCart.QuantityOf(capped))
	assert.Equal(t, StatusMerged, guest.Status)

	// merged carts cannot be merged twice
	assert.Error(t, userCart.MergeFrom(guest))
}

func TestCart_Converted(t *testing.T) {
	c := newGuestCart(t)
	require.NoError(t, c.AddItem(uuid.New(), 1, price))
	require.NoError(t, c.MarkConverted())

	assert.False(t, c.IsActive())
	assert.Error(t, c.AddItem(uuid.New(), 1, price))
	assert.Error(t, c.Clear())
	assert.Error(t, c.MarkConverted())
}

func TestCart_ProductIDsSorted(t *testing.T) {
	c := newGuestCart(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.AddItem(uuid.New(), 1, price))
	}
	ids := c.ProductIDs()
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1].String(), ids[i].String())
	}
}
