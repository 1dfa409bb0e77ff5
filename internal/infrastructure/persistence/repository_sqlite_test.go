package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appshared "github.com/storefront/backend/internal/application/shared"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "Alice@Example.com")

	t.Run("find by email is case insensitive", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.True(t, found.VerifyPassword("Passw0rd!"))
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup, err := identity.NewUser("alice@example.com", "Passw0rd!", "Other")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("update persists lockout state", func(t *testing.T) {
		require.NoError(t, user.Lock(15*time.Minute))
		require.NoError(t, repo.Update(ctx, user))

		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, identity.UserStatusLocked, found.Status)
		require.NotNil(t, found.LockedUntil)
	})

	t.Run("stale copy cannot undo a deactivation", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		current, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)

		require.NoError(t, current.Deactivate())
		require.NoError(t, repo.Update(ctx, current))

		stale.RecordLoginSuccess("127.0.0.1")
		assert.ErrorIs(t, repo.Update(ctx, stale), shared.ErrConcurrencyConflict)

		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, identity.UserStatusDeactivated, found.Status)
		assert.Equal(t, current.Version, found.Version)
	})

	t.Run("update of missing user", func(t *testing.T) {
		ghost, err := identity.NewUser("ghost@example.com", "Passw0rd!", "Ghost")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Update(ctx, ghost), shared.ErrNotFound)
	})

	t.Run("find all with keyword and role", func(t *testing.T) {
		admin, err := identity.NewAdmin("root@example.com", "Passw0rd!", "Store Admin")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, admin))

		filter := identity.NewUserFilter()
		filter.Keyword = "ADMIN"
		users, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, users, 1)
		assert.Equal(t, admin.ID, users[0].ID)

		role := identity.RoleCustomer
		filter = identity.NewUserFilter()
		filter.Role = &role
		_, total, err = repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		counts, err := repo.CountByRole(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[identity.RoleAdmin])
		assert.Equal(t, int64(1), counts[identity.RoleCustomer])
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestRefreshTokenRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormRefreshTokenRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "bob@example.com")
	now := time.Now().UTC()

	first := identity.NewRefreshToken(uuid.New(), user.ID, uuid.Nil, "raw-1", now.Add(time.Hour), "127.0.0.1", "test")
	require.NoError(t, repo.Create(ctx, first))
	second := identity.NewRefreshToken(uuid.New(), user.ID, first.FamilyID, "raw-2", now.Add(time.Hour), "127.0.0.1", "test")
	require.NoError(t, repo.Create(ctx, second))

	revoked, err := repo.RevokeIfActive(ctx, first.ID, &second.ID, now)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.RevokeIfActive(ctx, first.ID, &second.ID, now)
	require.NoError(t, err)
	assert.False(t, revoked, "second rotation of the same token must lose")

	found, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, found.IsRevoked())
	require.NotNil(t, found.ReplacedBy)
	assert.Equal(t, second.ID, *found.ReplacedBy)
	assert.True(t, found.Matches("raw-1"))

	n, err := repo.RevokeFamily(ctx, first.FamilyID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.RevokeAllForUser(ctx, user.ID, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.DeleteExpiredBefore(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestProductRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	mug := createTestProduct(t, db, "Coffee Mug", "MUG-1", "12.50", 3)
	tee := createTestProduct(t, db, "Cotton Tee", "TEE-1", "20.00", 0)
	pen := createTestProduct(t, db, "Ink Pen", "PEN-1", "2.00", 100)

	t.Run("duplicate sku", func(t *testing.T) {
		dup, err := catalog.NewProduct("Another Mug", "mug-1", decimal.NewFromInt(5), 1)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)

		exists, err := repo.ExistsBySKU(ctx, "mug-1")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("filter and sort", func(t *testing.T) {
		filter := catalog.NewProductFilter()
		filter.InStock = true
		filter.SortBy = "price"
		filter.SortOrder = "asc"
		products, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, products, 2)
		assert.Equal(t, pen.ID, products[0].ID)
		assert.Equal(t, mug.ID, products[1].ID)

		minPrice := decimal.NewFromInt(10)
		filter = catalog.NewProductFilter()
		filter.MinPrice = &minPrice
		filter.Keyword = "co"
		_, total, err = repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("stats and low stock", func(t *testing.T) {
		stats, err := repo.Stats(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, catalog.ProductStats{Total: 3, Active: 3, LowStock: 2, OutOfStock: 1}, stats)

		low, err := repo.FindLowStock(ctx, 5, 10)
		require.NoError(t, err)
		require.Len(t, low, 2)
		assert.Equal(t, tee.ID, low[0].ID)
	})

	t.Run("update and find by slug", func(t *testing.T) {
		require.NoError(t, mug.DecreaseStock(2))
		require.NoError(t, repo.Update(ctx, mug))

		found, err := repo.FindBySlug(ctx, "coffee-mug")
		require.NoError(t, err)
		assert.Equal(t, 1, found.Stock)
		assert.True(t, found.Price.Equal(decimal.RequireFromString("12.50")))
	})

	t.Run("stale edit loses to a stock change", func(t *testing.T) {
		edited, err := repo.FindByID(ctx, pen.ID)
		require.NoError(t, err)
		require.Equal(t, 100, edited.Stock)

		locked, err := repo.FindByIDsForUpdate(ctx, []uuid.UUID{pen.ID})
		require.NoError(t, err)
		require.NoError(t, locked[0].DecreaseStock(3))
		require.NoError(t, repo.Update(ctx, locked[0]))

		require.NoError(t, edited.SetPrice(decimal.RequireFromString("2.10")))
		assert.ErrorIs(t, repo.Update(ctx, edited), shared.ErrConcurrencyConflict)

		found, err := repo.FindByID(ctx, pen.ID)
		require.NoError(t, err)
		assert.Equal(t, 97, found.Stock)
		assert.True(t, found.Price.Equal(pen.Price))
	})

	t.Run("find by ids for update", func(t *testing.T) {
		products, err := repo.FindByIDsForUpdate(ctx, []uuid.UUID{pen.ID, mug.ID})
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, tee.ID))
		assert.ErrorIs(t, repo.Delete(ctx, tee.ID), shared.ErrNotFound)
	})
}

func TestCategoryRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormCategoryRepository(db)
	products := NewGormProductRepository(db)
	ctx := context.Background()

	root, err := catalog.NewCategory("Kitchen", "", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, root))

	child, err := catalog.NewCategory("Mugs", "", root)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, child))

	hasChildren, err := repo.HasChildren(ctx, root.ID)
	require.NoError(t, err)
	assert.True(t, hasChildren)

	mug := createTestProduct(t, db, "Mug", "MUG", "9.99", 1)
	mug.SetCategory(&child.ID)
	require.NoError(t, products.Update(ctx, mug))

	count, err := products.CountByCategory(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := repo.FindBySlug(ctx, "mugs")
	require.NoError(t, err)
	require.NotNil(t, found.ParentID)
	assert.Equal(t, root.ID, *found.ParentID)
}

func TestCartRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()
	mug := createTestProduct(t, db, "Mug", "MUG", "9.99", 10)
	pen := createTestProduct(t, db, "Pen", "PEN", "1.50", 10)
	owner := cart.SessionOwner("guest-session-1")

	c, err := cart.NewCart(owner)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, c))

	t.Run("one active cart per owner", func(t *testing.T) {
		other, err := cart.NewCart(owner)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, other), shared.ErrAlreadyExists)
	})

	t.Run("save replaces items", func(t *testing.T) {
		require.NoError(t, c.AddItem(mug.ID, 2, mug.Price))
		require.NoError(t, c.AddItem(pen.ID, 1, pen.Price))
		require.NoError(t, repo.Save(ctx, c))

		require.NoError(t, c.RemoveItem(pen.ID))
		require.NoError(t, repo.Save(ctx, c))

		found, err := repo.FindActiveForUpdate(ctx, owner)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.Equal(t, mug.ID, found.Items[0].ProductID)
		assert.Equal(t, 2, found.Items[0].Quantity)
		assert.True(t, found.Owner.IsGuest())
	})

	t.Run("remove product from active carts", func(t *testing.T) {
		n, err := repo.RemoveProductFromActiveCarts(ctx, mug.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, c.AddItem(pen.ID, 1, pen.Price))
		assert.ErrorIs(t, repo.Save(ctx, c), shared.ErrConcurrencyConflict,
			"a cart read before the removal must not bring the line back")

		found, err := repo.FindActive(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, found.Items)
		c = found
	})

	t.Run("converted cart frees the owner", func(t *testing.T) {
		require.NoError(t, c.MarkConverted())
		require.NoError(t, repo.Save(ctx, c))

		_, err := repo.FindActive(ctx, owner)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		next, err := cart.NewCart(owner)
		require.NoError(t, err)
		assert.NoError(t, repo.Create(ctx, next))
	})

	t.Run("stale guest carts", func(t *testing.T) {
		user := createTestUser(t, db, "carol@example.com")
		userCart, err := cart.NewCart(cart.UserOwner(user.ID))
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, userCart))

		n, err := repo.DeleteStaleGuestCarts(ctx, time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = repo.FindActive(ctx, cart.UserOwner(user.ID))
		assert.NoError(t, err)
	})
}

func TestOrderRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "dave@example.com")
	mug := createTestProduct(t, db, "Mug", "MUG", "10.00", 10)
	pen := createTestProduct(t, db, "Pen", "PEN", "2.00", 10)

	first := newTestOrder(t, "ORD-20261017-000001", user.ID, mug, pen)
	require.NoError(t, repo.Create(ctx, first))

	t.Run("duplicate order number", func(t *testing.T) {
		dup := newTestOrder(t, "ORD-20261017-000001", user.ID, mug)
		assert.ErrorIs(t, repo.Create(ctx, dup), order.ErrDuplicateOrderNumber)
	})

	t.Run("find by number loads items", func(t *testing.T) {
		found, err := repo.FindByNumber(ctx, "ORD-20261017-000001")
		require.NoError(t, err)
		require.Len(t, found.Items, 2)
		assert.True(t, found.Total.Equal(decimal.RequireFromString("19.00")))
		assert.Equal(t, "Springfield", found.ShippingAddress.City)
	})

	second := newTestOrder(t, "ORD-20261017-000002", user.ID, mug)
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, second.MarkPaid())
	require.NoError(t, repo.Update(ctx, second))

	third := newTestOrder(t, "ORD-20261017-000003", user.ID, pen)
	require.NoError(t, repo.Create(ctx, third))
	require.NoError(t, third.Cancel("changed my mind"))
	require.NoError(t, repo.Update(ctx, third))

	t.Run("aggregates", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[order.StatusPending])
		assert.Equal(t, int64(1), counts[order.StatusPaid])
		assert.Equal(t, int64(1), counts[order.StatusCancelled])
		assert.Zero(t, counts[order.StatusDelivered])

		revenue, paid, err := repo.Revenue(ctx, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), paid)
		assert.True(t, revenue.Equal(decimal.RequireFromString("15.00")), revenue.String())

		top, err := repo.TopProducts(ctx, 5)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, mug.ID, top[0].ProductID)
		assert.Equal(t, int64(2), top[0].Units)
		assert.Equal(t, int64(2), top[1].Units, "cancelled order lines are excluded")
	})

	t.Run("filter by status", func(t *testing.T) {
		status := order.StatusCancelled
		filter := order.NewFilter()
		filter.Status = &status
		orders, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "changed my mind", orders[0].CancelReason)
		require.NotNil(t, orders[0].CancelledAt)
	})

	t.Run("pending before cutoff", func(t *testing.T) {
		pending, err := repo.FindPendingBefore(ctx, time.Now().UTC().Add(time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, first.ID, pending[0].ID)

		exists, err := repo.ExistsForProduct(ctx, pen.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestGormTransactionScope_SQLite(t *testing.T) {
	db := newTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()
	user := createTestUser(t, db, "erin@example.com")
	mug := createTestProduct(t, db, "Mug", "MUG", "10.00", 5)

	t.Run("rollback restores stock", func(t *testing.T) {
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
			locked, err := repos.ProductRepo().FindByIDsForUpdate(ctx, []uuid.UUID{mug.ID})
			require.NoError(t, err)
			require.NoError(t, locked[0].DecreaseStock(5))
			require.NoError(t, repos.ProductRepo().Update(ctx, locked[0]))
			return boom
		})
		require.ErrorIs(t, err, boom)

		found, err := NewGormProductRepository(db).FindByID(ctx, mug.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, found.Stock)
	})

	t.Run("number collision leaves the transaction usable", func(t *testing.T) {
		require.NoError(t, NewGormOrderRepository(db).Create(ctx, newTestOrder(t, "ORD-20261017-000100", user.ID, mug)))

		err := scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
			err := repos.OrderRepo().Create(ctx, newTestOrder(t, "ORD-20261017-000100", user.ID, mug))
			require.ErrorIs(t, err, order.ErrDuplicateOrderNumber)
			return repos.OrderRepo().Create(ctx, newTestOrder(t, "ORD-20261017-000101", user.ID, mug))
		})
		require.NoError(t, err)

		exists, err := NewGormOrderRepository(db).ExistsByNumber(ctx, "ORD-20261017-000101")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
