package main

import (
	"path/filepath"
	"testing"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testFixture = `
admin:
  email: Owner@Example.com
  password: s3cretpass
  full_name: Shop Owner
categories:
  - name: Apparel
    children:
      - name: T-Shirts
products:
  - name: Crew Tee
    sku: tee-001
    price: "19.99"
    stock: 10
    category: t-shirts
  - name: Old Tee
    sku: TEE-002
    price: "5"
    stock: 1
    category: T-Shirts
    active: false
  - name: Gift Card
    sku: GIFT-010
    price: "10.00"
    stock: 100
`

func newTestSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	log := zap.NewNop()

	categoryRepo := persistence.NewGormCategoryRepository(db)
	productRepo := persistence.NewGormProductRepository(db)
	return NewSeeder(
		catalogapp.NewCategoryService(categoryRepo, productRepo, log),
		catalogapp.NewProductService(productRepo, categoryRepo,
			persistence.NewGormOrderRepository(db), persistence.NewGormCartRepository(db), log),
		categoryRepo,
		productRepo,
		persistence.NewGormUserRepository(db),
		log,
	), db
}

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture([]byte(testFixture))
	require.NoError(t, err)

	require.NotNil(t, f.Admin)
	assert.Equal(t, "Shop Owner", f.Admin.FullName)
	require.Len(t, f.Categories, 1)
	assert.Equal(t, "T-Shirts", f.Categories[0].Children[0].Name)
	require.Len(t, f.Products, 3)
	assert.Equal(t, "19.99", f.Products[0].price.String())
	require.NotNil(t, f.Products[1].Active)
	assert.False(t, *f.Products[1].Active)
}

func TestParseFixture_Invalid(t *testing.T) {
	_, err := ParseFixture([]byte(`
admin:
  email: ""
categories:
  - name: ""
products:
  - name: A
    sku: X-1
    price: "1.00"
  - name: B
    sku: x-1
    price: cheap
  - name: C
    price: "2"
`))
	require.ErrorIs(t, err, ErrInvalidFixture)
	msg := err.Error()
	assert.Contains(t, msg, "admin.email is required")
	assert.Contains(t, msg, "admin.password is required")
	assert.Contains(t, msg, "categories[0].name is required")
	assert.Contains(t, msg, "products[1].sku duplicates products[0]")
	assert.Contains(t, msg, `products[1].price "cheap" is not a decimal`)
	assert.Contains(t, msg, "products[2].sku is required")
}

func TestParseFixture_MalformedYAML(t *testing.T) {
	_, err := ParseFixture([]byte("products: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidFixture)
}

func TestLoadFixture_Missing(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrFixtureNotFound)
}

func TestLoadFixture_BundledCatalog(t *testing.T) {
	f, err := LoadFixture(filepath.Join("..", "..", "seeds", "catalog.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, f.Categories)
	assert.NotEmpty(t, f.Products)
}

func TestSeeder_Apply(t *testing.T) {
	seeder, db := newTestSeeder(t)
	f, err := ParseFixture([]byte(testFixture))
	require.NoError(t, err)

	res, err := seeder.Apply(t.Context(), f)
	require.NoError(t, err)
	assert.Equal(t, Result{
		CategoriesCreated: 2,
		ProductsCreated:   3,
		AdminCreated:      true,
	}, res)

	categories := persistence.NewGormCategoryRepository(db)
	apparel, err := categories.FindBySlug(t.Context(), "apparel")
	require.NoError(t, err)
	tees, err := categories.FindBySlug(t.Context(), "t-shirts")
	require.NoError(t, err)
	require.NotNil(t, tees.ParentID)
	assert.Equal(t, apparel.ID, *tees.ParentID)

	products := persistence.NewGormProductRepository(db)
	crew, err := products.FindBySlug(t.Context(), "crew-tee")
	require.NoError(t, err)
	assert.Equal(t, "TEE-001", crew.SKU)
	require.NotNil(t, crew.CategoryID)
	assert.Equal(t, tees.ID, *crew.CategoryID)

	old, err := products.FindBySlug(t.Context(), "old-tee")
	require.NoError(t, err)
	assert.False(t, old.Active)

	gift, err := products.FindBySlug(t.Context(), "gift-card")
	require.NoError(t, err)
	assert.Nil(t, gift.CategoryID)

	admin, err := persistence.NewGormUserRepository(db).FindByEmail(t.Context(), "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, admin.Role)
	assert.True(t, admin.VerifyPassword("s3cretpass"))
}

func TestSeeder_ApplyTwiceSkipsExisting(t *testing.T) {
	seeder, _ := newTestSeeder(t)
	f, err := ParseFixture([]byte(testFixture))
	require.NoError(t, err)

	_, err = seeder.Apply(t.Context(), f)
	require.NoError(t, err)

	res, err := seeder.Apply(t.Context(), f)
	require.NoError(t, err)
	assert.Equal(t, Result{CategoriesSkipped: 2, ProductsSkipped: 3}, res)
}

func TestSeeder_UnknownCategory(t *testing.T) {
	seeder, _ := newTestSeeder(t)
	f, err := ParseFixture([]byte(`
products:
  - name: Orphan
    sku: ORPH-1
    price: "1.00"
    stock: 1
    category: does-not-exist
`))
	require.NoError(t, err)

	_, err = seeder.Apply(t.Context(), f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown category "does-not-exist"`)
}
