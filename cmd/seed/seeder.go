package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Result counts what a seed run created and skipped
type Result struct {
	CategoriesCreated int
	CategoriesSkipped int
	ProductsCreated   int
	ProductsSkipped   int
	AdminCreated      bool
}

// Seeder loads fixtures through the catalog services so slugs and
// validation match what the admin API would produce. Rerunning a fixture
// skips rows that already exist.
type Seeder struct {
	categories   *catalogapp.CategoryService
	products     *catalogapp.ProductService
	categoryRepo catalog.CategoryRepository
	productRepo  catalog.ProductRepository
	userRepo     identity.UserRepository
	logger       *zap.Logger
}

// NewSeeder creates a Seeder
func NewSeeder(
	categories *catalogapp.CategoryService,
	products *catalogapp.ProductService,
	categoryRepo catalog.CategoryRepository,
	productRepo catalog.ProductRepository,
	userRepo identity.UserRepository,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		categories:   categories,
		products:     products,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		userRepo:     userRepo,
		logger:       logger,
	}
}

// Apply seeds the admin account, then categories, then products
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Result, error) {
	var res Result

	if f.Admin != nil {
		created, err := s.seedAdmin(ctx, f.Admin)
		if err != nil {
			return res, fmt.Errorf("seed admin: %w", err)
		}
		res.AdminCreated = created
	}

	slugs := make(map[string]uuid.UUID)
	if err := s.seedCategories(ctx, f.Categories, nil, slugs, &res); err != nil {
		return res, err
	}

	for _, p := range f.Products {
		if err := s.seedProduct(ctx, p, slugs, &res); err != nil {
			return res, fmt.Errorf("seed product %s: %w", p.SKU, err)
		}
	}

	s.logger.Info("Seed applied",
		zap.Int("categories_created", res.CategoriesCreated),
		zap.Int("categories_skipped", res.CategoriesSkipped),
		zap.Int("products_created", res.ProductsCreated),
		zap.Int("products_skipped", res.ProductsSkipped),
		zap.Bool("admin_created", res.AdminCreated),
	)
	return res, nil
}

func (s *Seeder) seedAdmin(ctx context.Context, a *AdminFixture) (bool, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, identity.NormalizeEmail(a.Email))
	if err != nil {
		return false, err
	}
	if exists {
		s.logger.Info("Admin already exists", zap.String("email", identity.NormalizeEmail(a.Email)))
		return false, nil
	}

	admin, err := identity.NewAdmin(a.Email, a.Password, a.FullName)
	if err != nil {
		return false, err
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return false, err
	}
	s.logger.Info("Admin created",
		zap.String("user_id", admin.ID.String()),
		zap.String("email", admin.Email))
	return true, nil
}

func (s *Seeder) seedCategories(
	ctx context.Context,
	cats []CategoryFixture,
	parentID *uuid.UUID,
	slugs map[string]uuid.UUID,
	res *Result,
) error {
	for _, c := range cats {
		slug := catalog.Slugify(c.Name)
		existing, err := s.categoryRepo.FindBySlug(ctx, slug)
		switch {
		case err == nil:
			slugs[existing.Slug] = existing.ID
			res.CategoriesSkipped++
		case errors.Is(err, shared.ErrNotFound):
			created, err := s.categories.Create(ctx, catalogapp.CreateCategoryRequest{
				Name:        c.Name,
				Description: c.Description,
				ParentID:    parentID,
				SortOrder:   c.SortOrder,
			})
			if err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
			slugs[created.Slug] = created.ID
			res.CategoriesCreated++
		default:
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}

		id := slugs[slug]
		if err := s.seedCategories(ctx, c.Children, &id, slugs, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedProduct(ctx context.Context, p ProductFixture, slugs map[string]uuid.UUID, res *Result) error {
	exists, err := s.productRepo.ExistsBySKU(ctx, p.SKU)
	if err != nil {
		return err
	}
	if exists {
		res.ProductsSkipped++
		return nil
	}

	req := catalogapp.CreateProductRequest{
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		Price:       p.price,
		Stock:       p.Stock,
		Active:      p.Active,
	}
	if p.Category != "" {
		id, err := s.categoryID(ctx, p.Category, slugs)
		if err != nil {
			return err
		}
		req.CategoryID = &id
	}

	if _, err := s.products.Create(ctx, req); err != nil {
		return err
	}
	res.ProductsCreated++
	return nil
}

func (s *Seeder) categoryID(ctx context.Context, slug string, slugs map[string]uuid.UUID) (uuid.UUID, error) {
	slug = catalog.Slugify(slug)
	if id, ok := slugs[slug]; ok {
		return id, nil
	}
	cat, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("unknown category %q", slug)
		}
		return uuid.Nil, err
	}
	slugs[slug] = cat.ID
	return cat.ID, nil
}
