package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

type GormCategoryRepository struct {
	db *gorm.DB
}

func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) categories(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.CategoryModel{})
}

func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	return first(r.categories(ctx).Where("id = ?", id), (*models.CategoryModel).ToDomain)
}

func (r *GormCategoryRepository) FindBySlug(ctx context.Context, slug string) (*catalog.Category, error) {
	return first(r.categories(ctx).Where("slug = ?", normalizeSlug(slug)), (*models.CategoryModel).ToDomain)
}

// FindAll lists the whole tree flat, in display order
func (r *GormCategoryRepository) FindAll(ctx context.Context) ([]*catalog.Category, error) {
	var rows []models.CategoryModel
	if err := r.categories(ctx).Order("sort_order, name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return convertAll(rows, (*models.CategoryModel).ToDomain), nil
}

func (r *GormCategoryRepository) Create(ctx context.Context, category *catalog.Category) error {
	if err := insert(r.db.WithContext(ctx), models.CategoryModelFromDomain(category)); err != nil {
		return err
	}
	category.MarkStored()
	return nil
}

func (r *GormCategoryRepository) Update(ctx context.Context, category *catalog.Category) error {
	return saveVersioned(r.db.WithContext(ctx), &category.BaseAggregateRoot, func() any {
		return models.CategoryModelFromDomain(category)
	})
}

func (r *GormCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.db.WithContext(ctx), &models.CategoryModel{}, id)
}

func (r *GormCategoryRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return exists(r.categories(ctx).Where("slug = ?", normalizeSlug(slug)))
}

func (r *GormCategoryRepository) HasChildren(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(r.categories(ctx).Where("parent_id = ?", id))
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
