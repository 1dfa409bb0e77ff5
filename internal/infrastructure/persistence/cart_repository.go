package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements cart.Repository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindActive returns the active cart of owner
func (r *GormCartRepository) FindActive(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	return r.findActive(r.db.WithContext(ctx), owner)
}

// FindActiveForUpdate returns the active cart of owner and locks its row
func (r *GormCartRepository) FindActiveForUpdate(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	return r.findActive(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), owner)
}

func (r *GormCartRepository) findActive(query *gorm.DB, owner cart.Owner) (*cart.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	query = query.Where("status = ?", cart.StatusActive)
	if owner.IsGuest() {
		query = query.Where("session_id = ? AND user_id IS NULL", owner.SessionID)
	} else {
		query = query.Where("user_id = ?", *owner.UserID)
	}

	var model models.CartModel
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a cart with its items. A concurrent insert for the same
// owner maps to shared.ErrAlreadyExists.
func (r *GormCartRepository) Create(ctx context.Context, c *cart.Cart) error {
	model := models.CartModelFromDomain(c)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	c.MarkStored()
	return nil
}

// Save persists the cart status and replaces its item set
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	var model *models.CartModel
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := saveVersioned(tx, &c.BaseAggregateRoot, func() any {
			model = models.CartModelFromDomain(c)
			return model
		})
		if err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", c.ID).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
}

// DeleteStaleGuestCarts removes guest carts not updated since cutoff
func (r *GormCartRepository) DeleteStaleGuestCarts(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.CartModel{}).
			Select("id").
			Where("user_id IS NULL AND updated_at < ?", cutoff)

		if err := tx.Where("cart_id IN (?)", stale).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("user_id IS NULL AND updated_at < ?", cutoff).Delete(&models.CartModel{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// RemoveProductFromActiveCarts drops a product from every active cart. The
// touched carts move to a new version so a stale Save cannot put the line
// back.
func (r *GormCartRepository) RemoveProductFromActiveCarts(ctx context.Context, productID uuid.UUID) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		holding := tx.Model(&models.CartItemModel{}).Select("cart_id").Where("product_id = ?", productID)
		if err := tx.Model(&models.CartModel{}).
			Where("status = ? AND id IN (?)", cart.StatusActive, holding).
			UpdateColumn("version", gorm.Expr("version + 1")).Error; err != nil {
			return err
		}

		active := tx.Model(&models.CartModel{}).Select("id").Where("status = ?", cart.StatusActive)
		result := tx.Where("product_id = ? AND cart_id IN (?)", productID, active).Delete(&models.CartItemModel{})
		removed = result.RowsAffected
		return result.Error
	})
	return removed, err
}

// Ensure GormCartRepository implements cart.Repository
var _ cart.Repository = (*GormCartRepository)(nil)
