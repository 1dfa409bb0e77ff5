package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserRepository implements UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts user. A taken email maps to shared.ErrAlreadyExists.
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	if err := insert(r.db.WithContext(ctx), models.UserModelFromDomain(user)); err != nil {
		return err
	}
	user.MarkStored()
	return nil
}

// Update saves user if nobody changed the row since it was read
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	return saveVersioned(r.db.WithContext(ctx), &user.BaseAggregateRoot, func() any {
		return models.UserModelFromDomain(user)
	})
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return first(r.db.WithContext(ctx).Where("id = ?", id), (*models.UserModel).ToDomain)
}

// FindByIDForUpdate finds a user and locks the row until the transaction ends
func (r *GormUserRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id),
		(*models.UserModel).ToDomain)
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if email == "" {
		return nil, shared.ErrNotFound
	}
	return first(r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))),
		(*models.UserModel).ToDomain)
}

// ExistsByEmail checks if an email already exists
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	return exists(r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))))
}

// FindAll returns users matching the filter with the total count
func (r *GormUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	var userModels []*models.UserModel
	var total int64

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.UserModel{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order(userSort.by(filter.SortBy, filter.SortOrder)).
		Order("id").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&userModels).Error; err != nil {
		return nil, 0, err
	}

	users := make([]*identity.User, len(userModels))
	for i, model := range userModels {
		users[i] = model.ToDomain()
	}

	return users, total, nil
}

// CountByRole returns the number of users per role
func (r *GormUserRepository) CountByRole(ctx context.Context) (map[identity.Role]int64, error) {
	var rows []struct {
		Role  identity.Role
		Count int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[identity.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// applyFilter applies filter options to the query
func (r *GormUserRepository) applyFilter(query *gorm.DB, filter identity.UserFilter) *gorm.DB {
	if filter.Keyword != "" {
		pattern := likePattern(filter.Keyword)
		query = query.Where(
			`LOWER(email) LIKE ? ESCAPE '\' OR LOWER(full_name) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	return query
}

// GormRefreshTokenRepository implements RefreshTokenRepository using GORM
type GormRefreshTokenRepository struct {
	db *gorm.DB
}

// NewGormRefreshTokenRepository creates a new GormRefreshTokenRepository
func NewGormRefreshTokenRepository(db *gorm.DB) *GormRefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

// Create stores a newly issued refresh token
func (r *GormRefreshTokenRepository) Create(ctx context.Context, token *identity.RefreshToken) error {
	return r.db.WithContext(ctx).Create(models.RefreshTokenModelFromDomain(token)).Error
}

// FindByID finds a refresh token by its jti
func (r *GormRefreshTokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.RefreshToken, error) {
	var model models.RefreshTokenModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// RevokeIfActive revokes the token with a conditional update so that two
// concurrent refreshes cannot both succeed.
func (r *GormRefreshTokenRepository) RevokeIfActive(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefreshTokenModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{
			"revoked_at":  now,
			"replaced_by": replacedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RevokeFamily revokes every active token of a rotation family
func (r *GormRefreshTokenRepository) RevokeFamily(ctx context.Context, familyID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefreshTokenModel{}).
		Where("family_id = ? AND revoked_at IS NULL", familyID).
		Update("revoked_at", now)
	return result.RowsAffected, result.Error
}

// RevokeAllForUser revokes every active token of a user
func (r *GormRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefreshTokenModel{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now)
	return result.RowsAffected, result.Error
}

// DeleteExpiredBefore removes tokens that expired before cutoff
func (r *GormRefreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.RefreshTokenModel{})
	return result.RowsAffected, result.Error
}

// Ensure the GORM repositories implement the domain interfaces
var (
	_ identity.UserRepository         = (*GormUserRepository)(nil)
	_ identity.RefreshTokenRepository = (*GormRefreshTokenRepository)(nil)
)
