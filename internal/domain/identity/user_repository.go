package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// UserRepository stores users. Lookups that miss return shared.ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	// Update writes every column; a duplicate email gives
	// shared.ErrAlreadyExists and a row changed since user was read gives
	// shared.ErrConcurrencyConflict.
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByIDForUpdate locks the row for the enclosing transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// FindAll returns one page and the total number of matches
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)
	CountByRole(ctx context.Context) (map[Role]int64, error)
}

// RefreshTokenRepository stores refresh token records. Revocations are
// conditional updates so racing refreshes cannot both succeed.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByID(ctx context.Context, id uuid.UUID) (*RefreshToken, error)
	// RevokeIfActive reports false when the token was already revoked
	RevokeIfActive(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID, now time.Time) (bool, error)
	RevokeFamily(ctx context.Context, familyID uuid.UUID, now time.Time) (int64, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserFilter narrows the admin user listing. Keyword matches email or
// full name.
type UserFilter struct {
	Keyword string
	Status  *UserStatus
	Role    *Role
	shared.Paging
	shared.Sorting
}

func NewUserFilter() UserFilter {
	return UserFilter{Paging: shared.FirstPage(), Sorting: shared.NewestFirst()}
}
