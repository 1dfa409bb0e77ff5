package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
)

// RegisterInput contains the input for account registration
type RegisterInput struct {
	Email     string
	Password  string
	FullName  string
	IP        string
	UserAgent string
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email     string
	Password  string
	IP        string // Client IP for login tracking
	UserAgent string
}

// AuthResult is returned by every operation that issues tokens
type AuthResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo

	refreshJTI uuid.UUID
}

// UserInfo is the public view of an account
type UserInfo struct {
	ID             uuid.UUID
	Email          string
	FullName       string
	Role           identity.Role
	Status         identity.UserStatus
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// ToUserInfo converts a domain user
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           u.Role,
		Status:         u.Status,
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    u.LockedUntil,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
	}
}

// RefreshInput contains the input for token refresh
type RefreshInput struct {
	RefreshToken string
	IP           string
	UserAgent    string
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID       uuid.UUID
	RefreshToken string        // optional; revoked when it belongs to UserID
	AccessJTI    string        // revoked for AccessTTL
	AccessTTL    time.Duration // remaining lifetime of the access token
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
	IP          string
	UserAgent   string
}

// UserStatusAction is an admin action on an account
type UserStatusAction string

const (
	UserActionActivate   UserStatusAction = "activate"
	UserActionDeactivate UserStatusAction = "deactivate"
	UserActionUnlock     UserStatusAction = "unlock"
)

// SetUserStatusInput contains the input for an admin status change
type SetUserStatusInput struct {
	ActorID uuid.UUID
	UserID  uuid.UUID
	Action  UserStatusAction
}

// SetUserRoleInput contains the input for an admin role change
type SetUserRoleInput struct {
	ActorID uuid.UUID
	UserID  uuid.UUID
	Role    identity.Role
}
