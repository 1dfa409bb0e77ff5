package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
)

// UserModel maps the users table. Email is stored normalized.
type UserModel struct {
	AggregateColumns
	Email             string              `gorm:"type:varchar(254);not null;uniqueIndex"`
	FullName          string              `gorm:"type:varchar(100);not null"`
	PasswordHash      string              `gorm:"type:varchar(255);not null"`
	Role              identity.Role       `gorm:"type:varchar(20);not null;default:'customer';index"`
	Status            identity.UserStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	FailedAttempts    int                 `gorm:"not null;default:0"`
	LockedUntil       *time.Time
	LastLoginAt       *time.Time `gorm:"index"`
	LastLoginIP       string     `gorm:"type:varchar(45)"`
	PasswordChangedAt *time.Time
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.Root(),
		Email:             m.Email,
		FullName:          m.FullName,
		PasswordHash:      m.PasswordHash,
		Role:              m.Role,
		Status:            m.Status,
		FailedAttempts:    m.FailedAttempts,
		LockedUntil:       m.LockedUntil,
		LastLoginAt:       m.LastLoginAt,
		LastLoginIP:       m.LastLoginIP,
		PasswordChangedAt: m.PasswordChangedAt,
	}
}

func UserModelFromDomain(u *identity.User) *UserModel {
	return &UserModel{
		AggregateColumns:  columnsOf(u.BaseAggregateRoot),
		Email:             u.Email,
		FullName:          u.FullName,
		PasswordHash:      u.PasswordHash,
		Role:              u.Role,
		Status:            u.Status,
		FailedAttempts:    u.FailedAttempts,
		LockedUntil:       u.LockedUntil,
		LastLoginAt:       u.LastLoginAt,
		LastLoginIP:       u.LastLoginIP,
		PasswordChangedAt: u.PasswordChangedAt,
	}
}

// RefreshTokenModel is the persistence model for issued refresh tokens.
type RefreshTokenModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	FamilyID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	TokenHash  string     `gorm:"type:char(64);not null"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	RevokedAt  *time.Time `gorm:"index"`
	ReplacedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedIP  string     `gorm:"type:varchar(45)"`
	UserAgent  string     `gorm:"type:varchar(255)"`
	CreatedAt  time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// ToDomain converts the persistence model to a domain RefreshToken.
func (m *RefreshTokenModel) ToDomain() *identity.RefreshToken {
	return &identity.RefreshToken{
		ID:         m.ID,
		UserID:     m.UserID,
		FamilyID:   m.FamilyID,
		TokenHash:  m.TokenHash,
		ExpiresAt:  m.ExpiresAt,
		RevokedAt:  m.RevokedAt,
		ReplacedBy: m.ReplacedBy,
		CreatedIP:  m.CreatedIP,
		UserAgent:  m.UserAgent,
		CreatedAt:  m.CreatedAt,
	}
}

// RefreshTokenModelFromDomain creates a persistence model from a domain RefreshToken.
func RefreshTokenModelFromDomain(t *identity.RefreshToken) *RefreshTokenModel {
	return &RefreshTokenModel{
		ID:         t.ID,
		UserID:     t.UserID,
		FamilyID:   t.FamilyID,
		TokenHash:  t.TokenHash,
		ExpiresAt:  t.ExpiresAt,
		RevokedAt:  t.RevokedAt,
		ReplacedBy: t.ReplacedBy,
		CreatedIP:  t.CreatedIP,
		UserAgent:  t.UserAgent,
		CreatedAt:  t.CreatedAt,
	}
}
