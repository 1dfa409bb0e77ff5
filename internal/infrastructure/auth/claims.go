package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind separates access from refresh tokens inside the claims
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the JWT payload. Profile fields ride on access tokens only;
// FamilyID rides on refresh tokens so a replay can revoke the chain.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string    `json:"user_id"`
	Email    string    `json:"email,omitempty"`
	Role     string    `json:"role,omitempty"`
	Kind     TokenKind `json:"token_type"`
	FamilyID string    `json:"family_id,omitempty"`
}

func (c *Claims) UserUUID() (uuid.UUID, error) { return uuid.Parse(c.UserID) }
func (c *Claims) JTI() (uuid.UUID, error)      { return uuid.Parse(c.ID) }
func (c *Claims) Family() (uuid.UUID, error)   { return uuid.Parse(c.FamilyID) }
func (c *Claims) IsAdmin() bool                { return c.Role == "admin" }

// IssuedAtTime is zero when the claim is absent
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// RemainingTTL is how long the token stays valid, never negative
func (c *Claims) RemainingTTL() time.Duration {
	exp := c.ExpiresAtTime()
	if exp.IsZero() {
		return 0
	}
	return max(time.Until(exp), 0)
}
