package identity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the server-side record of an issued refresh token.
// The ID equals the token's jti claim. Tokens issued by rotating one another
// share a FamilyID so that reuse of a rotated token can revoke the chain.
type RefreshToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	FamilyID   uuid.UUID
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *uuid.UUID
	CreatedIP  string
	UserAgent  string
	CreatedAt  time.Time
}

// NewRefreshToken records a freshly issued token. Pass uuid.Nil as familyID
// to start a new family (a new login).
func NewRefreshToken(jti, userID, familyID uuid.UUID, rawToken string, expiresAt time.Time, ip, userAgent string) *RefreshToken {
	if familyID == uuid.Nil {
		familyID = uuid.New()
	}
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	return &RefreshToken{
		ID:        jti,
		UserID:    userID,
		FamilyID:  familyID,
		TokenHash: HashToken(rawToken),
		ExpiresAt: expiresAt,
		CreatedIP: ip,
		UserAgent: userAgent,
		CreatedAt: time.Now().UTC(),
	}
}

// IsRevoked reports whether the token was revoked
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether the token is past its expiry at now
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token can still be exchanged
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

// Matches compares rawToken against the stored hash in constant time
func (t *RefreshToken) Matches(rawToken string) bool {
	return subtle.ConstantTimeCompare([]byte(t.TokenHash), []byte(HashToken(rawToken))) == 1
}

// Revoke marks the token revoked. replacedBy is set when it was rotated.
func (t *RefreshToken) Revoke(now time.Time, replacedBy *uuid.UUID) {
	if t.RevokedAt != nil {
		return
	}
	t.RevokedAt = &now
	t.ReplacedBy = replacedBy
}

// HashToken returns the hex SHA-256 of a raw token
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
