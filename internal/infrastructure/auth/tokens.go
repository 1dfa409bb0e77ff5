package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/config"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrWrongTokenKind   = errors.New("wrong token kind")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// TokenPair is what login and refresh hand back. The ids are kept by the
// auth service for rotation and never serialised.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`

	AccessJTI  uuid.UUID `json:"-"`
	RefreshJTI uuid.UUID `json:"-"`
	FamilyID   uuid.UUID `json:"-"`
}

// Subject is who a token pair is issued to. A nil FamilyID starts a new
// rotation family.
type Subject struct {
	UserID   uuid.UUID
	Email    string
	Role     string
	FamilyID uuid.UUID
}

// keyring signs and checks one kind of token
type keyring struct {
	kind   TokenKind
	secret []byte
	ttl    time.Duration
}

// TokenIssuer signs and verifies HS256 tokens. Access and refresh tokens
// use separate secrets when RefreshSecret is configured.
type TokenIssuer struct {
	access  keyring
	refresh keyring
	issuer  string
	now     func() time.Time
}

func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	refreshSecret := cfg.RefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.Secret
	}
	return &TokenIssuer{
		access:  keyring{kind: KindAccess, secret: []byte(cfg.Secret), ttl: cfg.AccessTokenExpiration},
		refresh: keyring{kind: KindRefresh, secret: []byte(refreshSecret), ttl: cfg.RefreshTokenExpiration},
		issuer:  cfg.Issuer,
		now:     time.Now,
	}
}

func (t *TokenIssuer) AccessTTL() time.Duration  { return t.access.ttl }
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refresh.ttl }

// Issue signs a fresh access and refresh token for sub
func (t *TokenIssuer) Issue(sub Subject) (*TokenPair, error) {
	if sub.UserID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	family := sub.FamilyID
	if family == uuid.Nil {
		family = uuid.New()
	}
	now := t.now()
	pair := &TokenPair{
		TokenType:             "Bearer",
		AccessJTI:             uuid.New(),
		RefreshJTI:            uuid.New(),
		FamilyID:              family,
		AccessTokenExpiresAt:  now.Add(t.access.ttl),
		RefreshTokenExpiresAt: now.Add(t.refresh.ttl),
	}

	var err error
	pair.AccessToken, err = t.sign(t.access, &Claims{
		RegisteredClaims: t.registered(pair.AccessJTI, sub.UserID, now, t.access.ttl),
		UserID:           sub.UserID.String(),
		Email:            sub.Email,
		Role:             sub.Role,
	})
	if err != nil {
		return nil, err
	}
	pair.RefreshToken, err = t.sign(t.refresh, &Claims{
		RegisteredClaims: t.registered(pair.RefreshJTI, sub.UserID, now, t.refresh.ttl),
		UserID:           sub.UserID.String(),
		FamilyID:         family.String(),
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (t *TokenIssuer) registered(jti, userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        jti.String(),
		Issuer:    t.issuer,
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{t.issuer},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (t *TokenIssuer) sign(k keyring, c *Claims) (string, error) {
	c.Kind = k.kind
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(k.secret)
}

// ParseAccess verifies an access token
func (t *TokenIssuer) ParseAccess(raw string) (*Claims, error) {
	return t.parse(t.access, raw)
}

// ParseRefresh verifies a refresh token, which must name its family
func (t *TokenIssuer) ParseRefresh(raw string) (*Claims, error) {
	c, err := t.parse(t.refresh, raw)
	if err != nil {
		return nil, err
	}
	if _, err := c.Family(); err != nil {
		return nil, ErrInvalidClaims
	}
	return c, nil
}

func (t *TokenIssuer) parse(k keyring, raw string) (*Claims, error) {
	c := &Claims{}
	_, err := jwt.ParseWithClaims(raw, c,
		func(*jwt.Token) (any, error) { return k.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, ErrInvalidToken
	}

	if c.Kind != k.kind {
		return nil, ErrWrongTokenKind
	}
	if c.UserID == "" {
		return nil, ErrMissingUserID
	}
	if _, err := c.JTI(); err != nil {
		return nil, ErrInvalidClaims
	}
	return c, nil
}
