package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	JWTRoleKey    = "jwt_role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// errMissingToken is reported when no bearer token was sent
var errMissingToken = errors.New("missing bearer token")

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// Tokens verifies access tokens and is required
	Tokens *auth.TokenIssuer
	// Revocations is optional; without it revoked tokens stay valid until
	// they expire
	Revocations auth.Revocations
	// Logger for middleware logging
	Logger *zap.Logger
}

// JWTAuth rejects requests without a valid, unrevoked access token
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, cfg)
		if err != nil {
			abortUnauthorized(c, cfg, err)
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWTAuth attaches the caller's identity when a valid token is sent
// and otherwise lets the request through anonymously. Guest cart routes use
// it so a signed-in shopper's user cart wins over the session cart.
func OptionalJWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, cfg)
		if err == nil {
			setClaims(c, claims)
		} else if !errors.Is(err, errMissingToken) && cfg.Logger != nil {
			cfg.Logger.Debug("Ignoring invalid optional token", zap.Error(err))
		}
		c.Next()
	}
}

// RequireAdmin rejects authenticated callers without the admin role. It
// must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.Fail(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		if !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.Fail(dto.ErrCodeForbidden, "Administrator access required", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// authenticate validates the bearer token and checks it was not revoked.
// Revocation lookups fail open so a Redis outage does not lock everyone out.
func authenticate(c *gin.Context, cfg JWTMiddlewareConfig) (*auth.Claims, error) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		return nil, errMissingToken
	}
	if !strings.HasPrefix(header, BearerPrefix) {
		return nil, auth.ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	if token == "" {
		return nil, errMissingToken
	}

	claims, err := cfg.Tokens.ParseAccess(token)
	if err != nil {
		return nil, err
	}
	if cfg.Revocations == nil {
		return claims, nil
	}

	revoked, err := cfg.Revocations.Revoked(c.Request.Context(), claims.ID, claims.UserID, claims.IssuedAtTime())
	switch {
	case err != nil:
		if cfg.Logger != nil {
			cfg.Logger.Error("Revocation check failed",
				zap.String("jti", claims.ID),
				zap.String("user_id", claims.UserID),
				zap.Error(err))
		}
	case revoked:
		return nil, auth.ErrTokenRevoked
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(JWTClaimsKey, claims)
	c.Set(JWTUserIDKey, claims.UserID)
	c.Set(JWTRoleKey, claims.Role)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
}

func abortUnauthorized(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, errMissingToken):
	default:
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail(code, message, GetRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetUserUUID returns the authenticated user's id, or false for anonymous
// requests
func GetUserUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(GetJWTUserID(c))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetJWTRole retrieves the role from JWT claims in context
func GetJWTRole(c *gin.Context) string {
	return c.GetString(JWTRoleKey)
}
