package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	appshared "github.com/storefront/backend/internal/application/shared"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Error codes returned by the auth flows
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrEmailTaken         = shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
	ErrAccountLocked      = shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later or contact support")
	ErrAccountDeactivated = shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	ErrTokenExpired       = shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	ErrTokenInvalid       = shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	ErrTokenReused        = shared.NewDomainError("TOKEN_REUSED", "Refresh token was already used. Please log in again")
	ErrUserNotFound       = shared.NewDomainError("USER_NOT_FOUND", "User not found")
)

// dummyHash is compared against when the email is unknown so that a miss
// costs the same bcrypt work as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-timing-guard"), bcrypt.DefaultCost)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo  identity.UserRepository
	tokenRepo identity.RefreshTokenRepository
	txScope   appshared.TransactionScope
	tokens    *auth.TokenIssuer
	revoked   auth.Revocations
	events    shared.EventPublisher
	config    AuthServiceConfig
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	tokenRepo identity.RefreshTokenRepository,
	txScope appshared.TransactionScope,
	tokens *auth.TokenIssuer,
	revocations auth.Revocations,
	events shared.EventPublisher,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if events == nil {
		events = shared.NoopEventPublisher{}
	}
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		txScope:   txScope,
		tokens:    tokens,
		revoked:   revocations,
		events:    events,
		config:    config,
		logger:    logger,
	}
}

// Register creates a customer account and signs it in
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, identity.NormalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	user, err := identity.NewUser(input.Email, input.Password, input.FullName)
	if err != nil {
		return nil, err
	}
	user.RecordLoginSuccess(input.IP)

	var result *AuthResult
	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		if err := repos.UserRepo().Create(ctx, user); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		result, err = s.issueTokens(ctx, repos.RefreshTokenRepo(), user, uuid.Nil, input.IP, input.UserAgent)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, user.PullDomainEvents()...)
	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return result, nil
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := identity.NormalizeEmail(input.Email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
		s.logger.Warn("Login for unknown email", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	if err := s.loginAllowed(user); err != nil {
		return nil, err
	}
	// bcrypt runs before the row lock is taken
	passwordOK := user.VerifyPassword(input.Password)
	checkedHash := user.PasswordHash

	var (
		result *AuthResult
		locked bool
	)
	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		current, err := repos.UserRepo().FindByIDForUpdate(ctx, user.ID)
		if err != nil {
			return err
		}
		if err := s.loginAllowed(current); err != nil {
			return err
		}
		if current.PasswordHash != checkedHash {
			passwordOK = current.VerifyPassword(input.Password)
		}
		user = current

		if !passwordOK {
			locked = user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
			return repos.UserRepo().Update(ctx, user)
		}

		user.RecordLoginSuccess(input.IP)
		if err := repos.UserRepo().Update(ctx, user); err != nil {
			return err
		}
		result, err = s.issueTokens(ctx, repos.RefreshTokenRepo(), user, uuid.Nil, input.IP, input.UserAgent)
		return err
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	s.publish(ctx, user.PullDomainEvents()...)

	if !passwordOK {
		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", user.FailedAttempts))
			return nil, ErrAccountLocked
		}
		s.logger.Warn("Invalid password attempt",
			zap.String("user_id", user.ID.String()),
			zap.Int("failed_attempts", user.FailedAttempts))
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", input.IP))

	return result, nil
}

// loginAllowed rejects deactivated and locked accounts
func (s *AuthService) loginAllowed(user *identity.User) error {
	if user.IsDeactivated() {
		s.logger.Warn("Login attempt for deactivated account", zap.String("user_id", user.ID.String()))
		return ErrAccountDeactivated
	}
	if user.IsLocked() {
		s.logger.Warn("Login attempt for locked account", zap.String("user_id", user.ID.String()))
		return ErrAccountLocked
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair in the same family.
// Presenting an already rotated token revokes the whole family, and so
// does losing a race to rotate the same token.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	claims, err := s.tokens.ParseRefresh(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	jti, err := claims.JTI()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	stored, err := s.tokenRepo.FindByID(ctx, jti)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !stored.Matches(input.RefreshToken) {
		return nil, ErrTokenInvalid
	}

	now := time.Now().UTC()
	if stored.IsRevoked() {
		n, err := s.tokenRepo.RevokeFamily(ctx, stored.FamilyID, now)
		if err != nil {
			s.logger.Error("Failed to revoke token family", zap.Error(err))
		}
		s.logger.Warn("Refresh token reuse detected",
			zap.String("user_id", stored.UserID.String()),
			zap.String("family_id", stored.FamilyID.String()),
			zap.Int64("revoked", n))
		return nil, ErrTokenReused
	}
	if stored.IsExpired(now) {
		return nil, ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !user.CanLogin() {
		if _, err := s.tokenRepo.RevokeFamily(ctx, stored.FamilyID, now); err != nil {
			s.logger.Error("Failed to revoke token family", zap.Error(err))
		}
		if user.IsDeactivated() {
			return nil, ErrAccountDeactivated
		}
		return nil, ErrAccountLocked
	}

	var result *AuthResult
	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		result, err = s.issueTokens(ctx, repos.RefreshTokenRepo(), user, stored.FamilyID, input.IP, input.UserAgent)
		if err != nil {
			return err
		}
		newJTI := result.refreshJTI
		revoked, err := repos.RefreshTokenRepo().RevokeIfActive(ctx, stored.ID, &newJTI, now)
		if err != nil {
			return err
		}
		if !revoked {
			// another request rotated this token between our read and update
			return ErrTokenReused
		}
		return nil
	})
	if errors.Is(err, ErrTokenReused) {
		n, revokeErr := s.tokenRepo.RevokeFamily(ctx, stored.FamilyID, now)
		if revokeErr != nil {
			s.logger.Error("Failed to revoke token family", zap.Error(revokeErr))
		}
		s.logger.Warn("Concurrent refresh of the same token",
			zap.String("user_id", stored.UserID.String()),
			zap.String("family_id", stored.FamilyID.String()),
			zap.Int64("revoked", n))
		return nil, ErrTokenReused
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Token refreshed", zap.String("user_id", user.ID.String()))
	return result, nil
}

// Logout revokes the presented refresh token and the access token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.RefreshToken != "" {
		s.revokePresentedToken(ctx, input.UserID, input.RefreshToken)
	}

	if input.AccessJTI != "" && input.AccessTTL > 0 {
		if err := s.revoked.RevokeToken(ctx, input.AccessJTI, input.AccessTTL); err != nil {
			return err
		}
	}

	s.logger.Info("User logged out", zap.String("user_id", input.UserID.String()))
	return nil
}

// revokePresentedToken revokes a refresh token on logout. Unknown, expired
// or foreign tokens are ignored so logout always succeeds.
func (s *AuthService) revokePresentedToken(ctx context.Context, userID uuid.UUID, raw string) {
	claims, err := s.tokens.ParseRefresh(raw)
	if err != nil {
		return
	}
	jti, err := claims.JTI()
	if err != nil {
		return
	}
	stored, err := s.tokenRepo.FindByID(ctx, jti)
	if err != nil || stored.UserID != userID || !stored.Matches(raw) {
		return
	}
	if _, err := s.tokenRepo.RevokeIfActive(ctx, stored.ID, nil, time.Now().UTC()); err != nil {
		s.logger.Error("Failed to revoke refresh token on logout", zap.Error(err))
	}
}

// LogoutAll ends every session of the user
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	n, err := s.revokeAllSessions(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info("User logged out everywhere",
		zap.String("user_id", userID.String()),
		zap.Int64("revoked_refresh_tokens", n))
	return nil
}

func (s *AuthService) revokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.tokenRepo.RevokeAllForUser(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if err := s.revoked.RevokeUser(ctx, userID.String(), s.tokens.AccessTTL()); err != nil {
		return n, err
	}
	return n, nil
}

// Me returns the signed-in user's profile
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// ChangePassword sets a new password, ends every other session and
// returns a fresh token pair for the caller
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) (*AuthResult, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user after password change", zap.Error(err))
		return nil, err
	}
	if _, err := s.revokeAllSessions(ctx, user.ID); err != nil {
		return nil, err
	}

	var result *AuthResult
	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		result, err = s.issueTokens(ctx, repos.RefreshTokenRepo(), user, uuid.Nil, input.IP, input.UserAgent)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, user.PullDomainEvents()...)
	s.logger.Info("User password changed", zap.String("user_id", user.ID.String()))

	return result, nil
}

// issueTokens signs a new pair and stores the refresh token row
func (s *AuthService) issueTokens(
	ctx context.Context,
	tokens identity.RefreshTokenRepository,
	user *identity.User,
	familyID uuid.UUID,
	ip, userAgent string,
) (*AuthResult, error) {
	pair, err := s.tokens.Issue(auth.Subject{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     string(user.Role),
		FamilyID: familyID,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, err
	}

	record := identity.NewRefreshToken(pair.RefreshJTI, user.ID, pair.FamilyID, pair.RefreshToken, pair.RefreshTokenExpiresAt, ip, userAgent)
	if err := tokens.Create(ctx, record); err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  ToUserInfo(user),
		refreshJTI:            pair.RefreshJTI,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish identity events", zap.Error(err))
	}
}
