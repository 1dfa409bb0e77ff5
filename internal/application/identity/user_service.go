package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrSelfModification is returned when an admin targets their own account
var ErrSelfModification = shared.NewDomainError("SELF_MODIFICATION", "Administrators cannot change their own status or role")

// SessionRevoker ends every session of a user
type SessionRevoker interface {
	LogoutAll(ctx context.Context, userID uuid.UUID) error
}

// UserService handles admin user management operations
type UserService struct {
	userRepo identity.UserRepository
	sessions SessionRevoker
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	sessions SessionRevoker,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		sessions: sessions,
		logger:   logger,
	}
}

// List returns a page of users
func (s *UserService) List(ctx context.Context, filter identity.UserFilter) (shared.Paginated[UserInfo], error) {
	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[UserInfo]{}, err
	}
	infos := make([]UserInfo, len(users))
	for i, u := range users {
		infos[i] = ToUserInfo(u)
	}
	return shared.NewPaginated(infos, total, filter.Page, filter.Limit()), nil
}

// Get returns a single user
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*UserInfo, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// SetStatus activates, deactivates or unlocks an account.
// Deactivation ends all sessions of the account.
func (s *UserService) SetStatus(ctx context.Context, input SetUserStatusInput) (*UserInfo, error) {
	if input.ActorID == input.UserID {
		return nil, ErrSelfModification
	}

	user, err := s.find(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	switch input.Action {
	case UserActionActivate:
		err = user.Activate()
	case UserActionDeactivate:
		err = user.Deactivate()
	case UserActionUnlock:
		err = user.Unlock()
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown user action: "+string(input.Action))
	}
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if input.Action == UserActionDeactivate {
		s.endSessions(ctx, user, "deactivated")
	}

	s.logger.Info("User status changed",
		zap.String("actor_id", input.ActorID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("action", string(input.Action)))

	info := ToUserInfo(user)
	return &info, nil
}

// SetRole promotes or demotes an account. A demoted admin loses every
// session so no access token keeps the admin role.
func (s *UserService) SetRole(ctx context.Context, input SetUserRoleInput) (*UserInfo, error) {
	if input.ActorID == input.UserID {
		return nil, ErrSelfModification
	}

	user, err := s.find(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	wasAdmin := user.IsAdmin()
	if err := user.SetRole(input.Role); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if wasAdmin && !user.IsAdmin() {
		s.endSessions(ctx, user, "demoted")
	}

	s.logger.Info("User role changed",
		zap.String("actor_id", input.ActorID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	info := ToUserInfo(user)
	return &info, nil
}

func (s *UserService) endSessions(ctx context.Context, user *identity.User, reason string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.LogoutAll(ctx, user.ID); err != nil {
		s.logger.Error("Failed to revoke sessions",
			zap.String("user_id", user.ID.String()),
			zap.String("reason", reason),
			zap.Error(err))
	}
}

func (s *UserService) find(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
