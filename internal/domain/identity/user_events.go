package identity

import (
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

const AggregateTypeUser = "User"

const (
	EventTypeUserRegistered      = "UserRegistered"
	EventTypeUserPasswordChanged = "UserPasswordChanged"
	EventTypeUserStatusChanged   = "UserStatusChanged"
	EventTypeUserLocked          = "UserLocked"
)

type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type UserPasswordChangedEvent struct {
	shared.BaseDomainEvent
	ChangedAt time.Time `json:"changed_at"`
}

type UserStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus UserStatus `json:"old_status"`
	NewStatus UserStatus `json:"new_status"`
}

// UserLockedEvent follows the status change when failed logins lock an
// account. Admin locks only emit UserStatusChangedEvent.
type UserLockedEvent struct {
	shared.BaseDomainEvent
	Email          string     `json:"email"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
}

func (u *User) event(eventType string) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypeUser, u.ID)
}

func (u *User) registered() *UserRegisteredEvent {
	return &UserRegisteredEvent{BaseDomainEvent: u.event(EventTypeUserRegistered), Email: u.Email, Role: u.Role}
}

func (u *User) passwordChanged(at time.Time) *UserPasswordChangedEvent {
	return &UserPasswordChangedEvent{BaseDomainEvent: u.event(EventTypeUserPasswordChanged), ChangedAt: at}
}

func (u *User) statusChanged(from, to UserStatus) *UserStatusChangedEvent {
	return &UserStatusChangedEvent{BaseDomainEvent: u.event(EventTypeUserStatusChanged), OldStatus: from, NewStatus: to}
}

func (u *User) locked() *UserLockedEvent {
	return &UserLockedEvent{
		BaseDomainEvent: u.event(EventTypeUserLocked),
		Email:           u.Email,
		FailedAttempts:  u.FailedAttempts,
		LockedUntil:     u.LockedUntil,
	}
}
