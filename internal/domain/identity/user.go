package identity

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/storefront/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus is the lifecycle state of an account
type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusLocked      UserStatus = "locked" // too many failed logins, or by an admin
	UserStatusDeactivated UserStatus = "deactivated"
)

func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusLocked, UserStatusDeactivated:
		return true
	}
	return false
}

// Role is the coarse authorization role of a user
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

const (
	bcryptCost       = 12
	minPasswordLen   = 8
	maxPasswordBytes = 72 // bcrypt ignores anything longer
	maxEmailLen      = 254
	maxFullNameLen   = 100
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is the aggregate root for customer and staff accounts
type User struct {
	shared.BaseAggregateRoot
	Email             string
	FullName          string
	PasswordHash      string
	Role              Role
	Status            UserStatus
	FailedAttempts    int
	LockedUntil       *time.Time
	LastLoginAt       *time.Time
	LastLoginIP       string
	PasswordChangedAt *time.Time
}

// NewUser creates an active customer. Email is normalized and the password
// must satisfy ValidatePassword.
func NewUser(email, password, fullName string) (*User, error) {
	email = NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateFullName(fullName); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		FullName:          fullName,
		PasswordHash:      hash,
		Role:              RoleCustomer,
		Status:            UserStatusActive,
		PasswordChangedAt: &now,
	}
	u.Record(u.registered())
	return u, nil
}

// NewAdmin is NewUser with the admin role
func NewAdmin(email, password, fullName string) (*User, error) {
	u, err := NewUser(email, password, fullName)
	if err != nil {
		return nil, err
	}
	u.Role = RoleAdmin
	return u, nil
}

func (u *User) IsAdmin() bool       { return u.Role == RoleAdmin }
func (u *User) IsActive() bool      { return u.Status == UserStatusActive }
func (u *User) IsDeactivated() bool { return u.Status == UserStatusDeactivated }

// IsLocked is true while a lock is in force. A lock whose LockedUntil has
// passed no longer counts even though Status still says locked.
func (u *User) IsLocked() bool {
	if u.Status != UserStatusLocked {
		return false
	}
	return u.LockedUntil == nil || time.Now().Before(*u.LockedUntil)
}

func (u *User) CanLogin() bool {
	return !u.IsDeactivated() && !u.IsLocked()
}

func (u *User) changed() {
	u.Touch()
	u.IncrementVersion()
}

func (u *User) SetFullName(fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if err := validateFullName(fullName); err != nil {
		return err
	}
	u.FullName = fullName
	u.changed()
	return nil
}

func (u *User) SetRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Unknown role: "+string(role))
	}
	u.Role = role
	u.changed()
	return nil
}

// ChangePassword replaces the password after checking the current one
func (u *User) ChangePassword(current, next string) error {
	if !u.VerifyPassword(current) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	if current == next {
		return shared.NewDomainError("PASSWORD_UNCHANGED", "New password must differ from the current one")
	}
	return u.SetPassword(next)
}

// SetPassword replaces the password without checking the current one
func (u *User) SetPassword(password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.PasswordHash = hash
	u.PasswordChangedAt = &now
	u.changed()
	u.Record(u.passwordChanged(now))
	return nil
}

func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// moveTo switches status, clears the lock unless locking and records the
// transition.
func (u *User) moveTo(next UserStatus) {
	prev := u.Status
	u.Status = next
	if next != UserStatusLocked {
		u.LockedUntil = nil
	}
	u.changed()
	u.Record(u.statusChanged(prev, next))
}

// Activate reopens a deactivated or locked account
func (u *User) Activate() error {
	if u.Status == UserStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "User is already active")
	}
	u.FailedAttempts = 0
	u.moveTo(UserStatusActive)
	return nil
}

// Deactivate disables the account until an admin activates it again
func (u *User) Deactivate() error {
	if u.Status == UserStatusDeactivated {
		return shared.NewDomainError("ALREADY_DEACTIVATED", "User is already deactivated")
	}
	u.moveTo(UserStatusDeactivated)
	return nil
}

// Lock blocks logins for d. A zero d locks until Unlock or Activate.
func (u *User) Lock(d time.Duration) error {
	if u.Status == UserStatusDeactivated {
		return shared.NewDomainError("USER_DEACTIVATED", "Cannot lock a deactivated user")
	}
	var until *time.Time
	if d > 0 {
		t := time.Now().UTC().Add(d)
		until = &t
	}
	u.moveTo(UserStatusLocked)
	u.LockedUntil = until
	return nil
}

func (u *User) Unlock() error {
	if u.Status != UserStatusLocked {
		return shared.NewDomainError("NOT_LOCKED", "User is not locked")
	}
	u.FailedAttempts = 0
	u.moveTo(UserStatusActive)
	return nil
}

// RecordLoginSuccess stamps the login and lifts an expired lock
func (u *User) RecordLoginSuccess(ip string) {
	now := time.Now().UTC()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	u.FailedAttempts = 0
	if u.Status == UserStatusLocked {
		u.Status = UserStatusActive
		u.LockedUntil = nil
	}
	u.changed()
}

// RecordLoginFailure counts a failed login and reports whether it locked
// the account. A lock that has run out starts a fresh window of attempts.
func (u *User) RecordLoginFailure(maxAttempts int, lockFor time.Duration) bool {
	if u.Status == UserStatusLocked && !u.IsLocked() {
		u.Status = UserStatusActive
		u.LockedUntil = nil
		u.FailedAttempts = 0
	}
	u.FailedAttempts++
	u.changed()

	if maxAttempts <= 0 || u.FailedAttempts < maxAttempts {
		return false
	}
	_ = u.Lock(lockFor)
	u.Record(u.locked())
	return true
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword enforces 8 to 72 bytes with at least one letter and one
// digit.
func ValidatePassword(password string) error {
	var msg string
	switch {
	case password == "":
		msg = "Password cannot be empty"
	case len(password) < minPasswordLen:
		msg = "Password must be at least 8 characters"
	case len(password) > maxPasswordBytes:
		msg = "Password cannot exceed 72 bytes"
	case !strings.ContainsFunc(password, unicode.IsLetter) || !strings.ContainsFunc(password, unicode.IsDigit):
		msg = "Password must contain at least one letter and one number"
	default:
		return nil
	}
	return shared.NewDomainError("INVALID_PASSWORD", msg)
}

func validateEmail(email string) error {
	switch {
	case email == "":
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	case len(email) > maxEmailLen:
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 254 characters")
	case !emailPattern.MatchString(email):
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validateFullName(fullName string) error {
	switch {
	case fullName == "":
		return shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	case len(fullName) > maxFullNameLen:
		return shared.NewDomainError("INVALID_NAME", "Full name cannot exceed 100 characters")
	}
	return nil
}

// hashPassword validates then hashes a password
func hashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return string(hash), nil
}
