// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
	UserStatusBlocked  UserStatus = "BLOCKED"
)

// User is the core entity in the system, representing a unique customer, seller or administrator account.
type User struct {
	ID           uuid.UUID  // The Global Unique Identifier (GUID) for the user.
	Email        string     // Login identifier, unique among non-deleted users.
	Name         string     // The user's display name.
	PasswordHash string     // bcrypt hash of the user's password. Never leaves the use-case layer.
	PhoneNumber  string     // Contact phone number, may be empty for OAuth sign-ups.
	Avatar       *string    // Optional avatar URL.
	TOTPSecret   *string    // Base32 TOTP secret. nil means two-factor authentication is disabled.
	Status       UserStatus // Account status.
	RoleID       uuid.UUID  // The role this user acts as.
	Role         *Role      // Loaded role, nil unless the repository joined it.
	CreatedAt    time.Time  // Timestamp of when this user account was created.
	UpdatedAt    time.Time  // Timestamp of the last modification to this user's data.
	DeletedAt    *time.Time // Soft-delete marker.
}

// TwoFactorEnabled reports whether the user has a TOTP secret bound to the account.
func (u *User) TwoFactorEnabled() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}

// RoleName returns the joined role name or an empty string when the role was not loaded.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}

	return u.Role.Name
}
