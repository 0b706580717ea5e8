// Package auth provides authentication for the back office and registers:
// bcrypt-hashed credentials and short-lived JWT access tokens.
package auth

import (
	"context"
	"time"

	"bottega/internal/core/apperror"
	"bottega/internal/core/id"
)

// Role is a coarse access level. The store has two kinds of operators.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleCashier Role = "cashier"
)

// User represents an operator account.
type User struct {
	ID           id.ID  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Name         string `db:"name" json:"name,omitempty"`
	Role         Role   `db:"role" json:"role"`
	IsActive     bool   `db:"is_active" json:"isActive"`

	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewUser creates an active user with the given role.
func NewUser(email, passwordHash string, role Role) *User {
	now := time.Now()
	return &User{
		ID:           id.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate validates user data.
func (u *User) Validate(ctx context.Context) error {
	if u.Email == "" {
		return apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if u.Role != RoleOwner && u.Role != RoleCashier {
		return apperror.NewValidation("unknown role").WithDetail("role", string(u.Role))
	}
	return nil
}

// IsLocked returns true if the account is temporarily locked.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// CanLogin checks if the user may log in.
func (u *User) CanLogin() error {
	if !u.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if u.IsLocked() {
		return apperror.NewForbidden("account is temporarily locked")
	}
	return nil
}

// RecordFailedLogin increments the failed login counter and locks the
// account past the threshold.
func (u *User) RecordFailedLogin(maxAttempts int, lockDuration time.Duration) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		lockUntil := time.Now().Add(lockDuration)
		u.LockedUntil = &lockUntil
	}
}

// RecordSuccessfulLogin resets the failed login counter.
func (u *User) RecordSuccessfulLogin() {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	now := time.Now()
	u.LastLoginAt = &now
}
