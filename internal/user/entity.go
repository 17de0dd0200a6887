// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID                     string     `db:"id"`
	Email                  string     `db:"email"`
	PasswordHash           string     `db:"password_hash"`
	FirstName              string     `db:"first_name"`
	LastName               string     `db:"last_name"`
	JobTitle               *string    `db:"job_title"`
	Phone                  *string    `db:"phone"`
	Timezone               string     `db:"timezone"`
	Language               string     `db:"language"`
	Status                 string     `db:"status"`
	FailedAttempts         int        `db:"failed_attempts"`
	LockedUntil            *time.Time `db:"locked_until"`
	LastLoginAt            *time.Time `db:"last_login_at"`
	PasswordResetTokenHash *string    `db:"password_reset_token_hash"`
	PasswordResetExpiresAt *time.Time `db:"password_reset_expires_at"`
	Role                   *string    `db:"role"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

const (
	StatusActive     = "active"
	StatusTerminated = "terminated"
)

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// IsLocked reports whether a lockout is still in force at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return *u.Role
}

// LoginFailure is the lockout state after a failed attempt was recorded.
type LoginFailure struct {
	FailedAttempts int        `db:"failed_attempts"`
	LockedUntil    *time.Time `db:"locked_until"`
}

func (f LoginFailure) Locked(now time.Time) bool {
	return f.LockedUntil != nil && f.LockedUntil.After(now)
}

type RoleAssignment struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	RoleID     string     `db:"role_id"`
	RoleName   string     `db:"role_name"`
	AssignedBy *string    `db:"assigned_by"`
	AssignedAt time.Time  `db:"assigned_at"`
	ExpiresAt  *time.Time `db:"expires_at"`
	IsActive   bool       `db:"is_active"`
}
