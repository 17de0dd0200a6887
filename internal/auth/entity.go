// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// Session is the revocable server-side record behind a signed token. The
// opaque secret handed to the client is stored only as a sha256 hash.
type Session struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	SessionTokenHash string     `db:"session_token_hash"`
	IPAddress        *string    `db:"ip_address"`
	UserAgent        *string    `db:"user_agent"`
	CreatedAt        time.Time  `db:"created_at"`
	ExpiresAt        time.Time  `db:"expires_at"`
	IsActive         bool       `db:"is_active"`
	RevokedAt        *time.Time `db:"revoked_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) IsValid(now time.Time) bool {
	return s.IsActive && !s.IsExpired(now)
}

// ClientInfo is request metadata stored with a session.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
