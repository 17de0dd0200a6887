// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	IsActive(ctx context.Context, id string, now time.Time) (bool, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]Session, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const sessionColumns = `
	id, user_id, session_token_hash, ip_address, user_agent,
	created_at, expires_at, is_active, revoked_at`

func (r *repository) Create(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO user_sessions (
			id, user_id, session_token_hash, ip_address, user_agent,
			created_at, expires_at, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, TRUE
		)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.SessionTokenHash,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return core.StoreError("create session", err)
	}

	session.IsActive = true
	return nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE id = $1`

	var session Session
	err := r.db.GetContext(ctx, &session, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, core.StoreError("find session", err)
	}

	return &session, nil
}

func (r *repository) FindByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE session_token_hash = $1`

	var session Session
	err := r.db.GetContext(ctx, &session, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, core.StoreError("find session", err)
	}

	return &session, nil
}

// IsActive is true only for an active, unexpired session whose owner is
// still an active user.
func (r *repository) IsActive(
	ctx context.Context,
	id string,
	now time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM user_sessions s
			JOIN users u ON u.id = s.user_id
			WHERE s.id = $1
			  AND s.is_active
			  AND s.expires_at > $2
			  AND u.status = 'active'
		)`

	var active bool
	if err := r.db.GetContext(ctx, &active, query, id, now); err != nil {
		return false, core.StoreError("check session", err)
	}

	return active, nil
}

// Revoke is idempotent: revoking an inactive or unknown session is not an
// error.
func (r *repository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE user_sessions
		SET is_active = FALSE, revoked_at = NOW()
		WHERE id = $1 AND is_active`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return core.StoreError("revoke session", err)
	}

	return nil
}

func (r *repository) RevokeAllForUser(
	ctx context.Context,
	userID string,
) (int64, error) {
	query := `
		UPDATE user_sessions
		SET is_active = FALSE, revoked_at = NOW()
		WHERE user_id = $1 AND is_active`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, core.StoreError("revoke user sessions", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, core.StoreError("revoke user sessions", err)
	}

	return rows, nil
}

func (r *repository) ListActiveForUser(
	ctx context.Context,
	userID string,
	now time.Time,
) ([]Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM user_sessions
		WHERE user_id = $1
		  AND is_active
		  AND expires_at > $2
		ORDER BY created_at DESC`

	sessions := []Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, userID, now); err != nil {
		return nil, core.StoreError("list sessions", err)
	}

	return sessions, nil
}

// DeleteExpired removes sessions that expired before cutoff.
func (r *repository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	query := `DELETE FROM user_sessions WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, core.StoreError("delete expired sessions", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, core.StoreError("delete expired sessions", err)
	}

	return rows, nil
}
