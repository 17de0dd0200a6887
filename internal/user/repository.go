// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User, role string, assignedBy *string) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	Update(ctx context.Context, user *User) error
	AssignRole(ctx context.Context, userID, role string, assignedBy *string, expiresAt *time.Time) error
	Terminate(ctx context.Context, id string) error
	RecordFailedLogin(ctx context.Context, id string, now time.Time, maxAttempts int, lockUntil time.Time) (LoginFailure, error)
	ResetLoginFailures(ctx context.Context, id string, now time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ChangePassword(ctx context.Context, id, passwordHash string) error
	SetPasswordResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, id, passwordHash string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `
	u.id, u.email, u.password_hash, u.first_name, u.last_name, u.job_title,
	u.phone, u.timezone, u.language, u.status, u.failed_attempts,
	u.locked_until, u.last_login_at, u.password_reset_token_hash,
	u.password_reset_expires_at, u.created_at, u.updated_at,
	(SELECT r.name
	   FROM user_roles ur
	   JOIN roles r ON r.id = ur.role_id
	  WHERE ur.user_id = u.id
	    AND ur.is_active
	    AND r.is_active
	    AND (ur.expires_at IS NULL OR ur.expires_at > NOW())
	  ORDER BY ur.assigned_at DESC
	  LIMIT 1) AS role`

func (r *repository) Create(
	ctx context.Context,
	user *User,
	role string,
	assignedBy *string,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO users (id, email, password_hash, first_name, last_name,
			                   job_title, phone, timezone, language, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at`

		err := tx.GetContext(ctx, user, query,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.FirstName,
			user.LastName,
			user.JobTitle,
			user.Phone,
			user.Timezone,
			user.Language,
			user.Status,
		)
		if err != nil {
			if core.IsDuplicateKeyError(err) {
				return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
			}
			return core.StoreError("create user", err)
		}

		if err := insertAssignment(ctx, tx, user.ID, role, assignedBy, nil); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		user.Role = &role
		return nil
	})
}

func insertAssignment(
	ctx context.Context,
	db core.DBTX,
	userID, role string,
	assignedBy *string,
	expiresAt *time.Time,
) error {
	query := `
		INSERT INTO user_roles (id, user_id, role_id, assigned_by, assigned_at,
		                        expires_at, is_active)
		SELECT $1, $2, r.id, $3, NOW(), $4, TRUE
		FROM roles r
		WHERE r.name = $5 AND r.is_active`

	result, err := db.ExecContext(ctx, query,
		uuid.New().String(),
		userID,
		assignedBy,
		expiresAt,
		role,
	)
	if err != nil {
		return core.StoreError("assign role", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return core.StoreError("assign role", err)
	}

	if rows == 0 {
		return core.InvalidField("role", fmt.Sprintf("unknown role %q", role))
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, core.StoreError("get user", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE lower(u.email) = lower($1)`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, core.StoreError("get user by email", err)
	}

	return &user, nil
}

func (r *repository) GetByResetTokenHash(
	ctx context.Context,
	tokenHash string,
	now time.Time,
) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		WHERE u.password_reset_token_hash = $1
		  AND u.password_reset_expires_at > $2
		  AND u.status = 'active'`

	var user User
	err := r.db.GetContext(ctx, &user, query, tokenHash, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by reset token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, core.StoreError("get user by reset token", err)
	}

	return &user, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "TRUE")

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(u.email ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("u.status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = u.id AND ur.is_active AND r.name = $%d)`, argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users u WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, core.StoreError("count users", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users u
		WHERE %s
		ORDER BY u.created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, core.StoreError("list users", err)
	}

	return users, total, nil
}

func (r *repository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, job_title = $4, phone = $5,
		    timezone = $6, language = $7, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.JobTitle,
		user.Phone,
		user.Timezone,
		user.Language,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.StoreError("update user", err)
	}

	return nil
}

// AssignRole replaces the user's active assignments with one new assignment.
func (r *repository) AssignRole(
	ctx context.Context,
	userID, role string,
	assignedBy *string,
	expiresAt *time.Time,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status,
			`SELECT status FROM users WHERE id = $1 FOR UPDATE`, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("assign role: %w", core.ErrNotFound)
		}
		if err != nil {
			return core.StoreError("assign role", err)
		}
		if status != StatusActive {
			return fmt.Errorf("assign role: %w", core.ErrConflict)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE user_roles SET is_active = FALSE WHERE user_id = $1 AND is_active`,
			userID)
		if err != nil {
			return core.StoreError("assign role", err)
		}

		return insertAssignment(ctx, tx, userID, role, assignedBy, expiresAt)
	})
}

// Terminate soft deletes the user and deactivates every role assignment and
// session in the same transaction.
func (r *repository) Terminate(ctx context.Context, id string) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE users
			SET status = 'terminated', updated_at = NOW()
			WHERE id = $1 AND status = 'active'`, id)
		if err != nil {
			return core.StoreError("terminate user", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return core.StoreError("terminate user", err)
		}
		if rows == 0 {
			return fmt.Errorf("terminate user: %w", core.ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE user_roles SET is_active = FALSE WHERE user_id = $1 AND is_active`,
			id); err != nil {
			return core.StoreError("terminate user roles", err)
		}

		if err := deactivateSessions(ctx, tx, id); err != nil {
			return fmt.Errorf("terminate user: %w", err)
		}

		return nil
	})
}

func deactivateSessions(ctx context.Context, db core.DBTX, userID string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE user_sessions
		SET is_active = FALSE, revoked_at = NOW()
		WHERE user_id = $1 AND is_active`, userID)
	if err != nil {
		return core.StoreError("deactivate sessions", err)
	}
	return nil
}

// RecordFailedLogin increments the failure counter in a single statement. A
// lock that has already elapsed restarts the count at one. When the count
// reaches maxAttempts, locked_until is set to lockUntil.
func (r *repository) RecordFailedLogin(
	ctx context.Context,
	id string,
	now time.Time,
	maxAttempts int,
	lockUntil time.Time,
) (LoginFailure, error) {
	query := `
		UPDATE users
		SET failed_attempts = CASE
		        WHEN locked_until IS NOT NULL AND locked_until <= $2 THEN 1
		        ELSE failed_attempts + 1
		    END,
		    locked_until = CASE
		        WHEN (CASE
		                WHEN locked_until IS NOT NULL AND locked_until <= $2 THEN 1
		                ELSE failed_attempts + 1
		              END) >= $3 THEN $4
		        WHEN locked_until IS NOT NULL AND locked_until <= $2 THEN NULL
		        ELSE locked_until
		    END,
		    updated_at = $2
		WHERE id = $1
		RETURNING failed_attempts, locked_until`

	var failure LoginFailure
	err := r.db.GetContext(ctx, &failure, query, id, now, maxAttempts, lockUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return LoginFailure{}, fmt.Errorf("record failed login: %w", core.ErrNotFound)
	}
	if err != nil {
		return LoginFailure{}, core.StoreError("record failed login", err)
	}

	return failure, nil
}

func (r *repository) ResetLoginFailures(
	ctx context.Context,
	id string,
	now time.Time,
) error {
	query := `
		UPDATE users
		SET failed_attempts = 0, locked_until = NULL, last_login_at = $2,
		    updated_at = $2
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return core.StoreError("reset login failures", err)
	}
	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return core.StoreError("update password", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return core.StoreError("update password", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

// ChangePassword stores the new hash and deactivates every session of the
// user in one transaction.
func (r *repository) ChangePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE users
			SET password_hash = $2, updated_at = NOW()
			WHERE id = $1 AND status = 'active'`, id, passwordHash)
		if err != nil {
			return core.StoreError("change password", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return core.StoreError("change password", err)
		}
		if rows == 0 {
			return fmt.Errorf("change password: %w", core.ErrNotFound)
		}

		return deactivateSessions(ctx, tx, id)
	})
}

func (r *repository) SetPasswordResetToken(
	ctx context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	query := `
		UPDATE users
		SET password_reset_token_hash = $2, password_reset_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active'`

	if _, err := r.db.ExecContext(ctx, query, id, tokenHash, expiresAt); err != nil {
		return core.StoreError("set password reset token", err)
	}
	return nil
}

// ResetPassword stores the new hash, clears the reset token and lockout, and
// deactivates every session of the user in one transaction.
func (r *repository) ResetPassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE users
			SET password_hash = $2,
			    password_reset_token_hash = NULL,
			    password_reset_expires_at = NULL,
			    failed_attempts = 0,
			    locked_until = NULL,
			    updated_at = NOW()
			WHERE id = $1 AND status = 'active'`, id, passwordHash)
		if err != nil {
			return core.StoreError("reset password", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return core.StoreError("reset password", err)
		}
		if rows == 0 {
			return fmt.Errorf("reset password: %w", core.ErrNotFound)
		}

		return deactivateSessions(ctx, tx, id)
	})
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, core.StoreError("check email exists", err)
	}

	return exists, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
