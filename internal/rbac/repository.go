// AngelaMos | 2026
// repository.go

package rbac

import (
	"context"
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Repository interface {
	ActivePermissions(ctx context.Context, userID string, now time.Time) ([]core.JSONStrings, error)
	ListRoles(ctx context.Context) ([]Role, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// ActivePermissions returns the permission lists of every live assignment,
// newest first. Assignments of terminated users, inactive roles and expired
// grants are excluded.
func (r *repository) ActivePermissions(
	ctx context.Context,
	userID string,
	now time.Time,
) ([]core.JSONStrings, error) {
	query := `
		SELECT r.permissions
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		JOIN users u ON u.id = ur.user_id
		WHERE ur.user_id = $1
		  AND ur.is_active
		  AND r.is_active
		  AND u.status = 'active'
		  AND (ur.expires_at IS NULL OR ur.expires_at > $2)
		ORDER BY ur.assigned_at DESC`

	perms := []core.JSONStrings{}
	if err := r.db.SelectContext(ctx, &perms, query, userID, now); err != nil {
		return nil, core.StoreError("load permissions", err)
	}

	return perms, nil
}

func (r *repository) ListRoles(ctx context.Context) ([]Role, error) {
	query := `
		SELECT id, name, display_name, permissions, is_active, created_at
		FROM roles
		ORDER BY name`

	roles := []Role{}
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, core.StoreError("list roles", err)
	}

	return roles, nil
}
