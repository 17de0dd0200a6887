// AngelaMos | 2026
// entity.go

package rbac

import (
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

// Role is reference data maintained out of band.
type Role struct {
	ID          string           `db:"id"`
	Name        string           `db:"name"`
	DisplayName string           `db:"display_name"`
	Permissions core.JSONStrings `db:"permissions"`
	IsActive    bool             `db:"is_active"`
	CreatedAt   time.Time        `db:"created_at"`
}

type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"is_active"`
}

func ToRoleResponse(r *Role) RoleResponse {
	perms := []string(r.Permissions)
	if perms == nil {
		perms = []string{}
	}
	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Permissions: perms,
		IsActive:    r.IsActive,
	}
}
