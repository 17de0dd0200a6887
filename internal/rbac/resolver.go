// AngelaMos | 2026
// resolver.go

package rbac

import (
	"context"
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

// Resolver answers permission questions straight from the store. Nothing is
// cached between calls, so a revoked role takes effect on the next request.
type Resolver struct {
	repo         Repository
	queryTimeout time.Duration
	now          func() time.Time
}

func NewResolver(repo Repository, queryTimeout time.Duration) *Resolver {
	return &Resolver{
		repo:         repo,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

// PermissionsFor unions the permissions of every active assignment.
func (r *Resolver) PermissionsFor(ctx context.Context, userID string) (Set, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, r.queryTimeout)
	defer cancel()

	lists, err := r.repo.ActivePermissions(ctx, userID, r.now().UTC())
	if err != nil {
		return nil, err
	}

	set := Set{}
	for _, perms := range lists {
		for _, p := range perms {
			if p == Wildcard {
				return NewSet(Wildcard), nil
			}
			if p != "" {
				set[p] = struct{}{}
			}
		}
	}

	return set, nil
}

func (r *Resolver) Allowed(
	ctx context.Context,
	userID, permission string,
) (bool, error) {
	set, err := r.PermissionsFor(ctx, userID)
	if err != nil {
		return false, err
	}
	return set.Has(permission), nil
}

func (r *Resolver) ListRoles(ctx context.Context) ([]Role, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, r.queryTimeout)
	defer cancel()

	return r.repo.ListRoles(ctx)
}
