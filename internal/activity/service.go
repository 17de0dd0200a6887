// AngelaMos | 2026
// service.go

package activity

import (
	"context"
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Service struct {
	repo         Repository
	queryTimeout time.Duration
}

func NewService(repo Repository, queryTimeout time.Duration) *Service {
	return &Service{repo: repo, queryTimeout: queryTimeout}
}

func (s *Service) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Since != nil && filter.Until != nil && filter.Until.Before(*filter.Since) {
		return nil, core.InvalidField("until", "must not be before since")
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repo.Query(ctx, filter)
}
