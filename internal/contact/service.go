// AngelaMos | 2026
// service.go

package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/crm-backend/internal/activity"
	"github.com/carterperez-dev/crm-backend/internal/core"
)

type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

type Service struct {
	repo         Repository
	recorder     ActivityRecorder
	queryTimeout time.Duration
}

func NewService(
	repo Repository,
	recorder ActivityRecorder,
	queryTimeout time.Duration,
) *Service {
	return &Service{
		repo:         repo,
		recorder:     recorder,
		queryTimeout: queryTimeout,
	}
}

func (s *Service) Create(
	ctx context.Context,
	actorID string,
	req CreateContactRequest,
) (*Contact, error) {
	c := &Contact{
		ID:           uuid.New().String(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        lowerPtr(req.Email),
		Phone:        req.Phone,
		JobTitle:     req.JobTitle,
		CompanyName:  req.CompanyName,
		Category:     req.Category,
		Notes:        req.Notes,
		SourceLeadID: req.SourceLeadID,
	}
	if c.Category == "" {
		c.Category = CategoryProspect
	}
	if actorID != "" {
		c.CreatedBy = &actorID
	}

	if c.FirstName == "" {
		return nil, core.MissingField("first_name")
	}
	if c.LastName == "" {
		return nil, core.MissingField("last_name")
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeContactCreated,
		activity.SubjectContact,
		c.ID,
		fmt.Sprintf("Created contact %s", c.FullName()),
	))

	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Contact, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Contact, int, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repo.List(ctx, params)
}

func (s *Service) Update(
	ctx context.Context,
	actorID, id string,
	req UpdateContactRequest,
) (*Contact, error) {
	if req.Empty() {
		return nil, core.InvalidField("body", "no updatable fields provided")
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		c.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		c.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		c.Email = lowerPtr(req.Email)
	}
	if req.Phone != nil {
		c.Phone = req.Phone
	}
	if req.JobTitle != nil {
		c.JobTitle = req.JobTitle
	}
	if req.CompanyName != nil {
		c.CompanyName = req.CompanyName
	}
	if req.Category != nil {
		c.Category = *req.Category
	}
	if req.Notes != nil {
		c.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeContactUpdated,
		activity.SubjectContact,
		c.ID,
		"Updated contact",
	))

	return c, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeContactDeleted,
		activity.SubjectContact,
		id,
		"Deleted contact",
	))

	return nil
}

func (s *Service) record(ctx context.Context, entry activity.Entry) {
	if s.recorder != nil {
		s.recorder.Record(ctx, entry)
	}
}

func lowerPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	return &v
}
