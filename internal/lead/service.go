// AngelaMos | 2026
// service.go

package lead

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/crm-backend/internal/activity"
	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/metrics"
)

const defaultConversionType = "qualified"

type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

type Service struct {
	store         Store
	pipeline      *Pipeline
	scorer        *Scorer
	activityTypes map[string]struct{}
	recorder      ActivityRecorder
	queryTimeout  time.Duration
	now           func() time.Time
}

type Option func(*Service)

func WithRecorder(r ActivityRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) { s.queryTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the engine. activityTypes lists the types users may log;
// stage_changed and converted are reserved for the engine itself.
func NewService(
	store Store,
	pipeline *Pipeline,
	scorer *Scorer,
	activityTypes []string,
	opts ...Option,
) *Service {
	types := make(map[string]struct{}, len(activityTypes))
	for _, t := range activityTypes {
		if t == ActivityStageChanged || t == ActivityConverted {
			continue
		}
		types[t] = struct{}{}
	}

	s := &Service{
		store:         store,
		pipeline:      pipeline,
		scorer:        scorer,
		activityTypes: types,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Pipeline() *Pipeline {
	return s.pipeline
}

func (s *Service) Now() time.Time {
	return s.now().UTC()
}

func (s *Service) Create(
	ctx context.Context,
	actorID string,
	req CreateLeadRequest,
) (_ *Lead, err error) {
	ctx, span := core.StartSpan(ctx, "lead.Create")
	defer func() { core.EndSpan(span, err) }()

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	switch {
	case firstName == "":
		return nil, core.MissingField("first_name")
	case lastName == "":
		return nil, core.MissingField("last_name")
	case email == "":
		return nil, core.MissingField("email")
	}

	lead := &Lead{
		ID:             uuid.New().String(),
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		Phone:          req.Phone,
		Company:        req.Company,
		JobTitle:       req.JobTitle,
		Website:        req.Website,
		LinkedInURL:    req.LinkedInURL,
		Industry:       req.Industry,
		CompanySize:    req.CompanySize,
		BudgetRange:    req.BudgetRange,
		DecisionMaker:  req.DecisionMaker,
		SourceID:       req.SourceID,
		Status:         s.pipeline.Initial(),
		Temperature:    valueOr(req.Temperature, TemperatureCold),
		Priority:       valueOr(req.Priority, PriorityMedium),
		Score:          0,
		AssignedTo:     req.AssignedTo,
		CreatedBy:      optional(actorID),
		Notes:          req.Notes,
		Tags:           core.JSONStrings(req.Tags),
		NextFollowUpAt: req.NextFollowUpAt,
	}
	if lead.Tags == nil {
		lead.Tags = core.JSONStrings{}
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.store.Create(ctx, lead); err != nil {
		return nil, err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeLeadCreated,
		activity.SubjectLead,
		lead.ID,
		fmt.Sprintf("Created lead %s", lead.FullName()),
	))

	return lead, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Lead, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.store.List(ctx, params)
}

func (s *Service) Update(
	ctx context.Context,
	actorID, id string,
	req UpdateLeadRequest,
) (_ *Lead, err error) {
	if req.Empty() {
		return nil, core.InvalidField("body", "no updatable fields provided")
	}
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"email", req.Email},
	} {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return nil, core.MissingField(f.name)
		}
	}

	ctx, span := core.StartSpan(ctx, "lead.Update", attribute.String("lead.id", id))
	defer func() { core.EndSpan(span, err) }()

	var changed []string
	lead, err := s.mutate(ctx, id, func(_ Repository, l *Lead) error {
		changed = applyUpdate(l, req)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeLeadUpdated,
		activity.SubjectLead,
		lead.ID,
		"Updated lead",
	).With("fields", changed))

	return lead, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.store.SoftDelete(ctx, id, s.Now()); err != nil {
		return err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeLeadDeleted,
		activity.SubjectLead,
		id,
		"Deleted lead",
	))

	return nil
}

// Transition moves the lead to another stage. The stage change, its
// stage_changed activity and the new score commit together or not at all.
// Moving to the converted stage goes through the conversion path with
// default conversion details.
func (s *Service) Transition(
	ctx context.Context,
	actorID, id string,
	req TransitionRequest,
) (_ *Lead, err error) {
	if req.ToStatus == s.pipeline.ConvertedStage() {
		return s.Convert(ctx, actorID, id, ConvertRequest{Notes: req.Note})
	}

	ctx, span := core.StartSpan(ctx, "lead.Transition",
		attribute.String("lead.id", id),
		attribute.String("lead.to_status", req.ToStatus),
	)
	defer func() { core.EndSpan(span, err) }()

	var (
		kind TransitionKind
		from string
	)
	lead, err := s.mutate(ctx, id, func(repo Repository, l *Lead) error {
		k, err := s.pipeline.Check(l.Status, req.ToStatus)
		if err != nil {
			return err
		}
		kind, from = k, l.Status

		entry := &Activity{
			ID:          uuid.New().String(),
			LeadID:      l.ID,
			Type:        ActivityStageChanged,
			Outcome:     OutcomeNeutral,
			Subject:     optional(fmt.Sprintf("Stage changed from %s to %s", l.Status, req.ToStatus)),
			Description: req.Note,
			FromStatus:  optional(l.Status),
			ToStatus:    optional(req.ToStatus),
			IsSkip:      k == KindSkip,
			ActorID:     optional(actorID),
			OccurredAt:  s.Now(),
		}
		if err := repo.AppendActivity(ctx, entry); err != nil {
			return err
		}

		l.Status = req.ToStatus
		return s.rescore(ctx, repo, l)
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveTransition(string(kind))
	s.record(ctx, activity.New(
		actorID,
		activity.TypeLeadStageChanged,
		activity.SubjectLead,
		lead.ID,
		fmt.Sprintf("Moved lead from %s to %s", from, lead.Status),
	).With("from_status", from).
		With("to_status", lead.Status).
		With("is_skip", kind == KindSkip))

	return lead, nil
}

// Convert closes the lead as converted. It is accepted only where the
// pipeline allows a move to the converted stage.
func (s *Service) Convert(
	ctx context.Context,
	actorID, id string,
	req ConvertRequest,
) (_ *Lead, err error) {
	ctx, span := core.StartSpan(ctx, "lead.Convert", attribute.String("lead.id", id))
	defer func() { core.EndSpan(span, err) }()

	conversionType := valueOr(strings.TrimSpace(req.ConversionType), defaultConversionType)
	value := req.ConversionValue
	to := s.pipeline.ConvertedStage()

	var from string
	lead, err := s.mutate(ctx, id, func(repo Repository, l *Lead) error {
		if _, err := s.pipeline.Check(l.Status, to); err != nil {
			return err
		}
		from = l.Status
		now := s.Now()

		entry := &Activity{
			ID:          uuid.New().String(),
			LeadID:      l.ID,
			Type:        ActivityConverted,
			Outcome:     OutcomePositive,
			Subject:     optional(fmt.Sprintf("Converted (%s)", conversionType)),
			Description: req.Notes,
			FromStatus:  optional(l.Status),
			ToStatus:    optional(to),
			Value:       &value,
			ActorID:     optional(actorID),
			OccurredAt:  now,
		}
		if err := repo.AppendActivity(ctx, entry); err != nil {
			return err
		}

		l.Status = to
		l.ConversionType = &conversionType
		l.ConversionValue = &value
		l.ConvertedAt = &now
		return s.rescore(ctx, repo, l)
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveTransition(string(KindConverted))
	s.record(ctx, activity.New(
		actorID,
		activity.TypeLeadConverted,
		activity.SubjectLead,
		lead.ID,
		fmt.Sprintf("Converted lead %s", lead.FullName()),
	).With("from_status", from).
		With("conversion_type", conversionType).
		With("conversion_value", value))

	return lead, nil
}

// AppendActivity logs a user interaction and rescores the lead. Terminal
// leads still accept activities.
func (s *Service) AppendActivity(
	ctx context.Context,
	actorID, leadID string,
	req ActivityRequest,
) (_ *Activity, _ *Lead, err error) {
	activityType := strings.ToLower(strings.TrimSpace(req.Type))
	if _, ok := s.activityTypes[activityType]; !ok {
		return nil, nil, core.InvalidField("activity_type",
			fmt.Sprintf("unsupported activity type %q", req.Type))
	}

	outcome := valueOr(req.Outcome, OutcomeNeutral)
	switch outcome {
	case OutcomePositive, OutcomeNeutral, OutcomeNegative:
	default:
		return nil, nil, core.InvalidField("outcome", "must be positive, neutral or negative")
	}

	ctx, span := core.StartSpan(ctx, "lead.AppendActivity",
		attribute.String("lead.id", leadID),
		attribute.String("lead.activity_type", activityType),
	)
	defer func() { core.EndSpan(span, err) }()

	occurredAt := s.Now()
	if req.OccurredAt != nil {
		if req.OccurredAt.After(occurredAt) {
			return nil, nil, core.InvalidField("activity_date", "cannot be in the future")
		}
		occurredAt = req.OccurredAt.UTC()
	}

	entry := &Activity{
		ID:              uuid.New().String(),
		LeadID:          leadID,
		Type:            activityType,
		Outcome:         outcome,
		Subject:         optional(strings.TrimSpace(req.Subject)),
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		NextAction:      req.NextAction,
		ActorID:         optional(actorID),
		OccurredAt:      occurredAt,
	}

	lead, err := s.mutate(ctx, leadID, func(repo Repository, l *Lead) error {
		if err := repo.AppendActivity(ctx, entry); err != nil {
			return err
		}
		if l.LastContactAt == nil || occurredAt.After(*l.LastContactAt) {
			l.LastContactAt = &occurredAt
		}
		return s.rescore(ctx, repo, l)
	})
	if err != nil {
		return nil, nil, err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeLeadActivityAdded,
		activity.SubjectLead,
		lead.ID,
		fmt.Sprintf("Logged %s activity", activityType),
	).With("activity_type", activityType).
		With("outcome", outcome).
		With("score", lead.Score))

	return entry, lead, nil
}

// Rescore recomputes the score from the stored trail. Running it twice on
// an unchanged trail yields the same score.
func (s *Service) Rescore(ctx context.Context, actorID, id string) (_ *Lead, err error) {
	ctx, span := core.StartSpan(ctx, "lead.Rescore", attribute.String("lead.id", id))
	defer func() { core.EndSpan(span, err) }()

	var previous int
	lead, err := s.mutate(ctx, id, func(repo Repository, l *Lead) error {
		previous = l.Score
		return s.rescore(ctx, repo, l)
	})
	if err != nil {
		return nil, err
	}

	if previous != lead.Score {
		s.record(ctx, activity.New(
			actorID,
			activity.TypeLeadRescored,
			activity.SubjectLead,
			lead.ID,
			"Recomputed lead score",
		).With("previous_score", previous).With("score", lead.Score))
	}

	return lead, nil
}

// ListActivities returns the lead's trail newest first.
func (s *Service) ListActivities(ctx context.Context, leadID string) ([]Activity, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.store.GetByID(ctx, leadID); err != nil {
		return nil, err
	}

	trail, err := s.store.ListActivities(ctx, leadID)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}
	return trail, nil
}

func (s *Service) ListSources(ctx context.Context) ([]Source, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.store.ListSources(ctx)
}

func (s *Service) ListStatuses(ctx context.Context) ([]Status, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.store.ListStatuses(ctx)
}

// StageCount is the number of live leads sitting in one stage.
type StageCount struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PipelineSummary reports lead counts for every configured stage in
// pipeline order. Stages without leads report zero.
func (s *Service) PipelineSummary(ctx context.Context) ([]StageCount, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stages := s.pipeline.Stages()
	out := make([]StageCount, 0, len(stages))
	for _, st := range stages {
		out = append(out, StageCount{Key: st.Key, Name: st.Name, Count: counts[st.Key]})
	}
	return out, nil
}

// SyncStatuses upserts the configured stages into lead_statuses.
func (s *Service) SyncStatuses(ctx context.Context) error {
	stages := s.pipeline.Stages()
	statuses := make([]Status, 0, len(stages))
	for _, st := range stages {
		statuses = append(statuses, Status{
			Key:        st.Key,
			Name:       st.Name,
			Color:      st.Color,
			SortOrder:  st.SortOrder,
			IsTerminal: st.Terminal,
		})
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.store.WithinTx(ctx, func(repo Repository) error {
		return repo.UpsertStatuses(ctx, statuses)
	})
}

// mutate locks the lead, applies fn and writes the lead back in one
// transaction bounded by the store timeout.
func (s *Service) mutate(
	ctx context.Context,
	id string,
	fn func(repo Repository, l *Lead) error,
) (*Lead, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	var out *Lead
	err := s.store.WithinTx(ctx, func(repo Repository) error {
		l, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := fn(repo, l); err != nil {
			return err
		}

		if err := repo.Update(ctx, l); err != nil {
			return err
		}

		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Service) rescore(ctx context.Context, repo Repository, l *Lead) error {
	trail, err := repo.ListActivities(ctx, l.ID)
	if err != nil {
		return err
	}
	l.Score = s.scorer.Score(trail)
	return nil
}

func (s *Service) record(ctx context.Context, entry activity.Entry) {
	if s.recorder != nil {
		s.recorder.Record(ctx, entry)
	}
}

func applyUpdate(l *Lead, req UpdateLeadRequest) []string {
	var changed []string
	set := func(name string, apply func()) {
		apply()
		changed = append(changed, name)
	}

	if req.FirstName != nil {
		set("first_name", func() { l.FirstName = strings.TrimSpace(*req.FirstName) })
	}
	if req.LastName != nil {
		set("last_name", func() { l.LastName = strings.TrimSpace(*req.LastName) })
	}
	if req.Email != nil {
		set("email", func() { l.Email = strings.ToLower(strings.TrimSpace(*req.Email)) })
	}
	if req.Phone != nil {
		set("phone", func() { l.Phone = req.Phone })
	}
	if req.Company != nil {
		set("company", func() { l.Company = req.Company })
	}
	if req.JobTitle != nil {
		set("job_title", func() { l.JobTitle = req.JobTitle })
	}
	if req.Website != nil {
		set("website", func() { l.Website = req.Website })
	}
	if req.LinkedInURL != nil {
		set("linkedin_url", func() { l.LinkedInURL = req.LinkedInURL })
	}
	if req.Industry != nil {
		set("industry", func() { l.Industry = req.Industry })
	}
	if req.CompanySize != nil {
		set("company_size", func() { l.CompanySize = req.CompanySize })
	}
	if req.BudgetRange != nil {
		set("budget_range", func() { l.BudgetRange = req.BudgetRange })
	}
	if req.DecisionMaker != nil {
		set("decision_maker", func() { l.DecisionMaker = *req.DecisionMaker })
	}
	if req.SourceID != nil {
		set("lead_source_id", func() { l.SourceID = req.SourceID })
	}
	if req.Temperature != nil {
		set("temperature", func() { l.Temperature = *req.Temperature })
	}
	if req.Priority != nil {
		set("priority", func() { l.Priority = *req.Priority })
	}
	if req.AssignedTo != nil {
		set("assigned_to", func() { l.AssignedTo = req.AssignedTo })
	}
	if req.Notes != nil {
		set("notes", func() { l.Notes = req.Notes })
	}
	if req.Tags != nil {
		set("tags", func() { l.Tags = core.JSONStrings(*req.Tags) })
	}
	if req.NextFollowUpAt != nil {
		set("next_follow_up_at", func() { l.NextFollowUpAt = req.NextFollowUpAt })
	}

	return changed
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
