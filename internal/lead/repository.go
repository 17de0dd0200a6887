// AngelaMos | 2026
// repository.go

package lead

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	GetForUpdate(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	Update(ctx context.Context, lead *Lead) error
	SoftDelete(ctx context.Context, id string, now time.Time) error
	AppendActivity(ctx context.Context, activity *Activity) error
	ListActivities(ctx context.Context, leadID string) ([]Activity, error)
	ListSources(ctx context.Context) ([]Source, error)
	ListStatuses(ctx context.Context) ([]Status, error)
	UpsertStatuses(ctx context.Context, statuses []Status) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// Store runs fn against a repository bound to one transaction. Any error
// from fn rolls back every write made through it.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

type repository struct {
	db core.DBTX
}

type store struct {
	*repository
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) Store {
	return &store{repository: &repository{db: db}, db: db}
}

func (s *store) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	return core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&repository{db: tx})
	})
}

const leadColumns = `
	l.id, l.first_name, l.last_name, l.email, l.phone, l.company, l.job_title,
	l.website, l.linkedin_url, l.industry, l.company_size, l.budget_range,
	l.decision_maker, l.source_id,
	(SELECT s.name FROM lead_sources s WHERE s.id = l.source_id) AS source_name,
	l.status, l.temperature, l.priority, l.score, l.assigned_to, l.created_by,
	l.notes, l.tags, l.next_follow_up_at, l.last_contact_at, l.conversion_type,
	l.conversion_value, l.converted_at, l.version, l.created_at, l.updated_at,
	l.deleted_at`

var sortColumns = map[string]string{
	"created_at":        "l.created_at",
	"updated_at":        "l.updated_at",
	"lead_score":        "l.score",
	"score":             "l.score",
	"last_name":         "l.last_name",
	"company":           "l.company",
	"next_follow_up_at": "l.next_follow_up_at",
	"last_contact_at":   "l.last_contact_at",
}

func (r *repository) Create(ctx context.Context, lead *Lead) error {
	query := `
		INSERT INTO leads (
			id, first_name, last_name, email, phone, company, job_title,
			website, linkedin_url, industry, company_size, budget_range,
			decision_maker, source_id, status, temperature, priority, score,
			assigned_to, created_by, notes, tags, next_follow_up_at, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, 1
		)
		RETURNING version, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		lead.ID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.JobTitle,
		lead.Website,
		lead.LinkedInURL,
		lead.Industry,
		lead.CompanySize,
		lead.BudgetRange,
		lead.DecisionMaker,
		lead.SourceID,
		lead.Status,
		lead.Temperature,
		lead.Priority,
		lead.Score,
		lead.AssignedTo,
		lead.CreatedBy,
		lead.Notes,
		lead.Tags,
		lead.NextFollowUpAt,
	).Scan(&lead.Version, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create lead: %w",
				core.InvalidField("lead_source_id", "references an unknown source or user"))
		}
		return core.StoreError("create lead", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + `
		FROM leads l
		WHERE l.id = $1 AND l.deleted_at IS NULL`

	return r.getOne(ctx, "get lead", query, id)
}

// GetForUpdate locks the lead row until the surrounding transaction ends.
func (r *repository) GetForUpdate(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + `
		FROM leads l
		WHERE l.id = $1 AND l.deleted_at IS NULL
		FOR UPDATE OF l`

	return r.getOne(ctx, "lock lead", query, id)
}

func (r *repository) getOne(ctx context.Context, op, query, id string) (*Lead, error) {
	var lead Lead
	err := r.db.GetContext(ctx, &lead, query, id)
	if errors.Is(err, sql.ErrNoRows) || core.IsInvalidText(err) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, core.StoreError(op, err)
	}
	return &lead, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Lead, int, error) {
	params.Normalize()

	conditions := []string{"l.deleted_at IS NULL"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(l.first_name ILIKE $%d OR l.last_name ILIKE $%d OR l.email ILIKE $%d OR l.company ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	filters := []struct {
		column string
		value  string
	}{
		{"l.status", params.Status},
		{"l.source_id", params.SourceID},
		{"l.assigned_to", params.AssignedTo},
		{"l.temperature", params.Temperature},
		{"l.priority", params.Priority},
	}
	for _, f := range filters {
		if f.value == "" {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", f.column, argIdx))
		args = append(args, f.value)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM leads l WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, core.StoreError("count leads", err)
	}

	sortColumn, ok := sortColumns[params.SortBy]
	if !ok {
		sortColumn = "l.created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads l
		WHERE %s
		ORDER BY %s %s NULLS LAST, l.id %s
		LIMIT $%d OFFSET $%d`,
		leadColumns, whereClause, sortColumn, sortOrder, sortOrder, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	leads := []Lead{}
	if err := r.db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, 0, core.StoreError("list leads", err)
	}

	return leads, total, nil
}

// Update writes every mutable column and bumps version. The write is
// rejected with ErrConflict when the stored version moved on.
func (r *repository) Update(ctx context.Context, lead *Lead) error {
	query := `
		UPDATE leads
		SET first_name = $3, last_name = $4, email = $5, phone = $6,
		    company = $7, job_title = $8, website = $9, linkedin_url = $10,
		    industry = $11, company_size = $12, budget_range = $13,
		    decision_maker = $14, source_id = $15, status = $16,
		    temperature = $17, priority = $18, score = $19, assigned_to = $20,
		    notes = $21, tags = $22, next_follow_up_at = $23,
		    last_contact_at = $24, conversion_type = $25,
		    conversion_value = $26, converted_at = $27,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING version, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		lead.ID,
		lead.Version,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.JobTitle,
		lead.Website,
		lead.LinkedInURL,
		lead.Industry,
		lead.CompanySize,
		lead.BudgetRange,
		lead.DecisionMaker,
		lead.SourceID,
		lead.Status,
		lead.Temperature,
		lead.Priority,
		lead.Score,
		lead.AssignedTo,
		lead.Notes,
		lead.Tags,
		lead.NextFollowUpAt,
		lead.LastContactAt,
		lead.ConversionType,
		lead.ConversionValue,
		lead.ConvertedAt,
	).Scan(&lead.Version, &lead.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update lead: %w", core.ErrConflict)
	}
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("update lead: %w",
				core.InvalidField("lead_source_id", "references an unknown source or user"))
		}
		return core.StoreError("update lead", err)
	}

	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE leads
		SET deleted_at = $2, updated_at = $2, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return core.StoreError("delete lead", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return core.StoreError("delete lead", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete lead: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) AppendActivity(ctx context.Context, a *Activity) error {
	query := `
		INSERT INTO lead_activities (
			id, lead_id, activity_type, outcome, subject, description,
			duration_minutes, next_action, from_status, to_status, is_skip,
			value, actor_id, occurred_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.LeadID,
		a.Type,
		a.Outcome,
		a.Subject,
		a.Description,
		a.DurationMinutes,
		a.NextAction,
		a.FromStatus,
		a.ToStatus,
		a.IsSkip,
		a.Value,
		a.ActorID,
		a.OccurredAt,
	)
	if err != nil {
		return core.StoreError("append lead activity", err)
	}

	return nil
}

// ListActivities returns the trail oldest first, the order scoring uses.
func (r *repository) ListActivities(
	ctx context.Context,
	leadID string,
) ([]Activity, error) {
	query := `
		SELECT a.id, a.lead_id, a.activity_type, a.outcome, a.subject,
		       a.description, a.duration_minutes, a.next_action,
		       a.from_status, a.to_status, a.is_skip, a.value, a.actor_id,
		       (SELECT u.first_name || ' ' || u.last_name
		          FROM users u WHERE u.id = a.actor_id) AS actor_name,
		       a.occurred_at
		FROM lead_activities a
		WHERE a.lead_id = $1
		ORDER BY a.occurred_at ASC, a.id ASC`

	activities := []Activity{}
	if err := r.db.SelectContext(ctx, &activities, query, leadID); err != nil {
		return nil, core.StoreError("list lead activities", err)
	}

	return activities, nil
}

func (r *repository) ListSources(ctx context.Context) ([]Source, error) {
	query := `
		SELECT id, name, description, is_active
		FROM lead_sources
		WHERE is_active
		ORDER BY name`

	sources := []Source{}
	if err := r.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, core.StoreError("list lead sources", err)
	}

	return sources, nil
}

func (r *repository) ListStatuses(ctx context.Context) ([]Status, error) {
	query := `
		SELECT key, name, color, sort_order, is_terminal
		FROM lead_statuses
		ORDER BY sort_order`

	statuses := []Status{}
	if err := r.db.SelectContext(ctx, &statuses, query); err != nil {
		return nil, core.StoreError("list lead statuses", err)
	}

	return statuses, nil
}

// CountByStatus counts live leads per stage key.
func (r *repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*) AS total
		FROM leads
		WHERE deleted_at IS NULL
		GROUP BY status`

	var rows []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, core.StoreError("count leads by status", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *repository) UpsertStatuses(ctx context.Context, statuses []Status) error {
	query := `
		INSERT INTO lead_statuses (key, name, color, sort_order, is_terminal)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET name = EXCLUDED.name,
		    color = EXCLUDED.color,
		    sort_order = EXCLUDED.sort_order,
		    is_terminal = EXCLUDED.is_terminal`

	for _, st := range statuses {
		if _, err := r.db.ExecContext(ctx, query,
			st.Key, st.Name, st.Color, st.SortOrder, st.IsTerminal,
		); err != nil {
			return core.StoreError("upsert lead status", err)
		}
	}

	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
