// AngelaMos | 2026
// repository.go

package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, c *Contact) error
	GetByID(ctx context.Context, id string) (*Contact, error)
	List(ctx context.Context, params ListParams) ([]Contact, int, error)
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const contactColumns = `
	id, first_name, last_name, email, phone, job_title, company_name,
	category, notes, source_lead_id, created_by, created_at, updated_at`

func (r *repository) Create(ctx context.Context, c *Contact) error {
	query := `
		INSERT INTO contacts (
			id, first_name, last_name, email, phone, job_title, company_name,
			category, notes, source_lead_id, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.JobTitle,
		c.CompanyName,
		c.Category,
		c.Notes,
		c.SourceLeadID,
		c.CreatedBy,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create contact: %w",
				core.InvalidField("source_lead_id", "references an unknown lead"))
		}
		return core.StoreError("create contact", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`

	var c Contact
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get contact: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, core.StoreError("get contact", err)
	}

	return &c, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Contact, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, params.Category)
		argIdx++
	}

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR company_name ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM contacts WHERE "+whereClause, args...); err != nil {
		return nil, 0, core.StoreError("count contacts", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM contacts
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		contactColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	contacts := []Contact{}
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, 0, core.StoreError("list contacts", err)
	}

	return contacts, total, nil
}

func (r *repository) Update(ctx context.Context, c *Contact) error {
	query := `
		UPDATE contacts
		SET first_name = $2, last_name = $3, email = $4, phone = $5,
		    job_title = $6, company_name = $7, category = $8, notes = $9,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &c.UpdatedAt, query,
		c.ID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.JobTitle,
		c.CompanyName,
		c.Category,
		c.Notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update contact: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.StoreError("update contact", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return core.StoreError("delete contact", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return core.StoreError("delete contact", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete contact: %w", core.ErrNotFound)
	}

	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
