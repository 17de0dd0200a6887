// AngelaMos | 2026
// repository.go

package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 200
	OrderDesc         = "desc"
	OrderAsc          = "asc"
)

type Filter struct {
	SubjectType string
	SubjectID   string
	ActorID     string
	Type        string
	Since       *time.Time
	Until       *time.Time
	Limit       int
	Order       string
}

func (f *Filter) Normalize() {
	if f.Limit < 1 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if !strings.EqualFold(f.Order, OrderAsc) {
		f.Order = OrderDesc
	} else {
		f.Order = OrderAsc
	}
}

type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter Filter) ([]Entry, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.ID == "" {
		entry.ID = NewID(entry.CreatedAt)
	}
	if entry.Metadata == nil {
		entry.Metadata = core.JSONMap{}
	}

	query := `
		INSERT INTO activities (id, actor_id, type, subject_type, subject_id,
		                        description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Type,
		entry.SubjectType,
		entry.SubjectID,
		entry.Description,
		entry.Metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return core.StoreError("append activity", err)
	}

	return nil
}

func (r *repository) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	filter.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	add := func(clause string, value any) {
		conditions = append(conditions, fmt.Sprintf(clause, argIdx))
		args = append(args, value)
		argIdx++
	}

	if filter.SubjectType != "" {
		add("subject_type = $%d", filter.SubjectType)
	}
	if filter.SubjectID != "" {
		add("subject_id = $%d", filter.SubjectID)
	}
	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Since != nil {
		add("created_at >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		add("created_at < $%d", *filter.Until)
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	direction := "DESC"
	if filter.Order == OrderAsc {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, type, subject_type, subject_id,
		       description, metadata, created_at
		FROM activities
		WHERE %s
		ORDER BY created_at %s, id %s
		LIMIT $%d`,
		whereClause, direction, direction, argIdx)

	args = append(args, filter.Limit)

	entries := []Entry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, core.StoreError("query activities", err)
	}

	return entries, nil
}
