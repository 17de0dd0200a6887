// AngelaMos | 2026
// entity.go

package lead

import (
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type Lead struct {
	ID              string           `db:"id"`
	FirstName       string           `db:"first_name"`
	LastName        string           `db:"last_name"`
	Email           string           `db:"email"`
	Phone           *string          `db:"phone"`
	Company         *string          `db:"company"`
	JobTitle        *string          `db:"job_title"`
	Website         *string          `db:"website"`
	LinkedInURL     *string          `db:"linkedin_url"`
	Industry        *string          `db:"industry"`
	CompanySize     *string          `db:"company_size"`
	BudgetRange     *string          `db:"budget_range"`
	DecisionMaker   bool             `db:"decision_maker"`
	SourceID        *string          `db:"source_id"`
	SourceName      *string          `db:"source_name"`
	Status          string           `db:"status"`
	Temperature     string           `db:"temperature"`
	Priority        string           `db:"priority"`
	Score           int              `db:"score"`
	AssignedTo      *string          `db:"assigned_to"`
	CreatedBy       *string          `db:"created_by"`
	Notes           *string          `db:"notes"`
	Tags            core.JSONStrings `db:"tags"`
	NextFollowUpAt  *time.Time       `db:"next_follow_up_at"`
	LastContactAt   *time.Time       `db:"last_contact_at"`
	ConversionType  *string          `db:"conversion_type"`
	ConversionValue *float64         `db:"conversion_value"`
	ConvertedAt     *time.Time       `db:"converted_at"`
	Version         int              `db:"version"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
	DeletedAt       *time.Time       `db:"deleted_at"`
}

func (l *Lead) FullName() string {
	return l.FirstName + " " + l.LastName
}

// DaysSinceLastContact counts whole days since the last logged contact, or
// since creation when the lead was never contacted.
func (l *Lead) DaysSinceLastContact(now time.Time) int {
	since := l.CreatedAt
	if l.LastContactAt != nil {
		since = *l.LastContactAt
	}
	if now.Before(since) {
		return 0
	}
	return int(now.Sub(since) / (24 * time.Hour))
}

const (
	TemperatureCold = "cold"
	TemperatureWarm = "warm"
	TemperatureHot  = "hot"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Activity is one entry in a lead's trail. Stage changes and conversions
// are recorded here by the engine; other types come from users.
type Activity struct {
	ID              string    `db:"id"`
	LeadID          string    `db:"lead_id"`
	Type            string    `db:"activity_type"`
	Outcome         string    `db:"outcome"`
	Subject         *string   `db:"subject"`
	Description     *string   `db:"description"`
	DurationMinutes int       `db:"duration_minutes"`
	NextAction      *string   `db:"next_action"`
	FromStatus      *string   `db:"from_status"`
	ToStatus        *string   `db:"to_status"`
	IsSkip          bool      `db:"is_skip"`
	Value           *float64  `db:"value"`
	ActorID         *string   `db:"actor_id"`
	ActorName       *string   `db:"actor_name"`
	OccurredAt      time.Time `db:"occurred_at"`
}

const (
	ActivityStageChanged = "stage_changed"
	ActivityConverted    = "converted"
)

const (
	OutcomePositive = "positive"
	OutcomeNeutral  = "neutral"
	OutcomeNegative = "negative"
)

type Source struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	Description *string `db:"description"`
	IsActive    bool    `db:"is_active"`
}

// Status mirrors a configured stage in the lead_statuses table.
type Status struct {
	Key        string `db:"key"`
	Name       string `db:"name"`
	Color      string `db:"color"`
	SortOrder  int    `db:"sort_order"`
	IsTerminal bool   `db:"is_terminal"`
}
