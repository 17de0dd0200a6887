// AngelaMos | 2026
// entity.go

package contact

import (
	"time"
)

type Contact struct {
	ID           string    `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        *string   `db:"email"`
	Phone        *string   `db:"phone"`
	JobTitle     *string   `db:"job_title"`
	CompanyName  *string   `db:"company_name"`
	Category     string    `db:"category"`
	Notes        *string   `db:"notes"`
	SourceLeadID *string   `db:"source_lead_id"`
	CreatedBy    *string   `db:"created_by"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const (
	CategoryClient   = "client"
	CategoryProspect = "prospect"
	CategoryPartner  = "partner"
	CategoryVendor   = "vendor"
	CategoryOther    = "other"
)

func (c *Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}
