// AngelaMos | 2026
// dto.go

package contact

import (
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type CreateContactRequest struct {
	FirstName    string  `json:"first_name"     validate:"required,min=1,max=100"`
	LastName     string  `json:"last_name"      validate:"required,min=1,max=100"`
	Email        *string `json:"email"          validate:"omitempty,email,max=255"`
	Phone        *string `json:"phone"          validate:"omitempty,max=50"`
	JobTitle     *string `json:"job_title"      validate:"omitempty,max=100"`
	CompanyName  *string `json:"company_name"   validate:"omitempty,max=255"`
	Category     string  `json:"category"       validate:"omitempty,oneof=client prospect partner vendor other"`
	Notes        *string `json:"notes"          validate:"omitempty,max=5000"`
	SourceLeadID *string `json:"source_lead_id" validate:"omitempty,uuid"`
}

// UpdateContactRequest is the allow-list of editable fields. Nil means
// unchanged.
type UpdateContactRequest struct {
	FirstName   *string `json:"first_name"   validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name"    validate:"omitempty,min=1,max=100"`
	Email       *string `json:"email"        validate:"omitempty,email,max=255"`
	Phone       *string `json:"phone"        validate:"omitempty,max=50"`
	JobTitle    *string `json:"job_title"    validate:"omitempty,max=100"`
	CompanyName *string `json:"company_name" validate:"omitempty,max=255"`
	Category    *string `json:"category"     validate:"omitempty,oneof=client prospect partner vendor other"`
	Notes       *string `json:"notes"        validate:"omitempty,max=5000"`
}

func (r UpdateContactRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Email == nil &&
		r.Phone == nil && r.JobTitle == nil && r.CompanyName == nil &&
		r.Category == nil && r.Notes == nil
}

type ListParams struct {
	core.PageParams
	Search   string
	Category string
}

type ContactResponse struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	FullName     string    `json:"full_name"`
	Email        *string   `json:"email"`
	Phone        *string   `json:"phone"`
	JobTitle     *string   `json:"job_title"`
	CompanyName  *string   `json:"company_name"`
	Category     string    `json:"category"`
	Notes        *string   `json:"notes"`
	SourceLeadID *string   `json:"source_lead_id"`
	CreatedBy    *string   `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToContactResponse(c *Contact) ContactResponse {
	return ContactResponse{
		ID:           c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		FullName:     c.FullName(),
		Email:        c.Email,
		Phone:        c.Phone,
		JobTitle:     c.JobTitle,
		CompanyName:  c.CompanyName,
		Category:     c.Category,
		Notes:        c.Notes,
		SourceLeadID: c.SourceLeadID,
		CreatedBy:    c.CreatedBy,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func ToContactResponseList(contacts []Contact) []ContactResponse {
	out := make([]ContactResponse, 0, len(contacts))
	for i := range contacts {
		out = append(out, ToContactResponse(&contacts[i]))
	}
	return out
}
