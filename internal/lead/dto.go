// AngelaMos | 2026
// dto.go

package lead

import (
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

// CreateLeadRequest leaves first_name, last_name and email untagged for
// presence; the service reports the first missing one by name.
type CreateLeadRequest struct {
	FirstName      string     `json:"first_name"        validate:"max=100"`
	LastName       string     `json:"last_name"         validate:"max=100"`
	Email          string     `json:"email"             validate:"omitempty,email,max=255"`
	Phone          *string    `json:"phone"             validate:"omitempty,max=50"`
	Company        *string    `json:"company"           validate:"omitempty,max=255"`
	JobTitle       *string    `json:"job_title"         validate:"omitempty,max=100"`
	Website        *string    `json:"website"           validate:"omitempty,url,max=255"`
	LinkedInURL    *string    `json:"linkedin_url"      validate:"omitempty,url,max=255"`
	Industry       *string    `json:"industry"          validate:"omitempty,max=100"`
	CompanySize    *string    `json:"company_size"      validate:"omitempty,max=50"`
	BudgetRange    *string    `json:"budget_range"      validate:"omitempty,max=50"`
	DecisionMaker  bool       `json:"decision_maker"`
	SourceID       *string    `json:"lead_source_id"    validate:"omitempty,uuid"`
	Temperature    string     `json:"temperature"       validate:"omitempty,oneof=cold warm hot"`
	Priority       string     `json:"priority"          validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo     *string    `json:"assigned_to"       validate:"omitempty,uuid"`
	Notes          *string    `json:"notes"             validate:"omitempty,max=5000"`
	Tags           []string   `json:"tags"              validate:"omitempty,max=20,dive,min=1,max=50"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
}

// UpdateLeadRequest is the allow-list of editable fields. Stage and score
// only change through transitions and activities. Nil means unchanged.
type UpdateLeadRequest struct {
	FirstName      *string    `json:"first_name"        validate:"omitempty,min=1,max=100"`
	LastName       *string    `json:"last_name"         validate:"omitempty,min=1,max=100"`
	Email          *string    `json:"email"             validate:"omitempty,email,max=255"`
	Phone          *string    `json:"phone"             validate:"omitempty,max=50"`
	Company        *string    `json:"company"           validate:"omitempty,max=255"`
	JobTitle       *string    `json:"job_title"         validate:"omitempty,max=100"`
	Website        *string    `json:"website"           validate:"omitempty,url,max=255"`
	LinkedInURL    *string    `json:"linkedin_url"      validate:"omitempty,url,max=255"`
	Industry       *string    `json:"industry"          validate:"omitempty,max=100"`
	CompanySize    *string    `json:"company_size"      validate:"omitempty,max=50"`
	BudgetRange    *string    `json:"budget_range"      validate:"omitempty,max=50"`
	DecisionMaker  *bool      `json:"decision_maker"`
	SourceID       *string    `json:"lead_source_id"    validate:"omitempty,uuid"`
	Temperature    *string    `json:"temperature"       validate:"omitempty,oneof=cold warm hot"`
	Priority       *string    `json:"priority"          validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo     *string    `json:"assigned_to"       validate:"omitempty,uuid"`
	Notes          *string    `json:"notes"             validate:"omitempty,max=5000"`
	Tags           *[]string  `json:"tags"              validate:"omitempty,max=20,dive,min=1,max=50"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
}

func (r UpdateLeadRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Email == nil &&
		r.Phone == nil && r.Company == nil && r.JobTitle == nil &&
		r.Website == nil && r.LinkedInURL == nil && r.Industry == nil &&
		r.CompanySize == nil && r.BudgetRange == nil && r.DecisionMaker == nil &&
		r.SourceID == nil && r.Temperature == nil && r.Priority == nil &&
		r.AssignedTo == nil && r.Notes == nil && r.Tags == nil &&
		r.NextFollowUpAt == nil
}

type TransitionRequest struct {
	ToStatus string  `json:"to_status" validate:"required,max=50"`
	Note     *string `json:"note"      validate:"omitempty,max=1000"`
}

type ActivityRequest struct {
	Type            string     `json:"activity_type"    validate:"required,max=50"`
	Outcome         string     `json:"outcome"          validate:"omitempty,oneof=positive neutral negative"`
	Subject         string     `json:"subject"          validate:"required,max=255"`
	Description     *string    `json:"description"      validate:"omitempty,max=5000"`
	DurationMinutes int        `json:"duration_minutes" validate:"min=0,max=1440"`
	NextAction      *string    `json:"next_action"      validate:"omitempty,max=255"`
	OccurredAt      *time.Time `json:"activity_date"`
}

type ConvertRequest struct {
	ConversionType  string  `json:"conversion_type"  validate:"omitempty,max=50"`
	ConversionValue float64 `json:"conversion_value" validate:"min=0"`
	Notes           *string `json:"notes"            validate:"omitempty,max=1000"`
}

type ListParams struct {
	core.PageParams
	Search      string
	Status      string
	SourceID    string
	AssignedTo  string
	Temperature string
	Priority    string
	SortBy      string
	SortOrder   string
}

type LeadResponse struct {
	ID                   string     `json:"id"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	FullName             string     `json:"full_name"`
	Email                string     `json:"email"`
	Phone                *string    `json:"phone"`
	Company              *string    `json:"company"`
	JobTitle             *string    `json:"job_title"`
	Website              *string    `json:"website"`
	LinkedInURL          *string    `json:"linkedin_url"`
	Industry             *string    `json:"industry"`
	CompanySize          *string    `json:"company_size"`
	BudgetRange          *string    `json:"budget_range"`
	DecisionMaker        bool       `json:"decision_maker"`
	SourceID             *string    `json:"lead_source_id"`
	SourceName           *string    `json:"source_name"`
	Status               string     `json:"status"`
	StatusName           string     `json:"status_name"`
	StatusColor          string     `json:"status_color"`
	Temperature          string     `json:"temperature"`
	Priority             string     `json:"priority"`
	Score                int        `json:"lead_score"`
	AssignedTo           *string    `json:"assigned_to"`
	CreatedBy            *string    `json:"created_by"`
	Notes                *string    `json:"notes"`
	Tags                 []string   `json:"tags"`
	NextFollowUpAt       *time.Time `json:"next_follow_up_at"`
	LastContactAt        *time.Time `json:"last_contact_at"`
	DaysSinceLastContact int        `json:"days_since_last_contact"`
	ConversionType       *string    `json:"conversion_type"`
	ConversionValue      *float64   `json:"conversion_value"`
	ConvertedAt          *time.Time `json:"converted_at"`
	Version              int        `json:"version"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type ActivityResponse struct {
	ID              string    `json:"id"`
	LeadID          string    `json:"lead_id"`
	Type            string    `json:"activity_type"`
	Outcome         string    `json:"outcome"`
	Subject         *string   `json:"subject"`
	Description     *string   `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	NextAction      *string   `json:"next_action"`
	FromStatus      *string   `json:"from_status,omitempty"`
	ToStatus        *string   `json:"to_status,omitempty"`
	IsSkip          bool      `json:"is_skip"`
	Value           *float64  `json:"value,omitempty"`
	ActorID         *string   `json:"created_by"`
	ActorName       *string   `json:"created_by_name"`
	OccurredAt      time.Time `json:"activity_date"`
}

type SourceResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type StatusResponse struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	SortOrder  int    `json:"sort_order"`
	IsTerminal bool   `json:"is_terminal"`
}

func ToLeadResponse(l *Lead, p *Pipeline, now time.Time) LeadResponse {
	resp := LeadResponse{
		ID:                   l.ID,
		FirstName:            l.FirstName,
		LastName:             l.LastName,
		FullName:             l.FullName(),
		Email:                l.Email,
		Phone:                l.Phone,
		Company:              l.Company,
		JobTitle:             l.JobTitle,
		Website:              l.Website,
		LinkedInURL:          l.LinkedInURL,
		Industry:             l.Industry,
		CompanySize:          l.CompanySize,
		BudgetRange:          l.BudgetRange,
		DecisionMaker:        l.DecisionMaker,
		SourceID:             l.SourceID,
		SourceName:           l.SourceName,
		Status:               l.Status,
		StatusName:           l.Status,
		Temperature:          l.Temperature,
		Priority:             l.Priority,
		Score:                l.Score,
		AssignedTo:           l.AssignedTo,
		CreatedBy:            l.CreatedBy,
		Notes:                l.Notes,
		Tags:                 []string(l.Tags),
		NextFollowUpAt:       l.NextFollowUpAt,
		LastContactAt:        l.LastContactAt,
		DaysSinceLastContact: l.DaysSinceLastContact(now),
		ConversionType:       l.ConversionType,
		ConversionValue:      l.ConversionValue,
		ConvertedAt:          l.ConvertedAt,
		Version:              l.Version,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}

	if st, ok := p.Stage(l.Status); ok {
		resp.StatusName = st.Name
		resp.StatusColor = st.Color
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}

	return resp
}

func ToLeadResponseList(leads []Lead, p *Pipeline, now time.Time) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for i := range leads {
		out = append(out, ToLeadResponse(&leads[i], p, now))
	}
	return out
}

func ToActivityResponse(a *Activity) ActivityResponse {
	return ActivityResponse{
		ID:              a.ID,
		LeadID:          a.LeadID,
		Type:            a.Type,
		Outcome:         a.Outcome,
		Subject:         a.Subject,
		Description:     a.Description,
		DurationMinutes: a.DurationMinutes,
		NextAction:      a.NextAction,
		FromStatus:      a.FromStatus,
		ToStatus:        a.ToStatus,
		IsSkip:          a.IsSkip,
		Value:           a.Value,
		ActorID:         a.ActorID,
		ActorName:       a.ActorName,
		OccurredAt:      a.OccurredAt,
	}
}

func ToActivityResponseList(activities []Activity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(activities))
	for i := range activities {
		out = append(out, ToActivityResponse(&activities[i]))
	}
	return out
}

func ToSourceResponseList(sources []Source) []SourceResponse {
	out := make([]SourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, SourceResponse{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
		})
	}
	return out
}

func ToStatusResponseList(statuses []Status) []StatusResponse {
	out := make([]StatusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, StatusResponse{
			Key:        s.Key,
			Name:       s.Name,
			Color:      s.Color,
			SortOrder:  s.SortOrder,
			IsTerminal: s.IsTerminal,
		})
	}
	return out
}
