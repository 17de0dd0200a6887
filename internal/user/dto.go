// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type CreateUserRequest struct {
	Email     string  `json:"email"      validate:"required,email,max=255"`
	Password  string  `json:"password"   validate:"required,min=8,max=128"`
	FirstName string  `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string  `json:"last_name"  validate:"required,min=1,max=100"`
	JobTitle  *string `json:"job_title"  validate:"omitempty,max=100"`
	Phone     *string `json:"phone"      validate:"omitempty,max=50"`
	Role      string  `json:"role"       validate:"omitempty,max=50"`
}

// UpdateUserRequest carries the allow-listed profile fields. Nil means
// unchanged.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name"  validate:"omitempty,min=1,max=100"`
	JobTitle  *string `json:"job_title"  validate:"omitempty,max=100"`
	Phone     *string `json:"phone"      validate:"omitempty,max=50"`
	Timezone  *string `json:"timezone"   validate:"omitempty,max=64"`
	Language  *string `json:"language"   validate:"omitempty,min=2,max=10"`
}

func (r UpdateUserRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.JobTitle == nil &&
		r.Phone == nil && r.Timezone == nil && r.Language == nil
}

type AssignRoleRequest struct {
	Role      string     `json:"role"       validate:"required,max=50"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	FullName    string     `json:"full_name"`
	JobTitle    *string    `json:"job_title"`
	Phone       *string    `json:"phone"`
	Timezone    string     `json:"timezone"`
	Language    string     `json:"language"`
	Status      string     `json:"status"`
	Role        string     `json:"role,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ListUsersParams struct {
	core.PageParams
	Search string
	Status string
	Role   string
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		JobTitle:    u.JobTitle,
		Phone:       u.Phone,
		Timezone:    u.Timezone,
		Language:    u.Language,
		Status:      u.Status,
		Role:        u.RoleName(),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
