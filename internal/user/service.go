// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/crm-backend/internal/activity"
	"github.com/carterperez-dev/crm-backend/internal/auth"
	"github.com/carterperez-dev/crm-backend/internal/core"
)

const (
	defaultTimezone = "UTC"
	defaultLanguage = "en"
)

type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

type Service struct {
	repo         Repository
	defaultRole  string
	recorder     ActivityRecorder
	queryTimeout time.Duration
}

func NewService(
	repo Repository,
	defaultRole string,
	recorder ActivityRecorder,
	queryTimeout time.Duration,
) *Service {
	return &Service{
		repo:         repo,
		defaultRole:  defaultRole,
		recorder:     recorder,
		queryTimeout: queryTimeout,
	}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// Register creates a self-service account holding the default role.
func (s *Service) Register(
	ctx context.Context,
	nu auth.NewUser,
) (*auth.UserInfo, error) {
	user := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(nu.Email),
		PasswordHash: nu.PasswordHash,
		FirstName:    strings.TrimSpace(nu.FirstName),
		LastName:     strings.TrimSpace(nu.LastName),
		Timezone:     defaultTimezone,
		Language:     defaultLanguage,
		Status:       StatusActive,
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, user, s.defaultRole, nil); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) RecordFailedLogin(
	ctx context.Context,
	userID string,
	now time.Time,
	maxAttempts int,
	lockUntil time.Time,
) (auth.LockoutState, error) {
	failure, err := s.repo.RecordFailedLogin(ctx, userID, now, maxAttempts, lockUntil)
	if err != nil {
		return auth.LockoutState{}, err
	}

	return auth.LockoutState{
		FailedAttempts: failure.FailedAttempts,
		LockedUntil:    failure.LockedUntil,
	}, nil
}

func (s *Service) ResetLoginFailures(
	ctx context.Context,
	userID string,
	now time.Time,
) error {
	return s.repo.ResetLoginFailures(ctx, userID, now)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.ChangePassword(ctx, userID, passwordHash)
}

func (s *Service) SetPasswordResetToken(
	ctx context.Context,
	userID, tokenHash string,
	expiresAt time.Time,
) error {
	return s.repo.SetPasswordResetToken(ctx, userID, tokenHash, expiresAt)
}

func (s *Service) GetByResetTokenHash(
	ctx context.Context,
	tokenHash string,
	now time.Time,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByResetTokenHash(ctx, tokenHash, now)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

func (s *Service) ResetPassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.ResetPassword(ctx, userID, passwordHash)
}

// CreateUser provisions an account on behalf of actorID. An empty role falls
// back to the default role.
func (s *Service) CreateUser(
	ctx context.Context,
	actorID string,
	req CreateUserRequest,
) (*User, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = s.defaultRole
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		JobTitle:     req.JobTitle,
		Phone:        req.Phone,
		Timezone:     defaultTimezone,
		Language:     defaultLanguage,
		Status:       StatusActive,
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, user, role, &actorID); err != nil {
		return nil, err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeUserCreated,
		activity.SubjectUser,
		user.ID,
		fmt.Sprintf("Created user %s", user.FullName()),
	).With("role", role))

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repo.GetByID(ctx, id)
}

// UpdateUser applies only the allow-listed profile fields.
func (s *Service) UpdateUser(
	ctx context.Context,
	actorID, id string,
	req UpdateUserRequest,
) (*User, error) {
	if req.Empty() {
		return nil, core.InvalidField("body", "no updatable fields provided")
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, fmt.Errorf("update user: %w", core.ErrNotFound)
	}

	changed := []string{}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
		changed = append(changed, "first_name")
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
		changed = append(changed, "last_name")
	}
	if req.JobTitle != nil {
		user.JobTitle = req.JobTitle
		changed = append(changed, "job_title")
	}
	if req.Phone != nil {
		user.Phone = req.Phone
		changed = append(changed, "phone")
	}
	if req.Timezone != nil {
		user.Timezone = *req.Timezone
		changed = append(changed, "timezone")
	}
	if req.Language != nil {
		user.Language = *req.Language
		changed = append(changed, "language")
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeUserUpdated,
		activity.SubjectUser,
		user.ID,
		"Updated user profile",
	).With("fields", changed))

	return user, nil
}

// AssignRole replaces the target's active role. Permissions change on the
// next request since they are resolved per request.
func (s *Service) AssignRole(
	ctx context.Context,
	actorID, id string,
	req AssignRoleRequest,
) (*User, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return nil, core.InvalidField("expires_at", "must be in the future")
	}

	if err := s.repo.AssignRole(ctx, id, req.Role, &actorID, req.ExpiresAt); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeUserRoleAssigned,
		activity.SubjectUser,
		id,
		fmt.Sprintf("Assigned role %s", req.Role),
	).With("role", req.Role))

	return user, nil
}

// TerminateUser soft deletes the account. Its role assignments and sessions
// are deactivated with it.
func (s *Service) TerminateUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return fmt.Errorf("terminate user: cannot terminate yourself: %w", core.ErrForbidden)
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Terminate(ctx, id); err != nil {
		return err
	}

	s.record(ctx, activity.New(
		actorID,
		activity.TypeUserTerminated,
		activity.SubjectUser,
		id,
		"Terminated user",
	))

	return nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repo.List(ctx, params)
}

func (s *Service) record(ctx context.Context, entry activity.Entry) {
	if s.recorder != nil {
		s.recorder.Record(ctx, entry)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Status:       u.Status,
		Role:         u.RoleName(),
		LockedUntil:  u.LockedUntil,
	}
}

var _ auth.UserProvider = (*Service)(nil)
