// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/crm-backend/internal/activity"
	"github.com/carterperez-dev/crm-backend/internal/config"
	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/metrics"
	"github.com/carterperez-dev/crm-backend/internal/middleware"
	"github.com/carterperez-dev/crm-backend/internal/rbac"
)

var (
	ErrInvalidCredentials   = fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
	ErrRegistrationDisabled = fmt.Errorf("registration disabled: %w", core.ErrForbidden)
	ErrInvalidResetToken    = core.InvalidField("token", "invalid or expired reset token")
)

type UserInfo struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Status       string
	Role         string
	LockedUntil  *time.Time
}

func (u *UserInfo) IsActive() bool {
	return u.Status == "active"
}

type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Register(ctx context.Context, u NewUser) (*UserInfo, error)
	RecordFailedLogin(
		ctx context.Context,
		userID string,
		now time.Time,
		maxAttempts int,
		lockUntil time.Time,
	) (LockoutState, error)
	ResetLoginFailures(ctx context.Context, userID string, now time.Time) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	// ChangePassword stores the hash and deactivates every session of the
	// user atomically.
	ChangePassword(ctx context.Context, userID, passwordHash string) error
	SetPasswordResetToken(
		ctx context.Context,
		userID, tokenHash string,
		expiresAt time.Time,
	) error
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*UserInfo, error)
	ResetPassword(ctx context.Context, userID, passwordHash string) error
}

type PermissionSource interface {
	PermissionsFor(ctx context.Context, userID string) (rbac.Set, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

type Service struct {
	repo         Repository
	jwt          *JWTManager
	users        UserProvider
	permissions  PermissionSource
	recorder     ActivityRecorder
	notifier     ResetNotifier
	cfg          config.AuthConfig
	queryTimeout time.Duration
	now          func() time.Time
}

type Option func(*Service)

func WithRecorder(r ActivityRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithNotifier(n ResetNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) { s.queryTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	users UserProvider,
	permissions PermissionSource,
	cfg config.AuthConfig,
	opts ...Option,
) *Service {
	s := &Service{
		repo:        repo,
		jwt:         jwt,
		users:       users,
		permissions: permissions,
		notifier:    NewLogNotifier(slog.Default(), false),
		cfg:         cfg,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type IssuedSession struct {
	Token        string
	SessionToken string
	Session      *Session
}

// Issue signs a token and persists its session. The session secret is
// returned once and only its hash is stored. A storage failure fails the
// issue; no token is handed out without a session row.
func (s *Service) Issue(
	ctx context.Context,
	user *UserInfo,
	rememberMe bool,
	client ClientInfo,
) (*IssuedSession, error) {
	now := s.now().UTC()

	secret, err := core.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	session := &Session{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		SessionTokenHash: core.HashToken(secret),
		IPAddress:        optional(client.IPAddress),
		UserAgent:        optional(client.UserAgent),
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.jwt.SessionTTL(rememberMe)),
	}

	token, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:    user.ID,
		SessionID: session.ID,
		Email:     user.Email,
		ExpiresAt: session.ExpiresAt,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &IssuedSession{
		Token:        token,
		SessionToken: secret,
		Session:      session,
	}, nil
}

func (s *Service) Verify(ctx context.Context, token string) (*AccessTokenClaims, error) {
	return s.jwt.VerifyAccessToken(ctx, token)
}

func (s *Service) IsSessionActive(ctx context.Context, sessionID string) (bool, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repo.IsActive(ctx, sessionID, s.now().UTC())
}

// Authenticate verifies the token and then requires its session to still be
// active, so revocation takes effect before the token expires.
func (s *Service) Authenticate(
	ctx context.Context,
	token string,
) (*middleware.Principal, error) {
	claims, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	active, err := s.IsSessionActive(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !active {
		return nil, fmt.Errorf("authenticate: %w", core.ErrTokenRevoked)
	}

	return &middleware.Principal{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Email:     claims.Email,
	}, nil
}

// Revoke deactivates the session holding sessionToken. Unknown or already
// revoked tokens are not an error.
func (s *Service) Revoke(ctx context.Context, sessionToken string) error {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	session, err := s.repo.FindByTokenHash(ctx, core.HashToken(sessionToken))
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("revoke: %w", err)
	}

	return s.repo.Revoke(ctx, session.ID)
}

func (s *Service) RevokeAllForUser(ctx context.Context, userID string) error {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}
	return nil
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	client ClientInfo,
) (*LoginResponse, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			metrics.ObserveLogin(metrics.LoginInvalid)
			return nil, ErrInvalidCredentials
		}
		metrics.ObserveLogin(metrics.LoginStorageError)
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.IsActive() {
		//nolint:errcheck // same cost as a real verification
		_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
		metrics.ObserveLogin(metrics.LoginInvalid)
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()

	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		metrics.ObserveLogin(metrics.LoginLocked)
		return nil, fmt.Errorf("login: %w", core.ErrAccountLocked)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, s.recordFailure(ctx, user, now)
	}

	if err := s.users.ResetLoginFailures(ctx, user.ID, now); err != nil {
		metrics.ObserveLogin(metrics.LoginStorageError)
		return nil, fmt.Errorf("reset login failures: %w", err)
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
			slog.Warn("password rehash failed", "user_id", user.ID, "error", err)
		}
	}

	issued, err := s.Issue(ctx, user, req.RememberMe, client)
	if err != nil {
		metrics.ObserveLogin(metrics.LoginStorageError)
		return nil, err
	}

	metrics.ObserveLogin(metrics.LoginSuccess)
	s.record(ctx, activity.New(
		user.ID,
		activity.TypeUserLogin,
		activity.SubjectUser,
		user.ID,
		"User logged in",
	).With("ip_address", client.IPAddress).With("remember_me", req.RememberMe))

	return s.loginResponse(user, issued), nil
}

func (s *Service) recordFailure(ctx context.Context, user *UserInfo, now time.Time) error {
	state, err := s.users.RecordFailedLogin(
		ctx,
		user.ID,
		now,
		s.cfg.MaxLoginAttempts,
		now.Add(s.cfg.LockoutDuration),
	)
	if err != nil {
		metrics.ObserveLogin(metrics.LoginStorageError)
		return fmt.Errorf("record failed login: %w", err)
	}

	if state.LockedUntil != nil && state.LockedUntil.After(now) {
		metrics.ObserveLogin(metrics.LoginLocked)
		slog.Warn("account locked after failed logins",
			"user_id", user.ID,
			"failed_attempts", state.FailedAttempts,
			"locked_until", state.LockedUntil,
		)
		return fmt.Errorf("login: %w", core.ErrAccountLocked)
	}

	metrics.ObserveLogin(metrics.LoginInvalid)
	return ErrInvalidCredentials
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	client ClientInfo,
) (*LoginResponse, error) {
	if !s.cfg.AllowRegistration {
		return nil, ErrRegistrationDisabled
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.Register(ctx, NewUser{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	issued, err := s.Issue(ctx, user, false, client)
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity.New(
		user.ID,
		activity.TypeUserRegistered,
		activity.SubjectUser,
		user.ID,
		"User registered",
	))

	return s.loginResponse(user, issued), nil
}

// Logout revokes the session named by sessionToken, or the caller's current
// session when no token is given.
func (s *Service) Logout(
	ctx context.Context,
	principal *middleware.Principal,
	sessionToken string,
) error {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	sessionID := principal.SessionID

	if sessionToken != "" {
		session, err := s.repo.FindByTokenHash(ctx, core.HashToken(sessionToken))
		switch {
		case errors.Is(err, core.ErrNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("logout: %w", err)
		case session.UserID != principal.UserID:
			return fmt.Errorf("logout: %w", core.ErrForbidden)
		}
		sessionID = session.ID
	}

	if err := s.repo.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.record(ctx, activity.New(
		principal.UserID,
		activity.TypeUserLogout,
		activity.SubjectSession,
		sessionID,
		"User logged out",
	))

	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	s.record(ctx, activity.New(
		userID,
		activity.TypeUserLogout,
		activity.SubjectUser,
		userID,
		"User logged out of all sessions",
	).With("all_sessions", true))

	return nil
}

func (s *Service) ListSessions(
	ctx context.Context,
	userID, currentSessionID string,
) ([]SessionResponse, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	sessions, err := s.repo.ListActiveForUser(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionResponse{
			ID:        sess.ID,
			UserAgent: sess.UserAgent,
			IPAddress: sess.IPAddress,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
			Current:   sess.ID == currentSessionID,
		})
	}

	return out, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	if session.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.repo.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.record(ctx, activity.New(
		userID,
		activity.TypeSessionRevoked,
		activity.SubjectSession,
		sessionID,
		"Session revoked",
	))

	return nil
}

// ChangePassword replaces the password and revokes every session, the
// caller's included.
func (s *Service) ChangePassword(
	ctx context.Context,
	userID string,
	req ChangePasswordRequest,
) error {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.ChangePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.record(ctx, activity.New(
		userID,
		activity.TypePasswordChanged,
		activity.SubjectUser,
		userID,
		"Password changed",
	))

	return nil
}

// ForgotPassword never reports whether the account exists. Failures are
// logged and swallowed.
func (s *Service) ForgotPassword(ctx context.Context, email string) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			slog.Error("forgot password lookup failed", "error", err)
		}
		return
	}
	if !user.IsActive() {
		return
	}

	token, err := core.GenerateSecureToken(32)
	if err != nil {
		slog.Error("generate reset token failed", "error", err)
		return
	}

	expiresAt := s.now().UTC().Add(s.cfg.PasswordResetTTL)
	if err := s.users.SetPasswordResetToken(
		ctx,
		user.ID,
		core.HashToken(token),
		expiresAt,
	); err != nil {
		slog.Error("store reset token failed", "user_id", user.ID, "error", err)
		return
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token, expiresAt); err != nil {
		slog.Error("send reset token failed", "user_id", user.ID, "error", err)
	}
}

// ResetPassword consumes a reset token. The new password, cleared lockout
// and revoked sessions are committed together.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	passwordHash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.GetByResetTokenHash(ctx, core.HashToken(req.Token), s.now().UTC())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("find reset token: %w", err)
	}

	if err := s.users.ResetPassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.record(ctx, activity.New(
		user.ID,
		activity.TypePasswordReset,
		activity.SubjectUser,
		user.ID,
		"Password reset",
	))

	return nil
}

func (s *Service) Me(ctx context.Context, userID string) (*MeResponse, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	perms, err := s.permissions.PermissionsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get permissions: %w", err)
	}

	return &MeResponse{
		User:        toUserResponse(user),
		Permissions: perms.List(),
	}, nil
}

func (s *Service) Permissions(ctx context.Context, userID string) ([]string, error) {
	perms, err := s.permissions.PermissionsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return perms.List(), nil
}

// PurgeExpired deletes sessions that expired more than retention ago.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	ctx, cancel := core.WithStoreTimeout(ctx, s.queryTimeout)
	defer cancel()

	n, err := s.repo.DeleteExpired(ctx, s.now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	metrics.AddSessionsPurged(n)
	return n, nil
}

func (s *Service) loginResponse(user *UserInfo, issued *IssuedSession) *LoginResponse {
	return &LoginResponse{
		User:         toUserResponse(user),
		Token:        issued.Token,
		SessionToken: issued.SessionToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(issued.Session.ExpiresAt.Sub(issued.Session.CreatedAt) / time.Second),
		ExpiresAt:    issued.Session.ExpiresAt,
	}
}

func (s *Service) record(ctx context.Context, entry activity.Entry) {
	if s.recorder != nil {
		s.recorder.Record(ctx, entry)
	}
}

var _ middleware.SessionAuthenticator = (*Service)(nil)
