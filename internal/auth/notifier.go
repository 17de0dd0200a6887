// AngelaMos | 2026
// notifier.go

package auth

import (
	"context"
	"log/slog"
	"time"
)

// ResetNotifier delivers a password reset token to the account owner.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// LogNotifier writes reset requests to the log. The token itself is only
// logged when revealToken is set, which is meant for development.
type LogNotifier struct {
	logger      *slog.Logger
	revealToken bool
}

func NewLogNotifier(logger *slog.Logger, revealToken bool) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, revealToken: revealToken}
}

func (n *LogNotifier) SendPasswordReset(
	ctx context.Context,
	email, token string,
	expiresAt time.Time,
) error {
	attrs := []any{"email", email, "expires_at", expiresAt}
	if n.revealToken {
		attrs = append(attrs, "token", token)
	}

	n.logger.InfoContext(ctx, "password reset requested", attrs...)
	return nil
}
