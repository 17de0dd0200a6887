// AngelaMos | 2026
// recorder.go

package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/carterperez-dev/crm-backend/internal/metrics"
)

const defaultRecordTimeout = 3 * time.Second

// Recorder appends entries without ever failing the caller. A failed write
// is logged and counted, then dropped.
type Recorder struct {
	repo    Repository
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

type RecorderOption func(*Recorder)

func WithTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRecorder(repo Repository, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		repo:    repo,
		timeout: defaultRecordTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record runs detached from the caller's cancellation so an aborted request
// still leaves its audit trail.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.repo == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	if err := r.repo.Append(writeCtx, &entry); err != nil {
		metrics.IncActivityLogFailure()
		r.logger.Error("activity log write failed",
			"error", err,
			"type", entry.Type,
			"subject_type", entry.SubjectType,
		)
	}
}
