// AngelaMos | 2026
// activity_test.go

package activity

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

type memRepo struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	ctxErr  error
}

func (m *memRepo) Append(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memRepo) Query(context.Context, Filter) ([]Entry, error) {
	return m.entries, nil
}

func TestRecorderIsBestEffort(t *testing.T) {
	var logs bytes.Buffer
	repo := &memRepo{err: core.StoreError("append activity", errors.New("disk full"))}
	r := NewRecorder(repo, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	r.Record(context.Background(), New("u1", TypeLeadCreated, SubjectLead, "l1", "created"))

	if !strings.Contains(logs.String(), "activity log write failed") {
		t.Fatalf("failure was not logged: %s", logs.String())
	}
}

func TestRecorderSurvivesCancelledRequest(t *testing.T) {
	repo := &memRepo{}
	fixed := time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC)
	r := NewRecorder(repo, WithClock(func() time.Time { return fixed }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Record(ctx, New("u1", TypeUserLogout, SubjectSession, "s1", "logged out"))

	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	if repo.ctxErr != nil {
		t.Fatalf("write context already done: %v", repo.ctxErr)
	}
	if !repo.entries[0].CreatedAt.Equal(fixed) {
		t.Fatalf("created_at = %v", repo.entries[0].CreatedAt)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.Record(context.Background(), New("", TypeUserLogin, SubjectUser, "", ""))
}

func TestNewStoresEmptyIDsAsNull(t *testing.T) {
	e := New("", TypeSessionsPurged, SubjectSession, "", "purged").With("removed", 3)

	if e.ActorID != nil || e.SubjectID != nil {
		t.Fatalf("expected nil ids, got actor=%v subject=%v", e.ActorID, e.SubjectID)
	}
	if e.Metadata["removed"] != 3 {
		t.Fatalf("metadata = %v", e.Metadata)
	}
}

func TestNewIDSortsByTime(t *testing.T) {
	base := time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC)
	first := NewID(base)
	second := NewID(base.Add(time.Millisecond))
	same := NewID(base.Add(time.Millisecond))

	if len(first) != 26 {
		t.Fatalf("id length = %d", len(first))
	}
	if first >= second || second >= same {
		t.Fatalf("ids not increasing: %s %s %s", first, second, same)
	}
}

func TestFilterNormalize(t *testing.T) {
	f := Filter{Limit: 0, Order: "sideways"}
	f.Normalize()
	if f.Limit != DefaultQueryLimit || f.Order != OrderDesc {
		t.Fatalf("unexpected %+v", f)
	}

	f = Filter{Limit: 1000, Order: "ASC"}
	f.Normalize()
	if f.Limit != MaxQueryLimit || f.Order != OrderAsc {
		t.Fatalf("unexpected %+v", f)
	}
}

func TestRepositoryAppend(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()

	repo := NewRepository(sqlx.NewDb(mockDB, "sqlmock"))
	entry := New("u1", TypeLeadConverted, SubjectLead, "l1", "converted")

	mock.ExpectExec(`INSERT INTO activities`).
		WithArgs(
			sqlmock.AnyArg(),
			"u1",
			TypeLeadConverted,
			SubjectLead,
			"l1",
			"converted",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Append(context.Background(), &entry); err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatalf("append did not stamp entry: %+v", entry)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRepositoryQueryBuildsFilter(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()

	repo := NewRepository(sqlx.NewDb(mockDB, "sqlmock"))
	since := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "actor_id", "type", "subject_type", "subject_id",
		"description", "metadata", "created_at",
	}).AddRow("01J00000000000000000000000", "u1", TypeLeadCreated, SubjectLead, "l1",
		"created", []byte(`{"status":"new"}`), since.Add(time.Hour))

	mock.ExpectQuery(`WHERE subject_type = \$1 AND subject_id = \$2 AND created_at >= \$3\s+ORDER BY created_at ASC, id ASC\s+LIMIT \$4`).
		WithArgs(SubjectLead, "l1", since, 10).
		WillReturnRows(rows)

	entries, err := repo.Query(context.Background(), Filter{
		SubjectType: SubjectLead,
		SubjectID:   "l1",
		Since:       &since,
		Limit:       10,
		Order:       OrderAsc,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 1 || entries[0].Metadata["status"] != "new" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestServiceRejectsInvertedRange(t *testing.T) {
	since := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	until := since.Add(-time.Hour)
	svc := NewService(&memRepo{}, time.Second)

	_, err := svc.Query(context.Background(), Filter{Since: &since, Until: &until})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
