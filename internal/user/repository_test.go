// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return NewRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestRecordFailedLoginLocksAtThreshold(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC)
	lockUntil := now.Add(15 * time.Minute)

	mock.ExpectQuery(`UPDATE users\s+SET failed_attempts = CASE`).
		WithArgs("u1", now, 5, lockUntil).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "locked_until"}).
			AddRow(5, lockUntil))

	failure, err := repo.RecordFailedLogin(context.Background(), "u1", now, 5, lockUntil)
	if err != nil {
		t.Fatalf("record failed login: %v", err)
	}
	if failure.FailedAttempts != 5 {
		t.Fatalf("attempts = %d", failure.FailedAttempts)
	}
	if !failure.Locked(now) {
		t.Fatal("expected lock")
	}
	if failure.Locked(lockUntil.Add(time.Second)) {
		t.Fatal("lock should have elapsed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordFailedLoginUnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "locked_until"}))

	_, err := repo.RecordFailedLogin(context.Background(), "missing", now, 5, now)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTerminateDeactivatesRolesAndSessions(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users\s+SET status = 'terminated'`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE user_roles SET is_active = FALSE`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE user_sessions\s+SET is_active = FALSE`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	if err := repo.Terminate(context.Background(), "u1"); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTerminateRollsBackWhenUserMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users\s+SET status = 'terminated'`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Terminate(context.Background(), "ghost")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTerminateRollsBackOnSessionFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE user_roles`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE user_sessions`).
		WithArgs("u1").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.Terminate(context.Background(), "u1")
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestChangePasswordDeactivatesSessions(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users\s+SET password_hash = \$2`).
		WithArgs("u1", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE user_sessions\s+SET is_active = FALSE`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := repo.ChangePassword(context.Background(), "u1", "new-hash"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestChangePasswordRollsBackOnSessionFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users`).
		WithArgs("u1", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE user_sessions`).
		WithArgs("u1").
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	err := repo.ChangePassword(context.Background(), "u1", "new-hash")
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM users u WHERE lower\(u.email\) = lower\(\$1\)`).
		WithArgs("Nobody@Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByEmail(context.Background(), "Nobody@Example.com")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}
