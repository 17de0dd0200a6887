// AngelaMos | 2026
// database_test.go

package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestInTxCommits(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE leads`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := InTx(context.Background(), db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(context.Background(), `UPDATE leads SET score = 1`)
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := InTx(context.Background(), db, func(*sqlx.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic was swallowed")
			}
		}()
		_ = InTx(context.Background(), db, func(*sqlx.Tx) error { panic("bad state") })
	}()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPgErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	if !IsDuplicateKeyError(wrap(pgUniqueViolation)) {
		t.Error("unique violation not detected")
	}
	if !IsForeignKeyError(wrap(pgForeignKeyViolation)) {
		t.Error("foreign key violation not detected")
	}
	if !IsCheckViolation(wrap(pgCheckViolation)) {
		t.Error("check violation not detected")
	}
	if PgCode(errors.New("plain")) != "" {
		t.Error("plain error has a code")
	}

	err := StoreError("update lead", wrap(pgSerializationFailure))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("serialization failure = %v, want ErrConflict", err)
	}
	if app := ToAppError(StoreError("update lead", wrap(pgDeadlockDetected))); app == nil || app.Code != "CONFLICT" {
		t.Fatalf("deadlock mapped to %+v", app)
	}

	malformed := StoreError("list leads", wrap(pgInvalidTextRepresentation))
	if !errors.Is(malformed, ErrInvalidInput) || errors.Is(malformed, ErrStorage) {
		t.Fatalf("invalid text = %v, want ErrInvalidInput", malformed)
	}
	if app := ToAppError(malformed); app == nil || app.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid text mapped to %+v", app)
	}
}
