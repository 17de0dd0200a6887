// AngelaMos | 2026
// database.go

package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/crm-backend/internal/config"
)

const (
	connectAttempts  = 5
	connectBackoff   = 500 * time.Millisecond
	dbPingTimeout    = 5 * time.Second
	driverName       = "pgx"
	lifetimeJitterDv = 7
)

// Database owns the sqlx pool. QueryTimeout bounds every store call made
// through WithStoreTimeout.
type Database struct {
	DB           *sqlx.DB
	QueryTimeout time.Duration
}

// NewDatabase opens the pool and retries the first ping with doubling
// backoff so the API can start alongside a database that is still booting.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	db, err := sqlx.Open(driverName, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(jitter(cfg.ConnMaxLifetime))
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	d := &Database{DB: db, QueryTimeout: cfg.QueryTimeout}

	wait := connectBackoff
	for attempt := 1; ; attempt++ {
		err = d.Ping(ctx)
		if err == nil {
			return d, nil
		}
		if attempt == connectAttempts {
			break
		}

		select {
		case <-ctx.Done():
			_ = db.Close() //nolint:errcheck // giving up on the pool
			return nil, fmt.Errorf("connect database: %w", ctx.Err())
		case <-time.After(wait):
			wait *= 2
		}
	}

	_ = db.Close() //nolint:errcheck // giving up on the pool
	return nil, fmt.Errorf("connect database after %d attempts: %w", connectAttempts, err)
}

func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()

	return d.DB.PingContext(ctx)
}

func (d *Database) Stats() sql.DBStats {
	return d.DB.Stats()
}

func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	sqlx.ExtContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// InTx commits when fn returns nil and rolls back otherwise, including on
// panic.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return StoreError("begin transaction", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err != nil {
			err = fmt.Errorf("%w (rollback: %w)", err, rbErr)
		}
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return StoreError("commit transaction", err)
	}
	committed = true
	return nil
}

// WithStoreTimeout bounds a store round trip. A non-positive timeout only
// adds cancellation.
func WithStoreTimeout(
	ctx context.Context,
	timeout time.Duration,
) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	pgInvalidTextRepresentation = "22P02"
)

// PgCode returns the SQLSTATE carried by err, or "" for non-postgres errors.
func PgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsDuplicateKeyError(err error) bool {
	return PgCode(err) == pgUniqueViolation
}

func IsForeignKeyError(err error) bool {
	return PgCode(err) == pgForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	return PgCode(err) == pgCheckViolation
}

// IsInvalidText reports a value postgres could not parse into the column
// type, such as a malformed UUID.
func IsInvalidText(err error) bool {
	return PgCode(err) == pgInvalidTextRepresentation
}

// IsRetryable reports transaction conflicts that succeed when replayed.
func IsRetryable(err error) bool {
	switch PgCode(err) {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return false
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return base
	}
	//nolint:gosec // G404: pool lifetime spread, not security sensitive
	return base + time.Duration(rand.Int64N(int64(base/lifetimeJitterDv)+1))
}
