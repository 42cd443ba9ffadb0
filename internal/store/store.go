package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"retail-inventory/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Options tunes the connection pool and lock waits
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LockTimeout     time.Duration
}

// DefaultOptions mirrors the pool sizing the service has always run with
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		LockTimeout:     5 * time.Second,
	}
}

type Store struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewStore creates a new database store
func NewStore(databaseURL string, opts Options) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db, opts.LockTimeout), nil
}

// New wraps an existing connection pool
func New(db *sqlx.DB, lockTimeout time.Duration) *Store {
	return &Store{db: db, lockTimeout: lockTimeout}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks that the pool can still reach the database
func (s *Store) Ping(ctx context.Context) error {
	return classify(s.db.PingContext(ctx), "ping database")
}

// Tx is one unit of work. All ledger mutations and audit appends of a sale
// go through the same Tx and become visible together on commit.
type Tx struct {
	tx *sqlx.Tx
}

// WithTx runs fn inside a single database transaction. The transaction is
// committed only when fn returns nil and is rolled back on every other path,
// which also returns the connection to the pool.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer sqlTx.Rollback()

	if s.lockTimeout > 0 {
		// SET does not accept bind parameters
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())
		if _, err := sqlTx.ExecContext(ctx, stmt); err != nil {
			return classify(err, "set lock timeout")
		}
	}

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}

// SQLSTATE codes classify translates; all but the last mean another unit of
// work held the row for too long
const (
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
	codeQueryCanceled        = "57014"
	codeNumericOutOfRange    = "22003"
)

// classify maps driver errors onto the models error taxonomy
func classify(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure, codeQueryCanceled:
			return fmt.Errorf("%s: %w: %s", op, models.ErrContention, pqErr.Message)
		case codeNumericOutOfRange:
			return fmt.Errorf("%s: %w: %s", op, models.ErrInvalidInput, pqErr.Message)
		}
		return fmt.Errorf("%s: %w: %w", op, models.ErrStorage, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, models.ErrContention, err)
	}

	return fmt.Errorf("%s: %w: %w", op, models.ErrStorage, err)
}
