package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

// ErrTimeout is returned when a statement was cancelled by the deadline or a
// lock could not be taken in time. Callers decide whether to retry.
var ErrTimeout = errors.New("storage operation timed out")

// Transactor runs fn inside one database transaction. fn must use the ctx it
// receives: it carries the statement deadline.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error
}

type txRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewTransactor(db *sql.DB, timeout time.Duration) Transactor {
	return &txRunner{db: db, timeout: timeout}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (r *txRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	const op = "storage.WithinTx"

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, classify(err))
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%s: rollback failed: %v (cause: %w)", op, rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, classify(err))
	}
	return nil
}

// classify maps deadline and lock failures to ErrTimeout and keeps the rest.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgerrcode.QueryCanceled, pgerrcode.LockNotAvailable:
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}
