package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so stores can run inside or outside a transaction.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return WithTxOptions(ctx, pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
}

// WithTxOptions executes fn inside a transaction started with opts. The transaction is rolled back
// whenever fn returns an error or panics.
func WithTxOptions(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", ClassifyError(err))
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return ClassifyError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", ClassifyError(err))
	}

	return nil
}

// Postgres error codes the services react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// ClassifyError wraps driver errors with the matching shared sentinel while keeping the original
// error in the chain. Errors that already carry domain meaning are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		return fmt.Errorf("%w: %w", shared.ErrConcurrencyConflict, err)
	case codeUniqueViolation:
		if errors.Is(err, shared.ErrDuplicate) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", shared.ErrDuplicate, pgErr.ConstraintName, err)
	case codeForeignKeyViolation:
		if errors.Is(err, shared.ErrReferenced) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", shared.ErrReferenced, pgErr.ConstraintName, err)
	}
	return err
}

// IsUniqueViolation reports whether err is a 23505 on the given constraint (any constraint when empty).
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
