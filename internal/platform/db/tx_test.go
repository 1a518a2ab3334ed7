package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

func TestClassifyError(t *testing.T) {
	assert.NoError(t, ClassifyError(nil))

	plain := errors.New("plain")
	assert.Same(t, plain, ClassifyError(plain))

	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := ClassifyError(fmt.Errorf("lock: %w", &pgconn.PgError{Code: code}))
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict, code)
		var pgErr *pgconn.PgError
		assert.ErrorAs(t, err, &pgErr)
	}

	dup := ClassifyError(&pgconn.PgError{Code: "23505", ConstraintName: "customers_phone_name_key"})
	assert.ErrorIs(t, dup, shared.ErrDuplicate)
	assert.Contains(t, dup.Error(), "customers_phone_name_key")

	ref := ClassifyError(&pgconn.PgError{Code: "23503", ConstraintName: "bill_items_medicine_id_fkey"})
	assert.ErrorIs(t, ref, shared.ErrReferenced)

	once := ClassifyError(&pgconn.PgError{Code: "40001"})
	assert.Equal(t, once.Error(), ClassifyError(once).Error())
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idempotency_keys_pkey"})
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "idempotency_keys_pkey"))
	assert.False(t, IsUniqueViolation(err, "other"))
	assert.False(t, IsUniqueViolation(errors.New("x"), ""))
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@host:5432/db?sslmode=disable", migrateURL("postgres://u:p@host:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://host/db", migrateURL("postgresql://host/db"))
	assert.Equal(t, "pgx5://host/db", migrateURL("pgx5://host/db"))
}
