package crud

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestConvertDBErrorWithPgErrors(t *testing.T) {
	// Test unique violation
	pgErr := &pgconn.PgError{Code: "23505", Detail: "Key (slug)=(temp) already exists."}
	err := ConvertDBError(pgErr)
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.Contains(t, err.Error(), "Key (slug)")

	// Test foreign key violation
	pgErr = &pgconn.PgError{Code: "23503", Detail: "Key (type_id)=(123) is not present in table weather_type."}
	err = ConvertDBError(pgErr)
	assert.ErrorIs(t, err, ErrForeignKeyViolation)
	assert.Contains(t, err.Error(), "Key (type_id)")

	// Test check violation
	pgErr = &pgconn.PgError{Code: "23514", Detail: "Check constraint failed"}
	err = ConvertDBError(pgErr)
	assert.ErrorIs(t, err, ErrCheckViolation)

	// Test not null violation
	pgErr = &pgconn.PgError{Code: "23502", ColumnName: "slug"}
	err = ConvertDBError(pgErr)
	assert.ErrorIs(t, err, ErrNotNullViolation)
	assert.Contains(t, err.Error(), "slug")

	// Test unknown pg error
	pgErr = &pgconn.PgError{Code: "99999", Message: "Unknown error"}
	err = ConvertDBError(pgErr)
	assert.Error(t, err)

	// Test generic error
	genericErr := errors.New("generic error")
	err = ConvertDBError(genericErr)
	assert.Equal(t, genericErr, err)
}

func TestConvertDBErrorWithPqErrors(t *testing.T) {
	err := ConvertDBError(&pq.Error{Code: "23505", Detail: "Key (slug)=(temp) already exists."})
	assert.True(t, IsUniqueViolation(err))

	err = ConvertDBError(fmt.Errorf("wrapped: %w", &pq.Error{Code: "23502", Column: "slug"}))
	assert.ErrorIs(t, err, ErrNotNullViolation)
	assert.Contains(t, err.Error(), "slug")
}

func TestConvertDBErrorWithSQLiteErrors(t *testing.T) {
	err := ConvertDBError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})
	assert.True(t, IsUniqueViolation(err))

	err = ConvertDBError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey})
	assert.True(t, IsForeignKeyViolation(err))

	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	assert.Equal(t, busy, ConvertDBError(busy))
}

func TestConvertDBErrorNoRows(t *testing.T) {
	assert.True(t, IsNotFound(ConvertDBError(sql.ErrNoRows)))
	assert.NoError(t, ConvertDBError(nil))
}
