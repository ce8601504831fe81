package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrMissingTable can be returned (or wrapped) by custom executors and
// producers to signal that a table they depend on does not exist yet
var ErrMissingTable = errors.New("missing table")

// undefinedTable is the SQLSTATE PostgreSQL reports for unknown relations
const undefinedTable = "42P01"

// SchemaError is a failed DDL or introspection statement
type SchemaError struct {
	Op        string // executor operation, e.g. "create_table"
	Statement string
	Err       error
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v\n  statement: %s", e.Op, e.Err, e.Statement)
}

// Unwrap returns the driver error
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsMissingTable reports whether err was caused by a reference to a table
// that does not exist. It understands pgx, lib/pq and go-sqlite3 errors.
func IsMissingTable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrMissingTable) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTable
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == undefinedTable
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrError && strings.Contains(sqliteErr.Error(), "no such table")
	}

	return false
}
