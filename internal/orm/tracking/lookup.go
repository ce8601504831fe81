package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conduit-lang/schemasync/internal/orm/codegen"
)

// Lookup finds the persisted value of a governing attribute when it differs
// from the instance's in-memory value
type Lookup interface {
	PreviousValue(ctx context.Context, inst *Instance, attr string) (string, bool, error)
}

// LookupFunc adapts a function to the Lookup interface
type LookupFunc func(ctx context.Context, inst *Instance, attr string) (string, bool, error)

// PreviousValue calls f
func (f LookupFunc) PreviousValue(ctx context.Context, inst *Instance, attr string) (string, bool, error) {
	return f(ctx, inst, attr)
}

// RowQuerier is satisfied by *sql.DB and *sql.Tx
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLLookup reads the stored row of the instance, excluding rows whose
// attribute already equals the new value. When a table rename and a column
// rename happen in the same save, the row it sees may not be the one the
// caller means; such callers should supply their own Lookup.
type SQLLookup struct {
	DB       RowQuerier
	Dialect  codegen.Dialect
	PKColumn string // defaults to "id"
}

// PreviousValue implements Lookup
func (l *SQLLookup) PreviousValue(ctx context.Context, inst *Instance, attr string) (string, bool, error) {
	if !inst.Persisted() {
		return "", false, nil
	}

	pk := l.PKColumn
	if pk == "" {
		pk = "id"
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s AND %s <> %s",
		codegen.QuoteIdentifier(attr), codegen.QuoteIdentifier(inst.Table),
		codegen.QuoteIdentifier(pk), l.Dialect.Placeholder(1),
		codegen.QuoteIdentifier(attr), l.Dialect.Placeholder(2))

	var old sql.NullString
	err := l.DB.QueryRowContext(ctx, query, inst.PK, inst.String(attr)).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		// fresh rows and fixture-loaded rows have no prior state
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up previous %s of %s: %w", attr, inst.Table, err)
	}
	return old.String, old.Valid, nil
}
