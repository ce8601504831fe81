// Package codegen renders dialect-specific DDL for record type definitions.
package codegen

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL flavour the generated statements target
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// String returns the dialect name
func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// DialectForDriver maps a database/sql driver name to its dialect
func DialectForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Placeholder returns the bind parameter marker for the n-th (1-based) argument
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// TableNamesQuery lists the user tables of the current schema
func (d Dialect) TableNamesQuery() string {
	if d == Postgres {
		return `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
ORDER BY table_name`
	}
	return `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`
}

// ColumnNamesQuery lists the columns of one table; the table name is the only argument
func (d Dialect) ColumnNamesQuery() string {
	if d == Postgres {
		return `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`
	}
	return `SELECT name FROM pragma_table_info(?) ORDER BY cid`
}

// IndexNamesQuery lists the named indexes of one table; the table name is the only argument
func (d Dialect) IndexNamesQuery() string {
	if d == Postgres {
		return `SELECT indexname FROM pg_indexes
WHERE schemaname = current_schema() AND tablename = $1
ORDER BY indexname`
	}
	return `SELECT name FROM sqlite_master
WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL
ORDER BY name`
}

// IndexDefinitionQuery returns the stored CREATE INDEX statement of one
// index. Only SQLite needs it.
func (d Dialect) IndexDefinitionQuery() string {
	return `SELECT sql FROM sqlite_master WHERE type = 'index' AND name = ?`
}

// ConstraintNamesQuery lists the named constraints of one table. SQLite
// constraints generated here are anonymous, so it has no query.
func (d Dialect) ConstraintNamesQuery() string {
	if d == Postgres {
		return `SELECT con.conname FROM pg_constraint con
JOIN pg_class rel ON rel.oid = con.conrelid
JOIN pg_namespace ns ON ns.oid = rel.relnamespace
WHERE ns.nspname = current_schema() AND rel.relname = $1
ORDER BY con.conname`
	}
	return ""
}

// QuoteIdentifier wraps a SQL identifier in double quotes and escapes internal quotes
// This prevents SQL injection in table and column names
func QuoteIdentifier(identifier string) string {
	escaped := strings.ReplaceAll(identifier, `"`, `""`)
	return fmt.Sprintf(`"%s"`, escaped)
}

// quoteLiteral wraps a string literal in single quotes, doubling internal quotes
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
