package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conduit-lang/schemasync/internal/orm/codegen"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

const (
	// DeletedTablesTable logs soft-deleted tables
	DeletedTablesTable = "deleted_tables"
	// DeletedColumnsTable logs soft-deleted columns
	DeletedColumnsTable = "deleted_columns"
)

// DeletedTable is a table that was renamed out of the way instead of dropped
type DeletedTable struct {
	OriginalName string
	CurrentName  string
	DeletedAt    time.Time
}

// DeletedColumn is a column that was renamed out of the way instead of dropped
type DeletedColumn struct {
	OriginalTableName string
	OriginalName      string
	CurrentName       string
	CurrentTableName  string
	DeletedAt         time.Time
}

// AuditExecutor is the executor an AuditLog writes through. Rows go into
// the executor's current transaction.
type AuditExecutor interface {
	Executor
	Dialect() codegen.Dialect
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// AuditLog is the append-only record of soft-deleted tables and columns
type AuditLog struct {
	exec AuditExecutor
	now  func() time.Time
}

// NewAuditLog creates an audit log writing through exec
func NewAuditLog(exec AuditExecutor) *AuditLog {
	return &AuditLog{exec: exec, now: time.Now}
}

func nameColumn(name string) *schema.Column {
	length := 127
	return &schema.Column{Name: name, Type: &schema.TypeSpec{BaseType: schema.TypeString, Length: &length}}
}

func deletedAtColumn() *schema.Column {
	return &schema.Column{Name: "deleted_at", Type: &schema.TypeSpec{BaseType: schema.TypeTimestamp}, Index: true}
}

// Definitions returns the definitions of the two log tables
func (a *AuditLog) Definitions() []*schema.Definition {
	tables := schema.NewDefinition("schemasync", "DeletedTable", DeletedTablesTable).
		AddColumn(nameColumn("original_name")).
		AddColumn(nameColumn("current_name")).
		AddColumn(deletedAtColumn())

	columns := schema.NewDefinition("schemasync", "DeletedColumn", DeletedColumnsTable).
		AddColumn(nameColumn("original_table_name")).
		AddColumn(nameColumn("original_name")).
		AddColumn(nameColumn("current_name")).
		AddColumn(nameColumn("current_table_name")).
		AddColumn(deletedAtColumn())

	return []*schema.Definition{tables, columns}
}

// Install creates the log tables if they do not exist
func (a *AuditLog) Install(ctx context.Context) error {
	syncer := NewSyncer(a.exec)
	for _, def := range a.Definitions() {
		if err := syncer.EnsureTable(ctx, def); err != nil {
			return fmt.Errorf("install %s: %w", def.Table, err)
		}
	}
	return nil
}

// RecordTable appends a soft-deleted table
func (a *AuditLog) RecordTable(ctx context.Context, originalName, currentName string) error {
	d := a.exec.Dialect()
	query := fmt.Sprintf("INSERT INTO %s (original_name, current_name, deleted_at) VALUES (%s, %s, %s)",
		codegen.QuoteIdentifier(DeletedTablesTable), d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))
	if _, err := a.exec.ExecContext(ctx, query, originalName, currentName, a.now().UTC()); err != nil {
		return &SchemaError{Op: "audit_table", Statement: query, Err: err}
	}
	return nil
}

// RecordColumn appends a soft-deleted column
func (a *AuditLog) RecordColumn(ctx context.Context, originalTable, originalName, currentName, currentTable string) error {
	d := a.exec.Dialect()
	query := fmt.Sprintf("INSERT INTO %s (original_table_name, original_name, current_name, current_table_name, deleted_at) VALUES (%s, %s, %s, %s, %s)",
		codegen.QuoteIdentifier(DeletedColumnsTable),
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5))
	if _, err := a.exec.ExecContext(ctx, query, originalTable, originalName, currentName, currentTable, a.now().UTC()); err != nil {
		return &SchemaError{Op: "audit_column", Statement: query, Err: err}
	}
	return nil
}

// DeletedTables returns the logged tables, oldest first
func (a *AuditLog) DeletedTables(ctx context.Context) ([]DeletedTable, error) {
	query := fmt.Sprintf("SELECT original_name, current_name, deleted_at FROM %s ORDER BY deleted_at, id",
		codegen.QuoteIdentifier(DeletedTablesTable))
	rows, err := a.exec.QueryContext(ctx, query)
	if err != nil {
		return nil, &SchemaError{Op: "audit_tables", Statement: query, Err: err}
	}
	defer rows.Close()

	var out []DeletedTable
	for rows.Next() {
		var d DeletedTable
		if err := rows.Scan(&d.OriginalName, &d.CurrentName, &d.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeletedColumns returns the logged columns, oldest first
func (a *AuditLog) DeletedColumns(ctx context.Context) ([]DeletedColumn, error) {
	query := fmt.Sprintf("SELECT original_table_name, original_name, current_name, current_table_name, deleted_at FROM %s ORDER BY deleted_at, id",
		codegen.QuoteIdentifier(DeletedColumnsTable))
	rows, err := a.exec.QueryContext(ctx, query)
	if err != nil {
		return nil, &SchemaError{Op: "audit_columns", Statement: query, Err: err}
	}
	defer rows.Close()

	var out []DeletedColumn
	for rows.Next() {
		var d DeletedColumn
		if err := rows.Scan(&d.OriginalTableName, &d.OriginalName, &d.CurrentName, &d.CurrentTableName, &d.DeletedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// tableNames returns every name a soft-deleted table has been given
func (a *AuditLog) tableNames(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT current_name FROM %s", codegen.QuoteIdentifier(DeletedTablesTable))
	return a.queryNames(ctx, "audit_tables", query)
}

// columnNames returns every name a soft-deleted column of table has been given
func (a *AuditLog) columnNames(ctx context.Context, table string) ([]string, error) {
	query := fmt.Sprintf("SELECT current_name FROM %s WHERE current_table_name = %s",
		codegen.QuoteIdentifier(DeletedColumnsTable), a.exec.Dialect().Placeholder(1))
	return a.queryNames(ctx, "audit_columns", query, table)
}

func (a *AuditLog) queryNames(ctx context.Context, op, query string, args ...interface{}) ([]string, error) {
	rows, err := a.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &SchemaError{Op: op, Statement: query, Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
