// Package migrate reconciles record type definitions with the live database
// schema: it creates missing tables and columns and renames or retires them
// when their governing identifiers change.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/schemasync/internal/orm/codegen"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
	"github.com/conduit-lang/schemasync/internal/orm/transaction"
)

// Executor is the DDL boundary: dialect-agnostic schema calls plus
// introspection. Transactions nest, so an operation started while another
// one is in progress runs inside it.
type Executor interface {
	CreateTable(ctx context.Context, def *schema.Definition) error
	AddColumn(ctx context.Context, table string, col *schema.Column) error
	RenameTable(ctx context.Context, oldName, newName string) error
	RenameColumn(ctx context.Context, table, oldName, newName string) error
	DeleteTable(ctx context.Context, name string) error
	DeleteColumn(ctx context.Context, table, name string) error
	CreateUnique(ctx context.Context, table string, columns ...string) error
	RenameIndex(ctx context.Context, oldName, newName string) error
	RenameConstraint(ctx context.Context, table, oldName, newName string) error

	// ExecuteDeferred runs the statements queued by CreateTable and AddColumn
	ExecuteDeferred(ctx context.Context) error

	StartTransaction(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	TableNames(ctx context.Context) ([]string, error)
	ColumnNames(ctx context.Context, table string) ([]string, error)
	IndexNames(ctx context.Context, table string) ([]string, error)
	ConstraintNames(ctx context.Context, table string) ([]string, error)
}

// SQLExecutor implements Executor over database/sql
type SQLExecutor struct {
	db     *sql.DB
	gen    *codegen.DDLGenerator
	stack  *transaction.Stack
	logger *zap.Logger

	mu       sync.Mutex
	deferred []string
}

// ExecutorOption configures a SQLExecutor
type ExecutorOption func(*SQLExecutor)

// WithExecutorLogger sets the logger statements are traced to
func WithExecutorLogger(logger *zap.Logger) ExecutorOption {
	return func(e *SQLExecutor) {
		e.logger = logger
	}
}

// NewSQLExecutor creates an executor issuing statements in the given dialect
func NewSQLExecutor(db *sql.DB, dialect codegen.Dialect, opts ...ExecutorOption) *SQLExecutor {
	e := &SQLExecutor{
		db:     db,
		gen:    codegen.NewDDLGenerator(dialect),
		stack:  transaction.NewStack(db),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dialect returns the SQL dialect of the executor
func (e *SQLExecutor) Dialect() codegen.Dialect {
	return e.gen.Dialect()
}

// DB returns the underlying database
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}

// CreateTable creates the table and queues its deferred statements
func (e *SQLExecutor) CreateTable(ctx context.Context, def *schema.Definition) error {
	ddl, err := e.gen.GenerateCreateTable(def)
	if err != nil {
		return &SchemaError{Op: "create_table", Err: err}
	}
	if err := e.exec(ctx, "create_table", ddl.Statement); err != nil {
		return err
	}
	e.queue(ddl.Deferred...)
	return nil
}

// AddColumn adds a column and queues its deferred statements
func (e *SQLExecutor) AddColumn(ctx context.Context, table string, col *schema.Column) error {
	ddl, err := e.gen.GenerateAddColumn(table, col)
	if err != nil {
		return &SchemaError{Op: "add_column", Err: err}
	}
	if err := e.exec(ctx, "add_column", ddl.Statement); err != nil {
		return err
	}
	e.queue(ddl.Deferred...)
	return nil
}

// RenameTable renames a table
func (e *SQLExecutor) RenameTable(ctx context.Context, oldName, newName string) error {
	return e.exec(ctx, "rename_table", e.gen.GenerateRenameTable(oldName, newName))
}

// RenameColumn renames a column
func (e *SQLExecutor) RenameColumn(ctx context.Context, table, oldName, newName string) error {
	return e.exec(ctx, "rename_column", e.gen.GenerateRenameColumn(table, oldName, newName))
}

// DeleteTable drops a table
func (e *SQLExecutor) DeleteTable(ctx context.Context, name string) error {
	return e.exec(ctx, "delete_table", e.gen.GenerateDropTable(name))
}

// DeleteColumn drops a column
func (e *SQLExecutor) DeleteColumn(ctx context.Context, table, name string) error {
	for _, stmt := range e.gen.GenerateDropColumn(table, name) {
		if err := e.exec(ctx, "delete_column", stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateUnique creates a unique index over the columns
func (e *SQLExecutor) CreateUnique(ctx context.Context, table string, columns ...string) error {
	return e.exec(ctx, "create_unique", e.gen.GenerateCreateUnique(table, columns...))
}

// RenameIndex gives an index a new name
func (e *SQLExecutor) RenameIndex(ctx context.Context, oldName, newName string) error {
	var definition string
	if e.Dialect() == codegen.SQLite {
		query := e.Dialect().IndexDefinitionQuery()
		defs, err := e.queryStrings(ctx, query, oldName)
		if err != nil {
			return &SchemaError{Op: "rename_index", Statement: query, Err: err}
		}
		if len(defs) == 0 {
			return &SchemaError{Op: "rename_index", Err: fmt.Errorf("index %s does not exist", oldName)}
		}
		definition = defs[0]
	}

	stmts, err := e.gen.GenerateRenameIndex(oldName, newName, definition)
	if err != nil {
		return &SchemaError{Op: "rename_index", Err: err}
	}
	for _, stmt := range stmts {
		if err := e.exec(ctx, "rename_index", stmt); err != nil {
			return err
		}
	}
	return nil
}

// RenameConstraint renames a named constraint of table
func (e *SQLExecutor) RenameConstraint(ctx context.Context, table, oldName, newName string) error {
	return e.exec(ctx, "rename_constraint", e.gen.GenerateRenameConstraint(table, oldName, newName))
}

// ExecuteDeferred runs and clears the deferred statement queue
func (e *SQLExecutor) ExecuteDeferred(ctx context.Context) error {
	e.mu.Lock()
	pending := e.deferred
	e.deferred = nil
	e.mu.Unlock()

	for _, stmt := range pending {
		if err := e.exec(ctx, "execute_deferred", stmt); err != nil {
			return err
		}
	}
	return nil
}

// StartTransaction opens a transaction, or a savepoint when one is open
func (e *SQLExecutor) StartTransaction(ctx context.Context) error {
	if err := e.stack.Begin(ctx); err != nil {
		return &SchemaError{Op: "start_transaction", Err: err}
	}
	if tx, ok := e.stack.Current(); ok {
		e.logger.Debug("transaction started", zap.Int("level", tx.Level()), zap.String("savepoint", tx.SavepointName()))
	}
	return nil
}

// Commit commits the innermost transaction
func (e *SQLExecutor) Commit(ctx context.Context) error {
	if err := e.stack.Commit(ctx); err != nil {
		return &SchemaError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback rolls back the innermost transaction. Statements still queued
// for deferred execution are discarded along with it.
func (e *SQLExecutor) Rollback(ctx context.Context) error {
	e.mu.Lock()
	e.deferred = nil
	e.mu.Unlock()

	if err := e.stack.Rollback(ctx); err != nil {
		return &SchemaError{Op: "rollback", Err: err}
	}
	return nil
}

// InTransaction reports whether a transaction is open
func (e *SQLExecutor) InTransaction() bool {
	return e.stack.Depth() > 0
}

// TableNames lists the tables of the current schema
func (e *SQLExecutor) TableNames(ctx context.Context) ([]string, error) {
	query := e.Dialect().TableNamesQuery()
	names, err := e.queryStrings(ctx, query)
	if err != nil {
		return nil, &SchemaError{Op: "table_names", Statement: query, Err: err}
	}
	return names, nil
}

// ColumnNames lists the columns of a table in ordinal order
func (e *SQLExecutor) ColumnNames(ctx context.Context, table string) ([]string, error) {
	query := e.Dialect().ColumnNamesQuery()
	names, err := e.queryStrings(ctx, query, table)
	if err != nil {
		return nil, &SchemaError{Op: "column_names", Statement: query, Err: err}
	}
	return names, nil
}

// IndexNames lists the named indexes of a table
func (e *SQLExecutor) IndexNames(ctx context.Context, table string) ([]string, error) {
	query := e.Dialect().IndexNamesQuery()
	names, err := e.queryStrings(ctx, query, table)
	if err != nil {
		return nil, &SchemaError{Op: "index_names", Statement: query, Err: err}
	}
	return names, nil
}

// ConstraintNames lists the named constraints of a table. It is always
// empty on SQLite.
func (e *SQLExecutor) ConstraintNames(ctx context.Context, table string) ([]string, error) {
	query := e.Dialect().ConstraintNamesQuery()
	if query == "" {
		return nil, nil
	}
	names, err := e.queryStrings(ctx, query, table)
	if err != nil {
		return nil, &SchemaError{Op: "constraint_names", Statement: query, Err: err}
	}
	return names, nil
}

// ExecContext runs an arbitrary statement in the current transaction
func (e *SQLExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return e.stack.ExecContext(ctx, query, args...)
}

// QueryContext runs an arbitrary query in the current transaction
func (e *SQLExecutor) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return e.stack.QueryContext(ctx, query, args...)
}

func (e *SQLExecutor) exec(ctx context.Context, op, stmt string) error {
	e.logger.Debug("executing schema statement", zap.String("op", op), zap.String("sql", stmt))
	if _, err := e.stack.ExecContext(ctx, stmt); err != nil {
		return &SchemaError{Op: op, Statement: stmt, Err: err}
	}
	return nil
}

func (e *SQLExecutor) queue(stmts ...string) {
	if len(stmts) == 0 {
		return
	}
	e.mu.Lock()
	e.deferred = append(e.deferred, stmts...)
	e.mu.Unlock()
}

func (e *SQLExecutor) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := e.stack.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
