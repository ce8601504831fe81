// Package transaction provides nested database transactions built on savepoints.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrNoTransaction is returned when committing or rolling back without an open transaction
	ErrNoTransaction = errors.New("no transaction in progress")
	// ErrNestedTransactionNotSupported is returned when nested transactions are not supported
	ErrNestedTransactionNotSupported = errors.New("nested transactions require an existing transaction")
)

// savepointCounter provides guaranteed unique savepoint IDs across all transactions
var savepointCounter atomic.Uint64

// Transaction represents a database transaction with support for nesting
type Transaction struct {
	tx            *sql.Tx
	level         int // Nesting level (0 = top-level, 1+ = savepoint)
	savepointName string
	committed     atomic.Bool
	rolledBack    atomic.Bool
}

// Manager manages database transactions
type Manager struct {
	db *sql.DB
}

// NewManager creates a new transaction manager
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// DB returns the underlying database connection
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Begin starts a new top-level transaction
func (m *Manager) Begin(ctx context.Context) (*Transaction, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: tx}, nil
}

// WithTransaction executes a function within a transaction
// Automatically commits on success or rolls back on error
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p) // Re-throw panic after rollback
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

// Level returns the nesting level of the transaction
func (t *Transaction) Level() int {
	return t.level
}

// SavepointName returns the savepoint backing a nested transaction, or ""
func (t *Transaction) SavepointName() string {
	return t.savepointName
}

// Commit commits the transaction, or releases its savepoint when nested
func (t *Transaction) Commit(ctx context.Context) error {
	if t.committed.Load() {
		return errors.New("transaction already committed")
	}
	if t.rolledBack.Load() {
		return errors.New("transaction already rolled back")
	}

	if t.level > 0 {
		if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", t.savepointName)); err != nil {
			return fmt.Errorf("failed to release savepoint: %w", err)
		}
		t.committed.Store(true)
		return nil
	}

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.committed.Store(true)
	return nil
}

// Rollback rolls back the transaction, or to its savepoint when nested
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.committed.Load() {
		return errors.New("transaction already committed")
	}
	if t.rolledBack.Load() {
		return nil // Already rolled back, no-op
	}

	if t.level > 0 {
		// ROLLBACK TO keeps the savepoint open; release it so the outer
		// transaction's savepoint stack stays balanced.
		if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", t.savepointName)); err != nil {
			return fmt.Errorf("failed to rollback to savepoint: %w", err)
		}
		if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", t.savepointName)); err != nil {
			return fmt.Errorf("failed to release savepoint: %w", err)
		}
		t.rolledBack.Store(true)
		return nil
	}

	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	t.rolledBack.Store(true)
	return nil
}

// BeginNested creates a nested transaction using a savepoint
func (t *Transaction) BeginNested(ctx context.Context) (*Transaction, error) {
	if t.tx == nil {
		return nil, ErrNestedTransactionNotSupported
	}

	savepointName := fmt.Sprintf("sp_%d_%d", savepointCounter.Add(1), t.level+1)

	if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("SAVEPOINT %s", savepointName)); err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}

	return &Transaction{
		tx:            t.tx,
		level:         t.level + 1,
		savepointName: savepointName,
	}, nil
}

// ExecContext executes a query that doesn't return rows
func (t *Transaction) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows
func (t *Transaction) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row
func (t *Transaction) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}
