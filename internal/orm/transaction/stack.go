package transaction

import (
	"context"
	"database/sql"
	"sync"
)

// Stack is the open transaction of one logical connection. The first Begin
// starts a database transaction; every further Begin nests a savepoint, so
// callers can wrap each other's units of work without coordinating.
type Stack struct {
	mu     sync.Mutex
	mgr    *Manager
	frames []*Transaction
}

// NewStack creates an empty transaction stack over db
func NewStack(db *sql.DB) *Stack {
	return &Stack{mgr: NewManager(db)}
}

// Begin opens a transaction, or a savepoint inside the current one
func (s *Stack) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		tx  *Transaction
		err error
	)
	if len(s.frames) == 0 {
		tx, err = s.mgr.Begin(ctx)
	} else {
		tx, err = s.frames[len(s.frames)-1].BeginNested(ctx)
	}
	if err != nil {
		return err
	}
	s.frames = append(s.frames, tx)
	return nil
}

// Commit commits the innermost transaction
func (s *Stack) Commit(ctx context.Context) error {
	tx, err := s.pop()
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Rollback rolls back the innermost transaction
func (s *Stack) Rollback(ctx context.Context) error {
	tx, err := s.pop()
	if err != nil {
		return err
	}
	return tx.Rollback(ctx)
}

// Depth returns the number of open transactions and savepoints
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Current returns the innermost open transaction
func (s *Stack) Current() (*Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil, false
	}
	return s.frames[len(s.frames)-1], true
}

// ExecContext runs a statement inside the current transaction, or directly
// on the database when none is open
func (s *Stack) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if tx, ok := s.Current(); ok {
		return tx.ExecContext(ctx, query, args...)
	}
	return s.mgr.DB().ExecContext(ctx, query, args...)
}

// QueryContext runs a query inside the current transaction, or directly on
// the database when none is open
func (s *Stack) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if tx, ok := s.Current(); ok {
		return tx.QueryContext(ctx, query, args...)
	}
	return s.mgr.DB().QueryContext(ctx, query, args...)
}

func (s *Stack) pop() (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil, ErrNoTransaction
	}
	tx := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return tx, nil
}
