// Package crud persists governing records and emits the mutation hooks the
// schema trackers listen to.
package crud

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/schemasync/internal/orm/codegen"
	"github.com/conduit-lang/schemasync/internal/orm/hooks"
	"github.com/conduit-lang/schemasync/internal/orm/tracking"
	"github.com/conduit-lang/schemasync/internal/orm/transaction"
)

// querier is satisfied by *sql.DB and *transaction.Transaction
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store saves and deletes governing records
type Store struct {
	db       *sql.DB
	dialect  codegen.Dialect
	bus      *hooks.Bus
	pkColumn string
}

// NewStore creates a store writing through db and announcing mutations on bus
func NewStore(db *sql.DB, dialect codegen.Dialect, bus *hooks.Bus) *Store {
	return &Store{
		db:       db,
		dialect:  dialect,
		bus:      bus,
		pkColumn: "id",
	}
}

// conn returns the transaction carried by ctx, or the database
func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := transaction.FromContext(ctx); ok {
		return tx
	}
	return s.db
}

// Transact runs fn with a transaction carried by its context, so the saves
// and deletes inside it commit or roll back together. Inside another
// Transact it nests a savepoint.
func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	outer, ok := transaction.FromContext(ctx)
	if !ok {
		return transaction.NewManager(s.db).WithTransaction(ctx, func(tx *transaction.Transaction) error {
			return fn(transaction.WithContext(ctx, tx))
		})
	}

	tx, err := outer.BeginNested(ctx)
	if err != nil {
		return err
	}
	if err := fn(transaction.WithContext(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// Save inserts or updates inst. A pre-save hook error aborts the write.
func (s *Store) Save(ctx context.Context, inst *tracking.Instance) error {
	created := !inst.Persisted()

	if err := s.bus.Emit(ctx, hooks.Event{Kind: hooks.PreSave, Sender: inst.Table, Instance: inst}); err != nil {
		return err
	}

	var err error
	if created {
		err = s.insert(ctx, inst)
	} else {
		err = s.update(ctx, inst)
	}
	if err != nil {
		inst.Discard()
		return err
	}

	return s.bus.Emit(ctx, hooks.Event{Kind: hooks.PostSave, Sender: inst.Table, Instance: inst, Created: created})
}

// Delete removes inst and emits PostDelete
func (s *Store) Delete(ctx context.Context, inst *tracking.Instance) error {
	if !inst.Persisted() {
		return ErrNotPersisted
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		codegen.QuoteIdentifier(inst.Table), codegen.QuoteIdentifier(s.pkColumn), s.dialect.Placeholder(1))

	res, err := s.conn(ctx).ExecContext(ctx, query, inst.PK)
	if err != nil {
		return fmt.Errorf("failed to delete %s record: %w", inst.Table, ConvertDBError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	inst.MarkDeleted()
	return s.bus.Emit(ctx, hooks.Event{Kind: hooks.PostDelete, Sender: inst.Table, Instance: inst})
}

func (s *Store) insert(ctx context.Context, inst *tracking.Instance) error {
	cols, args := s.columns(inst)

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s",
			codegen.QuoteIdentifier(inst.Table), codegen.QuoteIdentifier(s.pkColumn))
	} else {
		quoted := make([]string, len(cols))
		placeholders := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = codegen.QuoteIdentifier(c)
			placeholders[i] = s.dialect.Placeholder(i + 1)
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			codegen.QuoteIdentifier(inst.Table), strings.Join(quoted, ", "),
			strings.Join(placeholders, ", "), codegen.QuoteIdentifier(s.pkColumn))
	}

	var id int64
	if err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("failed to insert %s record: %w", inst.Table, ConvertDBError(err))
	}
	inst.PK = id
	return nil
}

func (s *Store) update(ctx context.Context, inst *tracking.Instance) error {
	cols, args := s.columns(inst)
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", codegen.QuoteIdentifier(c), s.dialect.Placeholder(i+1))
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		codegen.QuoteIdentifier(inst.Table), strings.Join(sets, ", "),
		codegen.QuoteIdentifier(s.pkColumn), s.dialect.Placeholder(len(cols)+1))

	res, err := s.conn(ctx).ExecContext(ctx, query, append(args, inst.PK)...)
	if err != nil {
		return fmt.Errorf("failed to update %s record: %w", inst.Table, ConvertDBError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// columns returns the non-key attributes in a stable order with their values
func (s *Store) columns(inst *tracking.Instance) ([]string, []interface{}) {
	cols := make([]string, 0, len(inst.Values))
	for c := range inst.Values {
		if c == s.pkColumn {
			continue
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	args := make([]interface{}, len(cols))
	for i, c := range cols {
		args[i] = inst.Values[c]
	}
	return cols, args
}
