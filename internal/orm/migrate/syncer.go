package migrate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/schemasync/internal/orm/codegen"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// Syncer applies the minimal DDL that brings the database in line with a
// definition. Every operation runs in its own transaction, nested inside
// any transaction already open on the executor. Nothing is retried.
type Syncer struct {
	exec   Executor
	audit  *AuditLog
	logger *zap.Logger
}

// SyncerOption configures a Syncer
type SyncerOption func(*Syncer)

// WithLogger sets the logger used for schema change messages
func WithLogger(logger *zap.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// WithAuditLog records soft deletes in the given log
func WithAuditLog(audit *AuditLog) SyncerOption {
	return func(s *Syncer) {
		s.audit = audit
	}
}

// NewSyncer creates a syncer over exec
func NewSyncer(exec Executor, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		exec:   exec,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Executor returns the executor the syncer issues statements through
func (s *Syncer) Executor() Executor {
	return s.exec
}

// atomic runs fn in a transaction, rolling back on any error
func (s *Syncer) atomic(ctx context.Context, fn func() error) error {
	if err := s.exec.StartTransaction(ctx); err != nil {
		return err
	}

	if err := fn(); err != nil {
		if rbErr := s.exec.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	return s.exec.Commit(ctx)
}

// Snapshot introspects the existing tables and the columns of the named
// tables, or of every table when none are named
func (s *Syncer) Snapshot(ctx context.Context, tables ...string) (*schema.Snapshot, error) {
	existing, err := s.exec.TableNames(ctx)
	if err != nil {
		return nil, err
	}

	snap := schema.NewSnapshot()
	for _, t := range existing {
		snap.AddTable(t)
	}

	if len(tables) == 0 {
		tables = existing
	}
	for _, t := range tables {
		if !snap.HasTable(t) {
			continue
		}
		cols, err := s.exec.ColumnNames(ctx, t)
		if err != nil {
			return nil, err
		}
		snap.AddTable(t, cols...)
	}
	return snap, nil
}

// Plan introspects the database and returns what Sync would change
func (s *Syncer) Plan(ctx context.Context, def *schema.Definition) (*Plan, error) {
	tables := []string{def.Table}
	for _, rel := range def.Relationships {
		tables = append(tables, rel.JunctionTable(def.Table))
	}
	snap, err := s.Snapshot(ctx, tables...)
	if err != nil {
		return nil, err
	}
	return Diff(def, snap), nil
}

// EnsureTable creates the definition's table when it does not exist. An
// existing table is left untouched.
func (s *Syncer) EnsureTable(ctx context.Context, def *schema.Definition) error {
	return s.atomic(ctx, func() error {
		return s.ensureTable(ctx, def)
	})
}

func (s *Syncer) ensureTable(ctx context.Context, def *schema.Definition) error {
	tables, err := s.exec.TableNames(ctx)
	if err != nil {
		return err
	}
	if contains(tables, def.Table) {
		return nil
	}

	if err := s.exec.CreateTable(ctx, def); err != nil {
		return err
	}
	if err := s.exec.ExecuteDeferred(ctx); err != nil {
		return err
	}
	s.logger.Debug("Created table", zap.String("table", def.Table), zap.String("type", def.Name))
	return nil
}

// EnsureColumns creates the table if needed and adds every declared column
// that is missing. Columns are never renamed or removed here.
func (s *Syncer) EnsureColumns(ctx context.Context, def *schema.Definition) error {
	return s.atomic(ctx, func() error {
		return s.ensureColumns(ctx, def)
	})
}

func (s *Syncer) ensureColumns(ctx context.Context, def *schema.Definition) error {
	if err := s.ensureTable(ctx, def); err != nil {
		return err
	}

	existing, err := s.exec.ColumnNames(ctx, def.Table)
	if err != nil {
		return err
	}
	snap := schema.NewSnapshot()
	snap.AddTable(def.Table, existing...)

	for _, col := range snap.MissingColumns(def) {
		s.logger.Debug("Adding column", zap.String("table", def.Table), zap.String("column", col.Name))
		if err := s.exec.AddColumn(ctx, def.Table, col); err != nil {
			return err
		}
	}

	return s.exec.ExecuteDeferred(ctx)
}

// EnsureRelationshipTables creates the implicit junction table of every
// relationship that has no explicit link entity
func (s *Syncer) EnsureRelationshipTables(ctx context.Context, def *schema.Definition) error {
	if len(def.Relationships) == 0 {
		return nil
	}
	return s.atomic(ctx, func() error {
		return s.ensureRelationshipTables(ctx, def)
	})
}

func (s *Syncer) ensureRelationshipTables(ctx context.Context, def *schema.Definition) error {
	tables, err := s.exec.TableNames(ctx)
	if err != nil {
		return err
	}

	for _, rel := range def.Relationships {
		if !rel.NeedsJunction() {
			s.logger.Debug("Skipping junction for explicit link entity",
				zap.String("relationship", rel.Name), zap.String("through", rel.Through))
			continue
		}

		junction := codegen.JunctionDefinition(def.Table, rel)
		if contains(tables, junction.Table) {
			continue
		}

		if err := s.exec.CreateTable(ctx, junction); err != nil {
			return err
		}
		ownerCol, targetCol := rel.JunctionColumns(def.Table)
		if err := s.exec.CreateUnique(ctx, junction.Table, ownerCol, targetCol); err != nil {
			return err
		}
		if err := s.exec.ExecuteDeferred(ctx); err != nil {
			return err
		}
		s.logger.Debug("Created junction table", zap.String("table", junction.Table), zap.String("relationship", rel.Name))
	}
	return nil
}

// Sync ensures the table, its columns and its junction tables in one transaction
func (s *Syncer) Sync(ctx context.Context, def *schema.Definition) error {
	return s.atomic(ctx, func() error {
		if err := s.ensureColumns(ctx, def); err != nil {
			return err
		}
		return s.ensureRelationshipTables(ctx, def)
	})
}

// RenameTable renames a table. Callers only invoke it once a change was detected.
func (s *Syncer) RenameTable(ctx context.Context, oldName, newName string) error {
	return s.atomic(ctx, func() error {
		if err := s.exec.RenameTable(ctx, oldName, newName); err != nil {
			return err
		}
		s.logger.Debug("Renamed table", zap.String("from", oldName), zap.String("to", newName))
		return nil
	})
}

// RenameColumn renames a column of table
func (s *Syncer) RenameColumn(ctx context.Context, table, oldName, newName string) error {
	return s.atomic(ctx, func() error {
		if err := s.exec.RenameColumn(ctx, table, oldName, newName); err != nil {
			return err
		}
		s.logger.Debug("Renamed column", zap.String("table", table), zap.String("from", oldName), zap.String("to", newName))
		return nil
	})
}

// DeleteTable drops a table
func (s *Syncer) DeleteTable(ctx context.Context, name string) error {
	return s.atomic(ctx, func() error {
		if err := s.exec.DeleteTable(ctx, name); err != nil {
			return err
		}
		s.logger.Debug("Deleted table", zap.String("table", name))
		return nil
	})
}

// DeleteColumn drops a column of table
func (s *Syncer) DeleteColumn(ctx context.Context, table, name string) error {
	return s.atomic(ctx, func() error {
		if err := s.exec.DeleteColumn(ctx, table, name); err != nil {
			return err
		}
		s.logger.Debug("Deleted column", zap.String("table", table), zap.String("column", name))
		return nil
	})
}

// SoftDeleteTable renames a table out of the way and returns its new name.
// With an audit log, names of soft-deleted tables that were later dropped
// still count towards the next suffix.
func (s *Syncer) SoftDeleteTable(ctx context.Context, name string) (string, error) {
	var newName string
	err := s.atomic(ctx, func() error {
		tables, err := s.exec.TableNames(ctx)
		if err != nil {
			return err
		}

		if s.audit != nil {
			logged, err := s.audit.tableNames(ctx)
			if err != nil {
				return err
			}
			tables = append(tables, logged...)
		}

		newName = DeletedName(name, NextDeletedSuffix(tables))
		if err := s.exec.RenameTable(ctx, name, newName); err != nil {
			return err
		}
		if err := s.retireTableArtifacts(ctx, name, newName); err != nil {
			return err
		}
		if s.audit != nil {
			if err := s.audit.RecordTable(ctx, name, newName); err != nil {
				return err
			}
		}
		s.logger.Debug("Soft-deleted table", zap.String("table", name), zap.String("renamed_to", newName))
		return nil
	})
	if err != nil {
		return "", err
	}
	return newName, nil
}

// SoftDeleteColumn renames a column out of the way and returns its new name
func (s *Syncer) SoftDeleteColumn(ctx context.Context, table, name string) (string, error) {
	var newName string
	err := s.atomic(ctx, func() error {
		columns, err := s.exec.ColumnNames(ctx, table)
		if err != nil {
			return err
		}

		if s.audit != nil {
			logged, err := s.audit.columnNames(ctx, table)
			if err != nil {
				return err
			}
			columns = append(columns, logged...)
		}

		newName = DeletedName(name, NextDeletedSuffix(columns))
		if err := s.exec.RenameColumn(ctx, table, name, newName); err != nil {
			return err
		}
		if err := s.retireColumnArtifacts(ctx, table, name, newName); err != nil {
			return err
		}
		if s.audit != nil {
			if err := s.audit.RecordColumn(ctx, table, name, newName, table); err != nil {
				return err
			}
		}
		s.logger.Debug("Soft-deleted column", zap.String("table", table), zap.String("column", name), zap.String("renamed_to", newName))
		return nil
	})
	if err != nil {
		return "", err
	}
	return newName, nil
}

// retireTableArtifacts renames the indexes and constraints named after a
// soft-deleted table. Index names are schema-wide, so a table created later
// under the original name would otherwise skip its own.
func (s *Syncer) retireTableArtifacts(ctx context.Context, table, newTable string) error {
	indexes, err := s.exec.IndexNames(ctx, newTable)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		if to, ok := retiredName(idx, table, newTable, "idx_", "uq_"); ok {
			if err := s.exec.RenameIndex(ctx, idx, to); err != nil {
				return err
			}
		}
	}

	constraints, err := s.exec.ConstraintNames(ctx, newTable)
	if err != nil {
		return err
	}
	for _, con := range constraints {
		if to, ok := retiredName(con, table, newTable, "fk_"); ok {
			if err := s.exec.RenameConstraint(ctx, newTable, con, to); err != nil {
				return err
			}
		}
	}
	return nil
}

// retireColumnArtifacts renames the indexes and constraints of a
// soft-deleted column so a column created later under the original name
// gets its own
func (s *Syncer) retireColumnArtifacts(ctx context.Context, table, column, newColumn string) error {
	renames := map[string]string{
		codegen.IndexName(table, column):  codegen.IndexName(table, newColumn),
		codegen.UniqueName(table, column): codegen.UniqueName(table, newColumn),
	}

	indexes, err := s.exec.IndexNames(ctx, table)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		if to, ok := renames[idx]; ok {
			if err := s.exec.RenameIndex(ctx, idx, to); err != nil {
				return err
			}
		}
	}

	constraints, err := s.exec.ConstraintNames(ctx, table)
	if err != nil {
		return err
	}
	fk := codegen.ForeignKeyName(table, column)
	if contains(constraints, fk) {
		return s.exec.RenameConstraint(ctx, table, fk, codegen.ForeignKeyName(table, newColumn))
	}
	return nil
}

// retiredName maps an artifact named prefix+table+"_"+rest onto newTable
func retiredName(name, table, newTable string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(name, p+table+"_"); ok {
			return p + newTable + "_" + rest, true
		}
	}
	return "", false
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
