package tracking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/schemasync/internal/orm/hooks"
	"github.com/conduit-lang/schemasync/internal/orm/migrate"
	"github.com/conduit-lang/schemasync/internal/orm/modelcache"
)

// ErrNotInstance is returned when a mutation event carries something other
// than an *Instance
var ErrNotInstance = errors.New("event instance is not a *tracking.Instance")

// NameFunc derives a name from a governing record
type NameFunc func(inst *Instance) string

// Attr returns a NameFunc reading a single attribute
func Attr(attr string) NameFunc {
	return func(inst *Instance) string {
		return inst.String(attr)
	}
}

// Static returns a NameFunc that always yields name
func Static(name string) NameFunc {
	return func(*Instance) string {
		return name
	}
}

// Tracker reacts to the mutation hooks of a governing table
type Tracker interface {
	PreSave(ctx context.Context, ev hooks.Event) error
	PostSave(ctx context.Context, ev hooks.Event) error
	PostDelete(ctx context.Context, ev hooks.Event) error
}

// Connect subscribes t to the mutation hooks sent by table
func Connect(bus *hooks.Bus, table string, t Tracker) hooks.Subscriptions {
	from := hooks.FromSender(table)
	return hooks.Subscriptions{
		bus.Subscribe(hooks.PreSave, from, t.PreSave),
		bus.Subscribe(hooks.PostSave, from, t.PostSave),
		bus.Subscribe(hooks.PostDelete, from, t.PostDelete),
	}
}

func instanceOf(ev hooks.Event) (*Instance, error) {
	inst, ok := ev.Instance.(*Instance)
	if !ok || inst == nil {
		return nil, fmt.Errorf("%s from %s: %w", ev.Kind, ev.Sender, ErrNotInstance)
	}
	return inst, nil
}

// detect attaches rename evidence for attr when the stored value differs.
// Evidence left over from an earlier cycle is dropped first.
func detect(ctx context.Context, lookup Lookup, inst *Instance, attr string) error {
	inst.reset(attr)
	if lookup == nil {
		return fmt.Errorf("tracking %s.%s: no lookup configured", inst.Table, attr)
	}
	old, found, err := lookup.PreviousValue(ctx, inst, attr)
	if err != nil {
		return err
	}
	if found && old != inst.String(attr) {
		inst.attach(RenameEvent{Attr: attr, OldValue: old})
	}
	return nil
}

// ColumnTracker mirrors a governing record that names a column: renaming
// the record renames the column, deleting it drops or soft-deletes the
// column. Every save invalidates the owning record type.
type ColumnTracker struct {
	Attr       string
	Group      string
	TableName  NameFunc
	TypeName   NameFunc
	SoftDelete bool

	Lookup Lookup
	Syncer *migrate.Syncer
	Cache  *modelcache.Cache
	Logger *zap.Logger
}

func (t *ColumnTracker) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

// PreSave records rename evidence on the instance
func (t *ColumnTracker) PreSave(ctx context.Context, ev hooks.Event) error {
	inst, err := instanceOf(ev)
	if err != nil {
		return err
	}
	return detect(ctx, t.Lookup, inst, t.Attr)
}

// PostSave applies a detected rename and invalidates the record type
func (t *ColumnTracker) PostSave(ctx context.Context, ev hooks.Event) error {
	inst, err := instanceOf(ev)
	if err != nil {
		return err
	}

	table := t.TableName(inst)
	if rename, ok := inst.take(t.Attr); ok {
		newName := inst.String(t.Attr)
		if err := t.Syncer.RenameColumn(ctx, table, rename.OldValue, newName); err != nil {
			return fmt.Errorf("renaming column %s.%s: %w", table, rename.OldValue, err)
		}
		inst.markRenamed(t.Attr)
		t.logger().Info("column renamed",
			zap.String("table", table), zap.String("from", rename.OldValue), zap.String("to", newName))
	}

	return t.Cache.PublishChange(ctx, t.Group, t.TypeName(inst), nil)
}

// PostDelete removes the named column and invalidates the record type
func (t *ColumnTracker) PostDelete(ctx context.Context, ev hooks.Event) error {
	inst, err := instanceOf(ev)
	if err != nil {
		return err
	}

	table := t.TableName(inst)
	column := inst.String(t.Attr)

	columns, err := t.Syncer.Executor().ColumnNames(ctx, table)
	if err != nil && !migrate.IsMissingTable(err) {
		return err
	}
	if containsName(columns, column) {
		if t.SoftDelete {
			newName, err := t.Syncer.SoftDeleteColumn(ctx, table, column)
			if err != nil {
				return fmt.Errorf("soft-deleting column %s.%s: %w", table, column, err)
			}
			t.logger().Info("column soft-deleted",
				zap.String("table", table), zap.String("column", column), zap.String("renamed_to", newName))
		} else {
			if err := t.Syncer.DeleteColumn(ctx, table, column); err != nil {
				return fmt.Errorf("deleting column %s.%s: %w", table, column, err)
			}
			t.logger().Info("column deleted", zap.String("table", table), zap.String("column", column))
		}
	}

	return t.Cache.PublishChange(ctx, t.Group, t.TypeName(inst), nil)
}

// TableTracker mirrors a governing record that names a record type and its
// table. Renames are applied; tables are never dropped automatically and
// are only moved aside when SoftDelete is set.
type TableTracker struct {
	TypeNameAttr  string
	TableNameAttr string
	Group         string
	SoftDelete    bool

	Lookup Lookup
	Syncer *migrate.Syncer
	Cache  *modelcache.Cache
	Logger *zap.Logger
}

func (t *TableTracker) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

// PreSave records table and type name rename evidence on the instance
func (t *TableTracker) PreSave(ctx context.Context, ev hooks.Event) error {
	inst, err := instanceOf(ev)
	if err != nil {
		return err
	}
	if err := detect(ctx, t.Lookup, inst, t.TableNameAttr); err != nil {
		return err
	}
	if t.TypeNameAttr == "" || t.TypeNameAttr == t.TableNameAttr {
		return nil
	}
	return detect(ctx, t.Lookup, inst, t.TypeNameAttr)
}

// PostSave applies a detected table rename and invalidates the record type.
// A renamed type also invalidates its old name.
func (t *TableTracker) PostSave(ctx context.Context, ev hooks.Event) error {
	inst, err := instanceOf(ev)
	if err != nil {
		return err
	}

	if rename, ok := inst.take(t.TableNameAttr); ok {
		newName := inst.String(t.TableNameAttr)
		if err := t.Syncer.RenameTable(ctx, rename.OldValue, newName); err != nil {
			return fmt.Errorf("renaming table %s: %w", rename.OldValue, err)
		}
		inst.markRenamed(t.TableNameAttr)
		t.logger().Info("table renamed", zap.String("from", rename.OldValue), zap.String("to", newName))
	}

	typeAttr := t.typeNameAttr()
	if typeAttr != t.TableNameAttr {
		if rename, ok := inst.take(typeAttr); ok {
			t.Cache.Evict(t.Group, rename.OldValue)
			if err := t.Cache.PublishChange(ctx, t.Group, rename.OldValue, nil); err != nil {
				return err
			}
			inst.markRenamed(typeAttr)
		}
	}

	return t.Cache.PublishChange(ctx, t.Group, inst.String(typeAttr), nil)
}

// PostDelete soft-deletes the table when configured and invalidates the
// record type
func (t *TableTracker) PostDelete(ctx context.Context, ev hooks.Event) error {
	inst, err := instanceOf(ev)
	if err != nil {
		return err
	}

	table := inst.String(t.TableNameAttr)
	if t.SoftDelete {
		tables, err := t.Syncer.Executor().TableNames(ctx)
		if err != nil {
			return err
		}
		if containsName(tables, table) {
			newName, err := t.Syncer.SoftDeleteTable(ctx, table)
			if err != nil {
				return fmt.Errorf("soft-deleting table %s: %w", table, err)
			}
			t.logger().Info("table soft-deleted", zap.String("table", table), zap.String("renamed_to", newName))
		}
	} else {
		t.logger().Debug("table left in place", zap.String("table", table))
	}

	typeName := inst.String(t.typeNameAttr())
	t.Cache.Evict(t.Group, typeName)
	return t.Cache.PublishChange(ctx, t.Group, typeName, nil)
}

func (t *TableTracker) typeNameAttr() string {
	if t.TypeNameAttr == "" {
		return t.TableNameAttr
	}
	return t.TypeNameAttr
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
