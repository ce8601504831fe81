// Package registry maps record type groups to the producers that build
// their definitions, and runs each producer once its dependencies exist.
package registry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/schemasync/internal/orm/hooks"
	"github.com/conduit-lang/schemasync/internal/orm/migrate"
	"github.com/conduit-lang/schemasync/internal/orm/modelcache"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// Producer builds the current definitions of a registered type
type Producer func(ctx context.Context) ([]*schema.Definition, error)

// MissingDependencyError is returned when a producer ran before the tables
// it reads from exist. The producer is retried by Bootstrap.
type MissingDependencyError struct {
	Group string
	Name  string
	Err   error
}

// Error implements the error interface
func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("producer %s.%s deferred: %v", e.Group, e.Name, e.Err)
}

// Unwrap returns the underlying missing-table error
func (e *MissingDependencyError) Unwrap() error {
	return e.Err
}

type state int

const (
	pending state = iota
	deferred
	done
	failed
)

type entry struct {
	group    string
	name     string
	deps     []string
	producer Producer
	state    state
	produced []*schema.Definition
}

// Registry is the process-wide set of registered producers
type Registry struct {
	syncer *migrate.Syncer
	cache  *modelcache.Cache
	logger *zap.Logger

	mu        sync.Mutex
	entries   []*entry
	available map[string]map[string]bool
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithCache publishes every produced definition to the definition cache
func WithCache(c *modelcache.Cache) Option {
	return func(r *Registry) {
		r.cache = c
	}
}

// New creates an empty registry. Producers run inside transactions of the
// syncer's executor and their definitions are synced through it.
func New(syncer *migrate.Syncer, opts ...Option) *Registry {
	r := &Registry{
		syncer:    syncer,
		logger:    zap.NewNop(),
		available: make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores producer under group and name. It runs automatically the
// first time every type in deps is available in group. Type names in deps
// match case-insensitively.
func (r *Registry) Register(group, name string, deps []string, producer Producer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.group == group && e.name == name {
			return fmt.Errorf("producer %s.%s is already registered", group, name)
		}
	}

	normalized := make([]string, len(deps))
	for i, d := range deps {
		normalized[i] = strings.ToLower(d)
	}

	r.entries = append(r.entries, &entry{
		group:    group,
		name:     name,
		deps:     normalized,
		producer: producer,
	})
	return nil
}

// Watch subscribes the registry to type availability events
func (r *Registry) Watch(bus *hooks.Bus) *hooks.Subscription {
	return bus.Subscribe(hooks.TypeAvailable, nil, r.onTypeAvailable)
}

func (r *Registry) onTypeAvailable(ctx context.Context, ev hooks.Event) error {
	ready := r.markAvailable(ev.Group, ev.TypeName)

	for _, e := range ready {
		if err := r.run(ctx, e); err != nil {
			var missing *MissingDependencyError
			if errors.As(err, &missing) {
				continue
			}
			return err
		}
	}
	return nil
}

// markAvailable records a type and claims the pending entries it completes
func (r *Registry) markAvailable(group, typeName string) []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := r.available[group]
	if seen == nil {
		seen = make(map[string]bool)
		r.available[group] = seen
	}
	seen[strings.ToLower(typeName)] = true

	var ready []*entry
	for _, e := range r.entries {
		if e.group != group || e.state != pending || len(e.deps) == 0 {
			continue
		}
		if satisfied(e.deps, seen) {
			// claimed before running so a re-entrant event cannot fire it twice
			e.state = done
			ready = append(ready, e)
		}
	}
	return ready
}

func satisfied(deps []string, seen map[string]bool) bool {
	for _, d := range deps {
		if !seen[d] {
			return false
		}
	}
	return true
}

// run executes a producer inside a transaction and syncs what it returns
func (r *Registry) run(ctx context.Context, e *entry) error {
	exec := r.syncer.Executor()
	if err := exec.StartTransaction(ctx); err != nil {
		return err
	}

	defs, err := r.produce(ctx, e)
	if err != nil {
		if rbErr := exec.Rollback(ctx); rbErr != nil {
			err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if migrate.IsMissingTable(err) {
			e.state = deferred
			r.logger.Info("Deferring producer until its tables exist",
				zap.String("group", e.group), zap.String("type", e.name), zap.Error(err))
			return &MissingDependencyError{Group: e.group, Name: e.name, Err: err}
		}
		e.state = failed
		return fmt.Errorf("producer %s.%s: %w", e.group, e.name, err)
	}

	if err := exec.Commit(ctx); err != nil {
		r.mu.Lock()
		e.state = failed
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	e.state = done
	e.produced = defs
	r.mu.Unlock()

	r.logger.Debug("Producer ran", zap.String("group", e.group), zap.String("type", e.name), zap.Int("definitions", len(defs)))

	if r.cache != nil {
		for _, def := range defs {
			if err := r.cache.PublishChange(ctx, def.Group, def.Name, def); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) produce(ctx context.Context, e *entry) ([]*schema.Definition, error) {
	defs, err := e.producer(ctx)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := r.syncer.Sync(ctx, def); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// Bootstrap runs every deferred producer and every producer without
// dependencies that has not run yet. Producers that are still missing
// tables stay deferred and are reported as MissingDependencyError.
func (r *Registry) Bootstrap(ctx context.Context) error {
	r.mu.Lock()
	var todo []*entry
	for _, e := range r.entries {
		if e.state == deferred || (e.state == pending && len(e.deps) == 0) {
			e.state = done
			todo = append(todo, e)
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, e := range todo {
		if err := r.run(ctx, e); err != nil {
			var missing *MissingDependencyError
			if !errors.As(err, &missing) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deferred returns the names of producers waiting for Bootstrap, as group.name
func (r *Registry) Deferred() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for _, e := range r.entries {
		if e.state == deferred {
			names = append(names, e.group+"."+e.name)
		}
	}
	return names
}

// Produced returns the definitions of the last successful automatic run
func (r *Registry) Produced(group, name string) ([]*schema.Definition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.group == group && e.name == name && e.state == done && e.produced != nil {
			return e.produced, true
		}
	}
	return nil, false
}

// Groups returns the registered group names, sorted
func (r *Registry) Groups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var groups []string
	for _, e := range r.entries {
		if !seen[e.group] {
			seen[e.group] = true
			groups = append(groups, e.group)
		}
	}
	sort.Strings(groups)
	return groups
}

// Clear removes every registration and forgets availability
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
	r.available = make(map[string]map[string]bool)
}

// Enumerate calls the producers of the given groups, or of every group, in
// registration order and yields their definitions. Producers run when the
// sequence is iterated, every time it is iterated.
func (r *Registry) Enumerate(ctx context.Context, groups ...string) iter.Seq2[*schema.Definition, error] {
	return func(yield func(*schema.Definition, error) bool) {
		for _, e := range r.selected(groups) {
			defs, err := e.producer(ctx)
			if err != nil {
				yield(nil, fmt.Errorf("producer %s.%s: %w", e.group, e.name, err))
				return
			}
			for _, def := range defs {
				if !yield(def, nil) {
					return
				}
			}
		}
	}
}

func (r *Registry) selected(groups []string) []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool, len(groups))
	for _, g := range groups {
		want[g] = true
	}

	var out []*entry
	for _, e := range r.entries {
		if len(groups) == 0 || want[e.group] {
			out = append(out, e)
		}
	}
	return out
}

// SyncAll ensures every enumerated definition exists in the database
func (r *Registry) SyncAll(ctx context.Context, groups ...string) ([]*schema.Definition, error) {
	var synced []*schema.Definition
	for def, err := range r.Enumerate(ctx, groups...) {
		if err != nil {
			return synced, err
		}
		if err := r.syncer.Sync(ctx, def); err != nil {
			return synced, err
		}
		synced = append(synced, def)
	}
	return synced, nil
}

// DropAll drops the tables and implicit junction tables of every enumerated
// definition. It is meant for resetting a test database.
func (r *Registry) DropAll(ctx context.Context, groups ...string) error {
	for def, err := range r.Enumerate(ctx, groups...) {
		if err != nil {
			return err
		}

		tables, err := r.syncer.Executor().TableNames(ctx)
		if err != nil {
			return err
		}
		existing := make(map[string]bool, len(tables))
		for _, t := range tables {
			existing[t] = true
		}

		for _, rel := range def.Relationships {
			junction := rel.JunctionTable(def.Table)
			if rel.NeedsJunction() && existing[junction] {
				if err := r.syncer.DeleteTable(ctx, junction); err != nil {
					return err
				}
			}
		}
		if existing[def.Table] {
			if err := r.syncer.DeleteTable(ctx, def.Table); err != nil {
				return err
			}
		}
	}
	return nil
}
