// Package modelcache keeps each process' generated definitions coherent
// with its peers through a content hash stored in the shared cache.
package modelcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/schemasync/internal/cache"
	"github.com/conduit-lang/schemasync/internal/orm/hooks"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// UnknownHash is written by invalidate-only publishes. It never equals a
// real content hash, so every process treats its local copy as stale.
const UnknownHash = "unknown"

// HashKey returns the shared cache key holding the hash of a record type
func HashKey(group, typeName string) string {
	return fmt.Sprintf("dynamic_model_hash_%s-%s", group, typeName)
}

// Regenerator rebuilds a definition from its source of truth
type Regenerator func(ctx context.Context) (*schema.Definition, error)

// HashFunc computes the hash of a locally held definition
type HashFunc func(def *schema.Definition) string

func contentHash(def *schema.Definition) string {
	return def.Hash()
}

type localKey struct {
	group    string
	typeName string
}

// Cache is the process-local definition cache
type Cache struct {
	shared cache.Cache
	bus    *hooks.Bus
	logger *zap.Logger
	origin string

	mu    sync.Mutex
	local map[localKey]*schema.Definition
}

// Option configures a Cache
type Option func(*Cache)

// WithBus broadcasts DefinitionChanged events on bus
func WithBus(bus *hooks.Bus) Option {
	return func(c *Cache) {
		c.bus = bus
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithOrigin overrides the process identifier stamped on events
func WithOrigin(origin string) Option {
	return func(c *Cache) {
		c.origin = origin
	}
}

// New creates a definition cache over the shared store
func New(shared cache.Cache, opts ...Option) *Cache {
	c := &Cache{
		shared: shared,
		logger: zap.NewNop(),
		origin: uuid.NewString(),
		local:  make(map[localKey]*schema.Definition),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("origin", c.origin))
	return c
}

// Origin returns the identifier of this process
func (c *Cache) Origin() string {
	return c.origin
}

type getOptions struct {
	force bool
	hash  HashFunc
}

// GetOption configures GetOrRegenerate and PublishChange
type GetOption func(*getOptions)

// Force regenerates even when the local copy is current
func Force() GetOption {
	return func(o *getOptions) {
		o.force = true
	}
}

// WithLocalHash replaces Definition.Hash as the hash of local copies
func WithLocalHash(fn HashFunc) GetOption {
	return func(o *getOptions) {
		o.hash = fn
	}
}

func buildOptions(opts []GetOption) getOptions {
	o := getOptions{hash: contentHash}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GetOrRegenerate returns the local definition of a record type when its
// hash matches the shared one. Otherwise the local copy is evicted and
// regenerate is called to build a fresh definition, which becomes the local copy.
func (c *Cache) GetOrRegenerate(ctx context.Context, group, typeName string, regenerate Regenerator, opts ...GetOption) (*schema.Definition, error) {
	o := buildOptions(opts)
	key := localKey{group, typeName}

	c.mu.Lock()
	previous, ok := c.local[key]
	c.mu.Unlock()

	if ok && !o.force {
		if c.current(ctx, group, typeName, o.hash(previous)) {
			return previous, nil
		}
		o.force = true
	}

	if o.force {
		c.Evict(group, typeName)
	}

	def, err := regenerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("regenerating %s.%s: %w", group, typeName, err)
	}
	if def != nil {
		c.mu.Lock()
		c.local[key] = def
		c.mu.Unlock()
	}
	return def, nil
}

// current reports whether the shared hash matches the local one
func (c *Cache) current(ctx context.Context, group, typeName, localHash string) bool {
	shared, err := c.SharedHash(ctx, group, typeName)
	if err != nil {
		c.logger.Warn("reading shared definition hash failed, regenerating",
			zap.String("group", group), zap.String("type", typeName), zap.Error(err))
		return false
	}
	if shared != localHash {
		c.logger.Debug("local and shared definition hashes differ",
			zap.String("group", group), zap.String("type", typeName),
			zap.String("local", localHash), zap.String("shared", shared))
		return false
	}
	return true
}

// SharedHash returns the hash other processes published for a record type,
// or "" when none was published
func (c *Cache) SharedHash(ctx context.Context, group, typeName string) (string, error) {
	val, err := c.shared.Get(ctx, HashKey(group, typeName))
	if err != nil {
		if cache.IsCacheMiss(err) {
			return "", nil
		}
		return "", err
	}
	return string(val), nil
}

// PublishChange tells every process that a record type changed. With a
// definition, its hash is written to the shared cache, it becomes the local
// copy, and a DefinitionChanged event is emitted. Without one, the shared
// hash is set to UnknownHash so every copy is treated as stale. Call it only
// after the schema change was committed.
func (c *Cache) PublishChange(ctx context.Context, group, typeName string, def *schema.Definition, opts ...GetOption) error {
	o := buildOptions(opts)

	val := UnknownHash
	if def != nil {
		val = o.hash(def)
	}

	if err := c.shared.Set(ctx, HashKey(group, typeName), []byte(val), 0); err != nil {
		return fmt.Errorf("publishing %s.%s: %w", group, typeName, err)
	}
	c.logger.Debug("published definition change",
		zap.String("group", group), zap.String("type", typeName), zap.String("hash", val))

	if def == nil {
		return nil
	}

	c.mu.Lock()
	c.local[localKey{group, typeName}] = def
	c.mu.Unlock()

	if c.bus == nil {
		return nil
	}
	return c.bus.Emit(ctx, hooks.Event{
		Kind:       hooks.DefinitionChanged,
		Sender:     group,
		Group:      group,
		TypeName:   typeName,
		Definition: def,
		Origin:     c.origin,
	})
}

// Lookup returns the local copy without consulting the shared cache
func (c *Cache) Lookup(group, typeName string) (*schema.Definition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	def, ok := c.local[localKey{group, typeName}]
	return def, ok
}

// Evict removes the local copy, making room for a different definition
// under the same name
func (c *Cache) Evict(group, typeName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.local, localKey{group, typeName})
}
