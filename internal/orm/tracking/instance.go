// Package tracking detects renames and deletions of governing records and
// mirrors them onto the tables and columns those records name.
package tracking

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a governing identifier across one mutation
type State int

const (
	Unchanged State = iota
	Renamed
	Deleted
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Renamed:
		return "renamed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RenameEvent is the evidence that a governing attribute changed value.
// It lives on the instance between pre-save and post-save only.
type RenameEvent struct {
	Attr     string
	OldValue string
}

// Instance is a governing record: a row of a metadata table whose
// attributes name tables, columns or record types
type Instance struct {
	Table  string
	PK     interface{} // nil until persisted
	Values map[string]interface{}

	mu       sync.Mutex
	evidence map[string]RenameEvent
	renamed  map[string]bool // renames applied by the last save
	deleted  bool
}

// NewInstance creates an unsaved instance of a governing table
func NewInstance(table string, values map[string]interface{}) *Instance {
	if values == nil {
		values = make(map[string]interface{})
	}
	return &Instance{Table: table, Values: values}
}

// Persisted reports whether the instance has a stored identity
func (i *Instance) Persisted() bool {
	return i.PK != nil
}

// String returns an attribute as a string
func (i *Instance) String(attr string) string {
	switch v := i.Values[attr].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Set assigns an attribute
func (i *Instance) Set(attr string, value interface{}) {
	i.Values[attr] = value
}

// Evidence returns the pending rename of attr without consuming it
func (i *Instance) Evidence(attr string) (RenameEvent, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ev, ok := i.evidence[attr]
	return ev, ok
}

// State reports what the current or last save cycle did to attr: Renamed
// while rename evidence is pending and after the rename was applied, until
// the next save starts.
func (i *Instance) State(attr string) State {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.deleted {
		return Deleted
	}
	if _, ok := i.evidence[attr]; ok {
		return Renamed
	}
	if i.renamed[attr] {
		return Renamed
	}
	return Unchanged
}

// Discard drops all pending rename evidence. Record stores call it when a
// write fails after pre-save hooks ran.
func (i *Instance) Discard() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.evidence = nil
}

// MarkDeleted records that the instance was deleted
func (i *Instance) MarkDeleted() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.deleted = true
}

func (i *Instance) attach(ev RenameEvent) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.evidence == nil {
		i.evidence = make(map[string]RenameEvent)
	}
	i.evidence[ev.Attr] = ev
}

// reset forgets the evidence and applied rename of attr at the start of a save cycle
func (i *Instance) reset(attr string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.evidence, attr)
	delete(i.renamed, attr)
}

// markRenamed records that the rename of attr was applied
func (i *Instance) markRenamed(attr string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.renamed == nil {
		i.renamed = make(map[string]bool)
	}
	i.renamed[attr] = true
}

// take removes and returns the evidence for attr
func (i *Instance) take(attr string) (RenameEvent, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ev, ok := i.evidence[attr]
	if ok {
		delete(i.evidence, attr)
	}
	return ev, ok
}
