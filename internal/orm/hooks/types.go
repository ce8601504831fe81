// Package hooks is the in-process event bus that connects record mutations
// and type availability to the schema trackers and the registry.
package hooks

import (
	"context"

	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// Kind identifies an event
type Kind int

const (
	// PreSave fires before a governing record is written
	PreSave Kind = iota
	// PostSave fires after a governing record is written
	PostSave
	// PostDelete fires after a governing record is deleted
	PostDelete
	// TypeAvailable fires once per record type that becomes usable
	TypeAvailable
	// DefinitionChanged fires after a definition change was published
	DefinitionChanged
)

// String returns the string representation of the event kind
func (k Kind) String() string {
	switch k {
	case PreSave:
		return "pre_save"
	case PostSave:
		return "post_save"
	case PostDelete:
		return "post_delete"
	case TypeAvailable:
		return "type_available"
	case DefinitionChanged:
		return "definition_changed"
	default:
		return "unknown"
	}
}

// Event is an immutable notification. Mutation events carry the governing
// table as Sender and the mutated record as Instance; type events carry the
// group as Sender.
type Event struct {
	Kind     Kind
	Sender   string
	Instance interface{}
	Created  bool

	Group      string
	TypeName   string
	Definition *schema.Definition

	// Origin identifies the process that emitted the event
	Origin string
}

// Handler reacts to an event
type Handler func(ctx context.Context, ev Event) error

// Predicate selects the events a handler receives
type Predicate func(ev Event) bool

// FromSender matches events sent by sender
func FromSender(sender string) Predicate {
	return func(ev Event) bool {
		return ev.Sender == sender
	}
}

// Any matches every event
func Any(Event) bool {
	return true
}
