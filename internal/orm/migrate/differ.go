package migrate

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/schemasync/internal/orm/codegen"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// ChangeType represents the type of schema change
type ChangeType int

const (
	ChangeCreateTable ChangeType = iota
	ChangeAddColumn
	ChangeCreateJunction
)

// String returns the string representation of the change type
func (c ChangeType) String() string {
	switch c {
	case ChangeCreateTable:
		return "create_table"
	case ChangeAddColumn:
		return "add_column"
	case ChangeCreateJunction:
		return "create_junction"
	default:
		return "unknown"
	}
}

// SchemaChange is one additive change Sync would make
type SchemaChange struct {
	Type   ChangeType
	Table  string
	Column string
}

// String renders the change as "add_column table.column"
func (c SchemaChange) String() string {
	if c.Column != "" {
		return fmt.Sprintf("%s %s.%s", c.Type, c.Table, c.Column)
	}
	return fmt.Sprintf("%s %s", c.Type, c.Table)
}

// Plan is the list of changes needed to bring one definition in line with the database
type Plan struct {
	Definition *schema.Definition
	Changes    []SchemaChange
}

// Empty reports whether the database already matches the definition
func (p *Plan) Empty() bool {
	return len(p.Changes) == 0
}

// String renders the plan one change per line
func (p *Plan) String() string {
	if p.Empty() {
		return fmt.Sprintf("%s: up to date", p.Definition.Table)
	}
	lines := make([]string, len(p.Changes))
	for i, c := range p.Changes {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}

// Diff compares a definition with an introspected snapshot. Only additive
// changes are reported; renames and deletions are driven by the trackers.
func Diff(def *schema.Definition, snap *schema.Snapshot) *Plan {
	plan := &Plan{Definition: def}

	if !snap.HasTable(def.Table) {
		plan.Changes = append(plan.Changes, SchemaChange{Type: ChangeCreateTable, Table: def.Table})
	} else {
		for _, col := range snap.MissingColumns(def) {
			plan.Changes = append(plan.Changes, SchemaChange{Type: ChangeAddColumn, Table: def.Table, Column: col.Name})
		}
	}

	for _, rel := range def.Relationships {
		if !rel.NeedsJunction() {
			continue
		}
		junction := codegen.JunctionDefinition(def.Table, rel).Table
		if !snap.HasTable(junction) {
			plan.Changes = append(plan.Changes, SchemaChange{Type: ChangeCreateJunction, Table: junction})
		}
	}

	return plan
}
