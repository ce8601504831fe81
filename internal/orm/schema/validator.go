package schema

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/schemasync/internal/orm/slug"
)

// ValidationError represents a definition validation error with context
type ValidationError struct {
	Definition string
	Field      string
	Message    string
	Hint       string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Definition != "" {
		b.WriteString(e.Definition)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// Validate checks the structural invariants of a definition: identifiers are
// well formed, column names are unique and do not shadow reserved attributes,
// and there is at most one primary key.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &ValidationError{Message: "definition has no type name"}
	}

	if !slug.IsIdentifier(d.Table) {
		return &ValidationError{
			Definition: d.Name,
			Message:    fmt.Sprintf("invalid table name %q", d.Table),
			Hint:       "build table names with slug.ToIdentifier",
		}
	}

	seen := make(map[string]bool, len(d.Columns))
	primaries := 0

	for _, col := range d.Columns {
		if !slug.IsIdentifier(col.Name) {
			return &ValidationError{
				Definition: d.Name,
				Field:      col.Name,
				Message:    "invalid column name",
				Hint:       "build column names with slug.ToFieldName",
			}
		}
		if seen[col.Name] {
			return &ValidationError{Definition: d.Name, Field: col.Name, Message: "duplicate column"}
		}
		seen[col.Name] = true

		if col.Type == nil {
			return &ValidationError{Definition: d.Name, Field: col.Name, Message: "column has no type"}
		}

		if col.Primary {
			primaries++
		} else if slug.IsReserved(col.Name) {
			return &ValidationError{
				Definition: d.Name,
				Field:      col.Name,
				Message:    "column name collides with a reserved attribute",
				Hint:       fmt.Sprintf("use %q", slug.ConflictMarker+col.Name),
			}
		}

		if col.Type.BaseType == TypeEnum && len(col.Type.EnumValues) == 0 {
			return &ValidationError{Definition: d.Name, Field: col.Name, Message: "enum column has no values"}
		}

		if col.References != nil && !slug.IsIdentifier(col.References.Table) {
			return &ValidationError{
				Definition: d.Name,
				Field:      col.Name,
				Message:    fmt.Sprintf("invalid referenced table %q", col.References.Table),
			}
		}
	}

	if primaries > 1 {
		return &ValidationError{Definition: d.Name, Message: "multiple primary keys"}
	}

	for _, rel := range d.Relationships {
		if !slug.IsIdentifier(rel.Name) || !slug.IsIdentifier(rel.Target) {
			return &ValidationError{
				Definition: d.Name,
				Field:      rel.Name,
				Message:    "invalid relationship name or target",
			}
		}
		if rel.NeedsJunction() && !slug.IsIdentifier(rel.JunctionTable(d.Table)) {
			return &ValidationError{
				Definition: d.Name,
				Field:      rel.Name,
				Message:    fmt.Sprintf("junction table name %q is not a valid identifier", rel.JunctionTable(d.Table)),
			}
		}
	}

	return nil
}
