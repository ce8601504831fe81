package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// RenderDefinition returns a readable listing of a definition, one line per
// column and relationship
func RenderDefinition(def *schema.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "type %s (%s.%s):\n", def.Name, def.Group, def.Table)

	if len(def.Columns) == 0 && len(def.Relationships) == 0 {
		b.WriteString("    (no columns)\n")
		return b.String()
	}

	for _, col := range def.Columns {
		var flags []string
		if col.Primary {
			flags = append(flags, "primary")
		}
		if col.Auto {
			flags = append(flags, "auto")
		}
		if col.Unique {
			flags = append(flags, "unique")
		}
		if col.Index {
			flags = append(flags, "index")
		}
		if col.Type.Default != nil {
			flags = append(flags, fmt.Sprintf("default=%v", col.Type.Default))
		}
		if col.References != nil {
			flags = append(flags, "-> "+col.References.Table)
		}

		line := fmt.Sprintf("    %-16s %s", col.Name, col.Type)
		if len(flags) > 0 {
			line += " " + strings.Join(flags, " ")
		}
		b.WriteString(line + "\n")
	}

	for _, rel := range def.Relationships {
		via := rel.Through
		if rel.NeedsJunction() {
			via = rel.JunctionTable(def.Table)
		}
		fmt.Fprintf(&b, "    %-16s many_to_many -> %s via %s\n", rel.Name, rel.Target, via)
	}

	return b.String()
}

// RenderSQL returns the full schema of a definition: the CREATE TABLE
// statement, its deferred statements and its junction tables
func (g *DDLGenerator) RenderSQL(def *schema.Definition) (string, error) {
	ddl, err := g.GenerateCreateTable(def)
	if err != nil {
		return "", err
	}

	lines := []string{
		"--",
		"-- " + def.Name,
		"--",
		"",
		ddl.Statement,
	}
	lines = append(lines, ddl.Deferred...)

	for _, rel := range def.Relationships {
		if !rel.NeedsJunction() {
			continue
		}
		junction, err := g.GenerateJunctionTable(def.Table, rel)
		if err != nil {
			return "", err
		}
		lines = append(lines, "", junction.Statement)
		lines = append(lines, junction.Deferred...)
	}
	lines = append(lines, "")

	return strings.Join(lines, "\n"), nil
}
