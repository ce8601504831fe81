package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// DDL is a primary statement plus the statements that must run after it
// (indexes, unique constraints, and on PostgreSQL foreign keys).
type DDL struct {
	Statement string
	Deferred  []string
}

// DDLGenerator generates DDL statements for record type definitions
type DDLGenerator struct {
	dialect    Dialect
	typeMapper *TypeMapper
}

// NewDDLGenerator creates a new DDL generator for the dialect
func NewDDLGenerator(dialect Dialect) *DDLGenerator {
	return &DDLGenerator{
		dialect:    dialect,
		typeMapper: NewTypeMapper(dialect),
	}
}

// Dialect returns the dialect the generator targets
func (g *DDLGenerator) Dialect() Dialect {
	return g.dialect
}

// GenerateCreateTable generates a CREATE TABLE statement for a definition.
// Columns keep their declaration order.
func (g *DDLGenerator) GenerateCreateTable(def *schema.Definition) (*DDL, error) {
	if def == nil {
		return nil, fmt.Errorf("definition cannot be nil")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", QuoteIdentifier(def.Table)))

	ddl := &DDL{}
	for i, col := range def.Columns {
		columnDef, err := g.generateColumnDefinition(col)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		b.WriteString("  ")
		b.WriteString(columnDef)
		if i < len(def.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")

		ddl.Deferred = append(ddl.Deferred, g.columnDeferred(def.Table, col)...)
	}
	b.WriteString(");")

	ddl.Statement = b.String()
	return ddl, nil
}

// GenerateAddColumn generates an ALTER TABLE ... ADD COLUMN statement
func (g *DDLGenerator) GenerateAddColumn(table string, col *schema.Column) (*DDL, error) {
	if col.Primary {
		return nil, fmt.Errorf("column %s: primary key columns cannot be added to an existing table", col.Name)
	}

	columnDef, err := g.generateColumnDefinition(col)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col.Name, err)
	}

	return &DDL{
		Statement: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", QuoteIdentifier(table), columnDef),
		Deferred:  g.columnDeferred(table, col),
	}, nil
}

// GenerateRenameTable generates an ALTER TABLE ... RENAME TO statement
func (g *DDLGenerator) GenerateRenameTable(oldName, newName string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", QuoteIdentifier(oldName), QuoteIdentifier(newName))
}

// GenerateRenameColumn generates an ALTER TABLE ... RENAME COLUMN statement
func (g *DDLGenerator) GenerateRenameColumn(table, oldName, newName string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
		QuoteIdentifier(table), QuoteIdentifier(oldName), QuoteIdentifier(newName))
}

// GenerateDropTable generates a DROP TABLE statement
func (g *DDLGenerator) GenerateDropTable(table string) string {
	if g.dialect == Postgres {
		return fmt.Sprintf("DROP TABLE %s CASCADE;", QuoteIdentifier(table))
	}
	return fmt.Sprintf("DROP TABLE %s;", QuoteIdentifier(table))
}

// GenerateDropColumn generates the statements that drop a column. SQLite
// refuses to drop an indexed column, so its indexes are dropped first.
func (g *DDLGenerator) GenerateDropColumn(table, column string) []string {
	var stmts []string
	if g.dialect == SQLite {
		stmts = append(stmts,
			fmt.Sprintf("DROP INDEX IF EXISTS %s;", QuoteIdentifier(IndexName(table, column))),
			fmt.Sprintf("DROP INDEX IF EXISTS %s;", QuoteIdentifier(UniqueName(table, column))),
		)
	}
	stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", QuoteIdentifier(table), QuoteIdentifier(column)))
	return stmts
}

// GenerateCreateUnique generates a unique index over one or more columns
func (g *DDLGenerator) GenerateCreateUnique(table string, columns ...string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdentifier(c)
	}
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s);",
		QuoteIdentifier(UniqueName(table, columns...)), QuoteIdentifier(table), strings.Join(quoted, ", "))
}

// GenerateRenameIndex generates the statements that give an index a new
// name. SQLite has no ALTER INDEX, so the index is dropped and recreated
// from definition, its stored CREATE INDEX statement.
func (g *DDLGenerator) GenerateRenameIndex(oldName, newName, definition string) ([]string, error) {
	if g.dialect == Postgres {
		return []string{fmt.Sprintf("ALTER INDEX %s RENAME TO %s;", QuoteIdentifier(oldName), QuoteIdentifier(newName))}, nil
	}

	quoted := QuoteIdentifier(oldName)
	if !strings.Contains(definition, quoted) {
		return nil, fmt.Errorf("index %s: definition does not name it: %s", oldName, definition)
	}
	create := strings.TrimSuffix(strings.Replace(definition, quoted, QuoteIdentifier(newName), 1), ";")
	return []string{
		fmt.Sprintf("DROP INDEX %s;", quoted),
		create + ";",
	}, nil
}

// GenerateRenameConstraint generates an ALTER TABLE ... RENAME CONSTRAINT statement
func (g *DDLGenerator) GenerateRenameConstraint(table, oldName, newName string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME CONSTRAINT %s TO %s;",
		QuoteIdentifier(table), QuoteIdentifier(oldName), QuoteIdentifier(newName))
}

// JunctionDefinition returns the implicit junction table of a many-to-many
// relationship owned by owner: an id plus one foreign key to each side
func JunctionDefinition(owner string, rel *schema.Relationship) *schema.Definition {
	ownerCol, targetCol := rel.JunctionColumns(owner)
	return &schema.Definition{
		Table: rel.JunctionTable(owner),
		Columns: []*schema.Column{
			{Name: "id", Type: &schema.TypeSpec{BaseType: schema.TypeInt}, Primary: true, Auto: true},
			{
				Name:       ownerCol,
				Type:       &schema.TypeSpec{BaseType: schema.TypeInt},
				References: &schema.ForeignKey{Table: owner, OnDelete: schema.CascadeCascade},
			},
			{
				Name:       targetCol,
				Type:       &schema.TypeSpec{BaseType: schema.TypeInt},
				References: &schema.ForeignKey{Table: rel.Target, OnDelete: schema.CascadeCascade},
			},
		},
	}
}

// GenerateJunctionTable generates the junction table of a relationship
// together with the unique index over its two foreign keys
func (g *DDLGenerator) GenerateJunctionTable(owner string, rel *schema.Relationship) (*DDL, error) {
	if !rel.NeedsJunction() {
		return nil, fmt.Errorf("relationship %s uses explicit link entity %s", rel.Name, rel.Through)
	}

	junction := JunctionDefinition(owner, rel)
	ddl, err := g.GenerateCreateTable(junction)
	if err != nil {
		return nil, fmt.Errorf("junction %s: %w", junction.Table, err)
	}
	ownerCol, targetCol := rel.JunctionColumns(owner)
	ddl.Deferred = append(ddl.Deferred, g.GenerateCreateUnique(junction.Table, ownerCol, targetCol))
	return ddl, nil
}

// generateColumnDefinition generates a column definition
func (g *DDLGenerator) generateColumnDefinition(col *schema.Column) (string, error) {
	if col.Type == nil {
		return "", fmt.Errorf("type cannot be nil")
	}

	parts := []string{QuoteIdentifier(col.Name)}

	if col.Primary && col.Auto {
		pk, err := g.typeMapper.MapPrimaryKey(col.Type)
		if err != nil {
			return "", err
		}
		return strings.Join(append(parts, pk), " "), nil
	}

	columnType, err := g.typeMapper.MapType(col.Type)
	if err != nil {
		return "", fmt.Errorf("mapping type: %w", err)
	}
	parts = append(parts, columnType)

	if col.Primary {
		parts = append(parts, "PRIMARY KEY")
	} else {
		parts = append(parts, g.typeMapper.MapNullability(col.Type))
	}

	defaultValue, err := g.typeMapper.MapDefault(col.Type)
	if err != nil {
		return "", fmt.Errorf("mapping default value: %w", err)
	}
	if defaultValue != "" {
		parts = append(parts, "DEFAULT "+defaultValue)
	}

	if len(col.Type.EnumValues) > 0 {
		values := make([]string, len(col.Type.EnumValues))
		for i, v := range col.Type.EnumValues {
			values[i] = quoteLiteral(v)
		}
		parts = append(parts, fmt.Sprintf("CHECK (%s IN (%s))", QuoteIdentifier(col.Name), strings.Join(values, ", ")))
	}

	// SQLite cannot add foreign keys after the fact, so they stay inline
	if col.References != nil && g.dialect == SQLite {
		parts = append(parts, g.referencesClause(col.References))
	}

	return strings.Join(parts, " "), nil
}

// columnDeferred returns the statements that follow a column's creation
func (g *DDLGenerator) columnDeferred(table string, col *schema.Column) []string {
	var stmts []string
	if col.Unique && !col.Primary {
		stmts = append(stmts, g.GenerateCreateUnique(table, col.Name))
	}
	if col.Index && !col.Unique && !col.Primary {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
			QuoteIdentifier(IndexName(table, col.Name)), QuoteIdentifier(table), QuoteIdentifier(col.Name)))
	}
	if col.References != nil && g.dialect == Postgres {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) %s;",
			QuoteIdentifier(table), QuoteIdentifier(ForeignKeyName(table, col.Name)),
			QuoteIdentifier(col.Name), g.referencesClause(col.References)))
	}
	return stmts
}

func (g *DDLGenerator) referencesClause(fk *schema.ForeignKey) string {
	column := fk.Column
	if column == "" {
		column = "id"
	}
	return fmt.Sprintf("REFERENCES %s (%s) ON DELETE %s",
		QuoteIdentifier(fk.Table), QuoteIdentifier(column), onDeleteSQL(fk.OnDelete))
}

func onDeleteSQL(action schema.CascadeAction) string {
	switch action {
	case schema.CascadeCascade:
		return "CASCADE"
	case schema.CascadeSetNull:
		return "SET NULL"
	case schema.CascadeNoAction:
		return "NO ACTION"
	default:
		return "RESTRICT"
	}
}

// IndexName returns the name of the plain index on a column
func IndexName(table, column string) string {
	return "idx_" + table + "_" + column
}

// UniqueName returns the name of the unique index over the columns
func UniqueName(table string, columns ...string) string {
	return "uq_" + table + "_" + strings.Join(columns, "_")
}

// ForeignKeyName returns the name of a column's foreign key constraint
func ForeignKeyName(table, column string) string {
	return "fk_" + table + "_" + column
}
