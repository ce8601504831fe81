package schema

// Definition is a record type defined at runtime: a named description of a
// table. Definitions are not edited in place once published; a structurally
// different definition replaces the old one.
type Definition struct {
	Group string // logical group (application) the type belongs to
	Name  string // type name, e.g. "TempSensor"
	Table string

	Columns       []*Column
	Relationships []*Relationship
}

// NewDefinition creates a definition with an implicit auto-incrementing id column
func NewDefinition(group, name, table string) *Definition {
	return &Definition{
		Group: group,
		Name:  name,
		Table: table,
		Columns: []*Column{
			{Name: "id", Type: &TypeSpec{BaseType: TypeInt}, Primary: true, Auto: true},
		},
	}
}

// AddColumn appends a column and returns the definition for chaining
func (d *Definition) AddColumn(col *Column) *Definition {
	d.Columns = append(d.Columns, col)
	return d
}

// AddRelationship appends a many-to-many relationship
func (d *Definition) AddRelationship(rel *Relationship) *Definition {
	d.Relationships = append(d.Relationships, rel)
	return d
}

// Column returns the column with the given name
func (d *Definition) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// HasColumn returns true if the definition has a column with the given name
func (d *Definition) HasColumn(name string) bool {
	_, ok := d.Column(name)
	return ok
}

// PrimaryKey returns the primary key column, or nil if none is declared
func (d *Definition) PrimaryKey() *Column {
	for _, c := range d.Columns {
		if c.Primary {
			return c
		}
	}
	return nil
}

// ColumnNames returns column names in declaration order
func (d *Definition) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}
