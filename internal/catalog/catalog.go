// Package catalog loads record type definitions declared in YAML files and
// registers them as registry producers.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/schemasync/internal/orm/registry"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
	"github.com/conduit-lang/schemasync/internal/orm/slug"
)

// File is the top level of a catalog document
type File struct {
	Groups []Group `yaml:"groups"`
}

// Group is a named set of record types
type Group struct {
	Name  string `yaml:"name"`
	Types []Type `yaml:"types"`
}

// Type declares one record type
type Type struct {
	Name          string         `yaml:"name"`
	Table         string         `yaml:"table,omitempty"`
	DependsOn     []string       `yaml:"depends_on,omitempty"`
	Columns       []Column       `yaml:"columns"`
	Relationships []Relationship `yaml:"relationships,omitempty"`
}

// Column declares one column
type Column struct {
	Name       string      `yaml:"name"`
	Type       string      `yaml:"type"`
	Nullable   bool        `yaml:"nullable,omitempty"`
	Default    interface{} `yaml:"default,omitempty"`
	Length     *int        `yaml:"length,omitempty"`
	Precision  *int        `yaml:"precision,omitempty"`
	Scale      *int        `yaml:"scale,omitempty"`
	Values     []string    `yaml:"values,omitempty"`
	Unique     bool        `yaml:"unique,omitempty"`
	Index      bool        `yaml:"index,omitempty"`
	References *Reference  `yaml:"references,omitempty"`
}

// Reference declares a foreign key
type Reference struct {
	Table    string `yaml:"table"`
	Column   string `yaml:"column,omitempty"`
	OnDelete string `yaml:"on_delete,omitempty"`
}

// Relationship declares a many-to-many link
type Relationship struct {
	Name    string `yaml:"name"`
	Target  string `yaml:"target"`
	Through string `yaml:"through,omitempty"`
}

// Parse decodes a catalog document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &f, nil
}

// Load reads and parses the catalog at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Definitions builds and validates the definitions of every declared type
func (f *File) Definitions() ([]*schema.Definition, error) {
	var defs []*schema.Definition
	for _, g := range f.Groups {
		for _, t := range g.Types {
			def, err := t.Definition(g.Name)
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// Register adds a producer for every declared type to reg
func (f *File) Register(reg *registry.Registry) error {
	for _, g := range f.Groups {
		for _, t := range g.Types {
			def, err := t.Definition(g.Name)
			if err != nil {
				return err
			}
			produce := func(ctx context.Context) ([]*schema.Definition, error) {
				return []*schema.Definition{def}, nil
			}
			deps := make([]string, len(t.DependsOn))
			for i, d := range t.DependsOn {
				deps[i] = slug.ToTypeName(d)
			}
			if err := reg.Register(g.Name, def.Name, deps, produce); err != nil {
				return err
			}
		}
	}
	return nil
}

// Definition builds the definition of t within group. Names are run
// through the slug rules: the type name is title-cased, the table name
// defaults to group_type, and column names become field names.
func (t Type) Definition(group string) (*schema.Definition, error) {
	if _, err := slug.Validate(group); err != nil {
		return nil, fmt.Errorf("group %q: %w", group, err)
	}
	if _, err := slug.Validate(t.Name); err != nil {
		return nil, fmt.Errorf("type %q: %w", t.Name, err)
	}

	table := t.Table
	if table == "" {
		table = slug.ToIdentifier(group + "_" + t.Name)
	}
	def := schema.NewDefinition(group, slug.ToTypeName(t.Name), table)

	for _, c := range t.Columns {
		col, err := c.column()
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", t.Name, err)
		}
		def.AddColumn(col)
	}
	for _, r := range t.Relationships {
		def.AddRelationship(&schema.Relationship{
			Name:    slug.ToIdentifier(r.Name),
			Target:  r.Target,
			Through: r.Through,
		})
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func (c Column) column() (*schema.Column, error) {
	if _, err := slug.Validate(c.Name); err != nil {
		return nil, fmt.Errorf("column %q: %w", c.Name, err)
	}

	base, err := schema.ParsePrimitiveType(c.Type)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", c.Name, err)
	}
	if base == schema.TypeEnum && len(c.Values) == 0 {
		return nil, fmt.Errorf("column %s: enum needs values", c.Name)
	}

	col := &schema.Column{
		Name: slug.ToFieldName(c.Name),
		Type: &schema.TypeSpec{
			BaseType:   base,
			Nullable:   c.Nullable,
			Default:    c.Default,
			EnumValues: c.Values,
			Length:     c.Length,
			Precision:  c.Precision,
			Scale:      c.Scale,
		},
		Unique: c.Unique,
		Index:  c.Index,
	}

	if c.References != nil {
		action, err := schema.ParseCascadeAction(c.References.OnDelete)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		col.References = &schema.ForeignKey{
			Table:    c.References.Table,
			Column:   c.References.Column,
			OnDelete: action,
		}
	}
	return col, nil
}

// Only returns the catalog restricted to the named groups. Without names
// the catalog is returned unchanged.
func (f *File) Only(groups ...string) *File {
	if len(groups) == 0 {
		return f
	}
	want := make(map[string]bool, len(groups))
	for _, g := range groups {
		want[g] = true
	}

	out := &File{}
	for _, g := range f.Groups {
		if want[g.Name] {
			out.Groups = append(out.Groups, g)
		}
	}
	return out
}
