// Package schema describes runtime-defined record types: their columns,
// relationships, and the introspected state of the live database.
package schema

import (
	"fmt"
)

// PrimitiveType represents the storage kind of a column
type PrimitiveType int

const (
	// Text types
	TypeString PrimitiveType = iota
	TypeText

	// Numeric types
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal

	// Boolean
	TypeBool

	// Time types
	TypeTimestamp
	TypeDate
	TypeTime

	// Unique identifiers
	TypeUUID

	// JSON
	TypeJSON

	// Enum
	TypeEnum
)

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	switch p {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeUUID:
		return "uuid"
	case TypeJSON:
		return "json"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "int":
		return TypeInt, nil
	case "bigint":
		return TypeBigInt, nil
	case "float":
		return TypeFloat, nil
	case "decimal":
		return TypeDecimal, nil
	case "bool":
		return TypeBool, nil
	case "timestamp":
		return TypeTimestamp, nil
	case "date":
		return TypeDate, nil
	case "time":
		return TypeTime, nil
	case "uuid":
		return TypeUUID, nil
	case "json":
		return TypeJSON, nil
	case "enum":
		return TypeEnum, nil
	default:
		return 0, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// TypeSpec is the storage type of a column with its nullability and default
type TypeSpec struct {
	BaseType PrimitiveType
	Nullable bool
	Default  interface{} // nil means no default

	EnumValues []string // For enum types

	// Type parameters (e.g., string(50), decimal(10,2))
	Length    *int
	Precision *int
	Scale     *int
}

// String returns a string representation of the TypeSpec
func (t *TypeSpec) String() string {
	s := t.BaseType.String()
	switch {
	case len(t.EnumValues) > 0:
		s = fmt.Sprintf("enum%v", t.EnumValues)
	case t.Length != nil:
		s = fmt.Sprintf("%s(%d)", s, *t.Length)
	case t.Precision != nil && t.Scale != nil:
		s = fmt.Sprintf("%s(%d,%d)", s, *t.Precision, *t.Scale)
	}

	if t.Nullable {
		return s + "?"
	}
	return s + "!"
}

// CascadeAction represents cascade actions for foreign keys
type CascadeAction int

const (
	CascadeRestrict CascadeAction = iota
	CascadeCascade
	CascadeSetNull
	CascadeNoAction
)

// String returns the string representation of the cascade action
func (c CascadeAction) String() string {
	switch c {
	case CascadeRestrict:
		return "restrict"
	case CascadeCascade:
		return "cascade"
	case CascadeSetNull:
		return "set_null"
	case CascadeNoAction:
		return "no_action"
	default:
		return "unknown"
	}
}

// ParseCascadeAction converts a string to a CascadeAction
func ParseCascadeAction(s string) (CascadeAction, error) {
	switch s {
	case "", "restrict":
		return CascadeRestrict, nil
	case "cascade":
		return CascadeCascade, nil
	case "set_null":
		return CascadeSetNull, nil
	case "no_action":
		return CascadeNoAction, nil
	default:
		return 0, fmt.Errorf("unknown cascade action: %s", s)
	}
}

// ForeignKey points a column at the primary key of another table
type ForeignKey struct {
	Table    string
	Column   string // defaults to "id"
	OnDelete CascadeAction
}

// Column describes one stored attribute of a record type
type Column struct {
	Name    string
	Type    *TypeSpec
	Primary bool
	Auto    bool // database generated value (serial ids)
	Unique  bool
	Index   bool

	References *ForeignKey
}

// Relationship is a many-to-many link to another table. Without Through, an
// implicit junction table is created; with Through, the caller owns the link
// entity and nothing is created for it.
type Relationship struct {
	Name    string
	Target  string // target table
	Through string // explicit user-defined link entity
}

// JunctionTable returns the implicit junction table name for owner
func (r *Relationship) JunctionTable(owner string) string {
	return owner + "_" + r.Name
}

// NeedsJunction reports whether an implicit junction table must be created
func (r *Relationship) NeedsJunction() bool {
	return r.Through == ""
}

// JunctionColumns returns the owner-side and related-side foreign key column names
func (r *Relationship) JunctionColumns(owner string) (string, string) {
	if owner == r.Target {
		return "from_" + owner + "_id", "to_" + r.Target + "_id"
	}
	return owner + "_id", r.Target + "_id"
}
