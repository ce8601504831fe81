package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// TypeMapper maps column types to dialect column types
type TypeMapper struct {
	dialect Dialect
}

// NewTypeMapper creates a new TypeMapper
func NewTypeMapper(dialect Dialect) *TypeMapper {
	return &TypeMapper{dialect: dialect}
}

// MapType converts a TypeSpec to a column type
func (tm *TypeMapper) MapType(typeSpec *schema.TypeSpec) (string, error) {
	if typeSpec == nil {
		return "", fmt.Errorf("type spec cannot be nil")
	}

	switch typeSpec.BaseType {
	case schema.TypeString, schema.TypeEnum:
		if typeSpec.Length != nil {
			return fmt.Sprintf("VARCHAR(%d)", *typeSpec.Length), nil
		}
		return "VARCHAR(255)", nil // Default length

	case schema.TypeText:
		return "TEXT", nil

	case schema.TypeInt:
		return "INTEGER", nil

	case schema.TypeBigInt:
		return "BIGINT", nil

	case schema.TypeFloat:
		if tm.dialect == SQLite {
			return "REAL", nil
		}
		return "DOUBLE PRECISION", nil

	case schema.TypeDecimal:
		if typeSpec.Precision != nil && typeSpec.Scale != nil {
			return fmt.Sprintf("NUMERIC(%d,%d)", *typeSpec.Precision, *typeSpec.Scale), nil
		}
		return "NUMERIC", nil

	case schema.TypeBool:
		return "BOOLEAN", nil

	case schema.TypeTimestamp:
		if tm.dialect == SQLite {
			return "DATETIME", nil
		}
		return "TIMESTAMP WITH TIME ZONE", nil

	case schema.TypeDate:
		return "DATE", nil

	case schema.TypeTime:
		return "TIME", nil

	case schema.TypeUUID:
		if tm.dialect == SQLite {
			return "CHAR(36)", nil
		}
		return "UUID", nil

	case schema.TypeJSON:
		if tm.dialect == SQLite {
			return "TEXT", nil
		}
		return "JSONB", nil

	default:
		return "", fmt.Errorf("unsupported type: %s", typeSpec.BaseType)
	}
}

// MapPrimaryKey returns the full type clause of an auto-generated primary key
func (tm *TypeMapper) MapPrimaryKey(typeSpec *schema.TypeSpec) (string, error) {
	switch typeSpec.BaseType {
	case schema.TypeInt, schema.TypeBigInt:
		if tm.dialect == SQLite {
			return "INTEGER PRIMARY KEY AUTOINCREMENT", nil
		}
		if typeSpec.BaseType == schema.TypeBigInt {
			return "BIGSERIAL PRIMARY KEY", nil
		}
		return "SERIAL PRIMARY KEY", nil
	case schema.TypeUUID:
		if tm.dialect == SQLite {
			return "", fmt.Errorf("auto uuid primary keys are not supported by %s", tm.dialect)
		}
		return "UUID PRIMARY KEY DEFAULT gen_random_uuid()", nil
	default:
		return "", fmt.Errorf("type %s cannot be an auto primary key", typeSpec.BaseType)
	}
}

// MapNullability returns the NULL/NOT NULL constraint for a type
func (tm *TypeMapper) MapNullability(typeSpec *schema.TypeSpec) string {
	if typeSpec.Nullable {
		return "NULL"
	}
	return "NOT NULL"
}

// MapDefault generates the DEFAULT value for a field, or "" when it has none
func (tm *TypeMapper) MapDefault(typeSpec *schema.TypeSpec) (string, error) {
	if typeSpec.Default == nil {
		return "", nil
	}
	return tm.formatDefaultValue(typeSpec, typeSpec.Default)
}

// formatDefaultValue formats a default value for SQL
func (tm *TypeMapper) formatDefaultValue(typeSpec *schema.TypeSpec, value interface{}) (string, error) {
	switch typeSpec.BaseType {
	case schema.TypeString, schema.TypeText, schema.TypeEnum:
		if str, ok := value.(string); ok {
			return quoteLiteral(str), nil
		}
		return "", fmt.Errorf("expected string for text type, got %T", value)

	case schema.TypeInt, schema.TypeBigInt:
		switch v := value.(type) {
		case int:
			return fmt.Sprintf("%d", v), nil
		case int64:
			return fmt.Sprintf("%d", v), nil
		default:
			return "", fmt.Errorf("expected int for integer type, got %T", value)
		}

	case schema.TypeFloat, schema.TypeDecimal:
		switch v := value.(type) {
		case float64:
			return fmt.Sprintf("%g", v), nil
		case float32:
			return fmt.Sprintf("%g", v), nil
		case int:
			return fmt.Sprintf("%d", v), nil
		default:
			return "", fmt.Errorf("expected numeric for float/decimal type, got %T", value)
		}

	case schema.TypeBool:
		if b, ok := value.(bool); ok {
			if b {
				return "TRUE", nil
			}
			return "FALSE", nil
		}
		return "", fmt.Errorf("expected bool for boolean type, got %T", value)

	case schema.TypeUUID:
		if str, ok := value.(string); ok {
			if tm.dialect == Postgres {
				return quoteLiteral(str) + "::uuid", nil
			}
			return quoteLiteral(str), nil
		}
		return "", fmt.Errorf("expected string for UUID type, got %T", value)

	case schema.TypeTimestamp, schema.TypeDate, schema.TypeTime:
		str, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected string for %s type, got %T", typeSpec.BaseType, value)
		}
		switch strings.ToLower(str) {
		case "now()", "current_timestamp":
			return "CURRENT_TIMESTAMP", nil
		case "today()", "current_date":
			return "CURRENT_DATE", nil
		case "current_time":
			return "CURRENT_TIME", nil
		}
		return quoteLiteral(str), nil

	case schema.TypeJSON:
		if str, ok := value.(string); ok {
			if tm.dialect == Postgres {
				return quoteLiteral(str) + "::jsonb", nil
			}
			return quoteLiteral(str), nil
		}
		return "", fmt.Errorf("expected string for JSON type, got %T", value)

	default:
		return "", fmt.Errorf("unsupported default value type: %s", typeSpec.BaseType)
	}
}
