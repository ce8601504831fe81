// Package slug validates user-supplied keys and turns them into identifiers
// that are safe to use as table, column, and record type names.
package slug

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ConflictMarker is prefixed to field names that collide with a reserved attribute.
const ConflictMarker = "_noconflict_"

// MaxIdentifierLength is the identifier limit of the lowest supported engine (PostgreSQL).
const MaxIdentifierLength = 63

// Validation failure kinds. A *ValidationError unwraps to exactly one of these.
var (
	ErrEncoding         = errors.New("please use standard letters and numbers, no accents")
	ErrInvalidCharacter = errors.New("a key may only contain letters, numbers and hyphen (-)")
	ErrLeadingDigit     = errors.New("a key must start with a letter, not a number")
	ErrReservedPrefix   = errors.New("a key cannot start with " + ConflictMarker)
)

// ValidationError reports why a raw key was rejected
type ValidationError struct {
	Value string
	Kind  error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Kind.Error()
}

// Unwrap returns the failure kind so callers can use errors.Is
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// ReservedAttributes are names inherent to every record type: the generic
// record accessor surface, the manager, and the base error names.
var ReservedAttributes = map[string]struct{}{
	"id":                      {},
	"pk":                      {},
	"objects":                 {},
	"_base_manager":           {},
	"_default_manager":        {},
	"_meta":                   {},
	"_order":                  {},
	"_state":                  {},
	"_hash":                   {},
	"DoesNotExist":            {},
	"MultipleObjectsReturned": {},
	"save":                    {},
	"save_base":               {},
	"delete":                  {},
	"clean":                   {},
	"clean_fields":            {},
	"full_clean":              {},
	"validate_unique":         {},
	"refresh_from_db":         {},
	"from_db":                 {},
	"serializable_value":      {},
	"prepare_database_save":   {},
	"get_deferred_fields":     {},
	"check":                   {},
	"definition":              {},
	"table":                   {},
	"values":                  {},
	"get":                     {},
	"set":                     {},
}

// Validate checks a slug that will later become an identifier.
// Rules run in order and the first failure wins. On success the input is
// returned unchanged. The empty slug breaks no rule; callers that need a
// name check for it themselves.
func Validate(raw string) (string, error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] > unicode.MaxASCII {
			return "", &ValidationError{Value: raw, Kind: ErrEncoding}
		}
	}

	for _, r := range raw {
		if !isAlnum(r) && r != '-' {
			return "", &ValidationError{Value: raw, Kind: ErrInvalidCharacter}
		}
	}

	if raw != "" && raw[0] >= '0' && raw[0] <= '9' {
		return "", &ValidationError{Value: raw, Kind: ErrLeadingDigit}
	}

	if strings.HasPrefix(raw, ConflictMarker) || strings.HasPrefix(raw, strings.ReplaceAll(ConflictMarker, "_", "-")) {
		return "", &ValidationError{Value: raw, Kind: ErrReservedPrefix}
	}

	return raw, nil
}

// ToIdentifier prepares a value for use as a database or attribute identifier.
// Double underscores are collapsed because they clash with query path syntax.
func ToIdentifier(raw string) string {
	val := strings.ToLower(strings.ReplaceAll(stripNonASCII(raw), "-", "_"))

	val = strings.Map(func(r rune) rune {
		if isAlnum(r) || r == '_' {
			return r
		}
		return -1
	}, val)

	for strings.Contains(val, "__") {
		val = strings.ReplaceAll(val, "__", "_")
	}

	return val
}

// ToFieldName prepares a value for use as a record attribute name
func ToFieldName(raw string) string {
	val := ToIdentifier(raw)
	if IsReserved(val) {
		val = ConflictMarker + val
	}
	return val
}

// ToTypeName builds a class-style name such as "TempSensor" from "temp-sensor".
// Words are title-cased (a letter following a non-letter is upper-cased, all
// other letters lower-cased) and everything but letters is dropped.
func ToTypeName(raw string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range stripNonASCII(raw) {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if isLetter {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
		}
		prevLetter = isLetter
	}
	return b.String()
}

// IsReserved reports whether name collides with a reserved attribute
func IsReserved(name string) bool {
	_, ok := ReservedAttributes[name]
	return ok
}

// IsIdentifier reports whether s is a well-formed identifier: lowercase ASCII
// letters, digits and underscores, not starting with a digit.
func IsIdentifier(s string) bool {
	if s == "" || len(s) > MaxIdentifierLength {
		return false
	}
	if s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' {
			return false
		}
	}
	return true
}

// stripNonASCII drops every rune outside the ASCII range
func stripNonASCII(s string) string {
	t := runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII }))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
