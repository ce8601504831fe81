package schema

import "sort"

// Snapshot is the introspected state of the live database: the existing
// tables and, for those that were inspected, their column names. Snapshots
// are recomputed on demand and never persisted.
type Snapshot struct {
	tables map[string]map[string]struct{}
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{tables: make(map[string]map[string]struct{})}
}

// AddTable records a table and any of its known columns
func (s *Snapshot) AddTable(name string, columns ...string) {
	cols, ok := s.tables[name]
	if !ok {
		cols = make(map[string]struct{}, len(columns))
		s.tables[name] = cols
	}
	for _, c := range columns {
		cols[c] = struct{}{}
	}
}

// HasTable reports whether the table exists
func (s *Snapshot) HasTable(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// HasColumn reports whether the column exists on the table
func (s *Snapshot) HasColumn(table, column string) bool {
	cols, ok := s.tables[table]
	if !ok {
		return false
	}
	_, ok = cols[column]
	return ok
}

// Tables returns the sorted table names
func (s *Snapshot) Tables() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Columns returns the sorted column names of a table
func (s *Snapshot) Columns(table string) []string {
	cols := s.tables[table]
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MissingColumns returns the definition's columns absent from the live table,
// in declaration order
func (s *Snapshot) MissingColumns(def *Definition) []*Column {
	var missing []*Column
	for _, c := range def.Columns {
		if !s.HasColumn(def.Table, c.Name) {
			missing = append(missing, c)
		}
	}
	return missing
}
