package migrate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

func TestDiff(t *testing.T) {
	def := readingDefinition().
		AddRelationship(&schema.Relationship{Name: "tags", Target: "tag"}).
		AddRelationship(&schema.Relationship{Name: "owners", Target: "person", Through: "ownership"})

	tests := []struct {
		name string
		snap func() *schema.Snapshot
		want []SchemaChange
	}{
		{
			name: "empty database",
			snap: schema.NewSnapshot,
			want: []SchemaChange{
				{Type: ChangeCreateTable, Table: "reading"},
				{Type: ChangeCreateJunction, Table: "reading_tags"},
			},
		},
		{
			name: "missing column",
			snap: func() *schema.Snapshot {
				s := schema.NewSnapshot()
				s.AddTable("reading", "id", "temperature")
				s.AddTable("reading_tags", "id")
				return s
			},
			want: []SchemaChange{
				{Type: ChangeAddColumn, Table: "reading", Column: "station"},
			},
		},
		{
			name: "up to date",
			snap: func() *schema.Snapshot {
				s := schema.NewSnapshot()
				s.AddTable("reading", "id", "station", "temperature", "legacy")
				s.AddTable("reading_tags")
				return s
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Diff(def, tt.snap())
			if diff := cmp.Diff(tt.want, plan.Changes); diff != "" {
				t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlan_String(t *testing.T) {
	plan := Diff(readingDefinition(), schema.NewSnapshot())
	assert.Equal(t, "create_table reading", plan.String())

	s := schema.NewSnapshot()
	s.AddTable("reading", "id")
	plan = Diff(readingDefinition(), s)
	assert.Equal(t, "add_column reading.station\nadd_column reading.temperature", plan.String())

	s.AddTable("reading", "station", "temperature")
	assert.Equal(t, "reading: up to date", Diff(readingDefinition(), s).String())
}
