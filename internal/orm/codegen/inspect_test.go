package codegen

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

func readingDefinition() *schema.Definition {
	return schema.NewDefinition("weather", "Reading", "reading").
		AddColumn(&schema.Column{Name: "station", Type: &schema.TypeSpec{BaseType: schema.TypeString, Length: intPtr(50)}, Index: true}).
		AddColumn(&schema.Column{Name: "temperature", Type: &schema.TypeSpec{BaseType: schema.TypeFloat, Nullable: true}}).
		AddColumn(&schema.Column{Name: "unit", Type: &schema.TypeSpec{BaseType: schema.TypeEnum, EnumValues: []string{"c", "f"}, Default: "c"}}).
		AddRelationship(&schema.Relationship{Name: "tags", Target: "tag"})
}

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRenderDefinition_Golden(t *testing.T) {
	newGolden(t).Assert(t, "reading_text", []byte(RenderDefinition(readingDefinition())))
}

func TestRenderSQL_Golden(t *testing.T) {
	for _, dialect := range []Dialect{Postgres, SQLite} {
		t.Run(dialect.String(), func(t *testing.T) {
			out, err := NewDDLGenerator(dialect).RenderSQL(readingDefinition())
			if err != nil {
				t.Fatalf("RenderSQL() error = %v", err)
			}
			newGolden(t).Assert(t, "reading_"+dialect.String(), []byte(out))
		})
	}
}

func TestRenderDefinition_Empty(t *testing.T) {
	def := &schema.Definition{Group: "g", Name: "Empty", Table: "empty"}
	want := "type Empty (g.empty):\n    (no columns)\n"
	if got := RenderDefinition(def); got != want {
		t.Errorf("RenderDefinition() = %q, want %q", got, want)
	}
}
