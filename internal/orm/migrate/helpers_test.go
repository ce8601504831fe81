package migrate

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/schemasync/internal/orm/codegen"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

// setupSQLite returns an executor over a private in-memory database
func setupSQLite(t *testing.T) (*SQLExecutor, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return NewSQLExecutor(db, codegen.SQLite), db
}

func nullable(base schema.PrimitiveType) *schema.TypeSpec {
	return &schema.TypeSpec{BaseType: base, Nullable: true}
}

func readingDefinition() *schema.Definition {
	return schema.NewDefinition("weather", "Reading", "reading").
		AddColumn(&schema.Column{Name: "station", Type: nullable(schema.TypeString), Index: true}).
		AddColumn(&schema.Column{Name: "temperature", Type: nullable(schema.TypeFloat)})
}
