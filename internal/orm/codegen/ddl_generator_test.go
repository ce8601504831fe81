package codegen

import (
	"strings"
	"testing"

	"github.com/conduit-lang/schemasync/internal/orm/schema"
)

func intPtr(i int) *int { return &i }

func TestDDLGenerator_GenerateCreateTable_Postgres(t *testing.T) {
	gen := NewDDLGenerator(Postgres)

	def := schema.NewDefinition("blog", "Post", "blog_post").
		AddColumn(&schema.Column{Name: "title", Type: &schema.TypeSpec{BaseType: schema.TypeString, Length: intPtr(120)}, Unique: true}).
		AddColumn(&schema.Column{Name: "views", Type: &schema.TypeSpec{BaseType: schema.TypeInt, Default: 0}}).
		AddColumn(&schema.Column{Name: "author_id", Type: &schema.TypeSpec{BaseType: schema.TypeInt, Nullable: true},
			References: &schema.ForeignKey{Table: "blog_author", OnDelete: schema.CascadeSetNull}})

	ddl, err := gen.GenerateCreateTable(def)
	if err != nil {
		t.Fatalf("GenerateCreateTable() error = %v", err)
	}

	expected := []string{
		`CREATE TABLE IF NOT EXISTS "blog_post"`,
		`"id" SERIAL PRIMARY KEY,`,
		`"title" VARCHAR(120) NOT NULL,`,
		`"views" INTEGER NOT NULL DEFAULT 0,`,
		`"author_id" INTEGER NULL`,
	}
	for _, exp := range expected {
		if !strings.Contains(ddl.Statement, exp) {
			t.Errorf("GenerateCreateTable() missing %q\nGot:\n%s", exp, ddl.Statement)
		}
	}
	if strings.Contains(ddl.Statement, "REFERENCES") {
		t.Errorf("PostgreSQL foreign keys should be deferred, got:\n%s", ddl.Statement)
	}

	wantDeferred := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS "uq_blog_post_title" ON "blog_post" ("title");`,
		`ALTER TABLE "blog_post" ADD CONSTRAINT "fk_blog_post_author_id" FOREIGN KEY ("author_id") REFERENCES "blog_author" ("id") ON DELETE SET NULL;`,
	}
	if len(ddl.Deferred) != len(wantDeferred) {
		t.Fatalf("Deferred = %v, want %v", ddl.Deferred, wantDeferred)
	}
	for i := range wantDeferred {
		if ddl.Deferred[i] != wantDeferred[i] {
			t.Errorf("Deferred[%d] = %q, want %q", i, ddl.Deferred[i], wantDeferred[i])
		}
	}
}

func TestDDLGenerator_GenerateCreateTable_KeepsDeclarationOrder(t *testing.T) {
	gen := NewDDLGenerator(SQLite)

	def := schema.NewDefinition("g", "T", "t").
		AddColumn(&schema.Column{Name: "zeta", Type: &schema.TypeSpec{BaseType: schema.TypeText}}).
		AddColumn(&schema.Column{Name: "alpha", Type: &schema.TypeSpec{BaseType: schema.TypeText}})

	ddl, err := gen.GenerateCreateTable(def)
	if err != nil {
		t.Fatalf("GenerateCreateTable() error = %v", err)
	}

	zeta := strings.Index(ddl.Statement, `"zeta"`)
	alpha := strings.Index(ddl.Statement, `"alpha"`)
	if zeta < 0 || alpha < 0 || zeta > alpha {
		t.Errorf("expected zeta before alpha, got:\n%s", ddl.Statement)
	}
}

func TestDDLGenerator_GenerateCreateTable_Nil(t *testing.T) {
	gen := NewDDLGenerator(Postgres)
	if _, err := gen.GenerateCreateTable(nil); err == nil {
		t.Error("expected error for nil definition")
	}
}

func TestDDLGenerator_GenerateAddColumn(t *testing.T) {
	tests := []struct {
		name         string
		dialect      Dialect
		col          *schema.Column
		wantStmt     string
		wantDeferred int
		wantErr      bool
	}{
		{
			name:     "nullable text",
			dialect:  Postgres,
			col:      &schema.Column{Name: "note", Type: &schema.TypeSpec{BaseType: schema.TypeText, Nullable: true}},
			wantStmt: `ALTER TABLE "t" ADD COLUMN "note" TEXT NULL;`,
		},
		{
			name:         "indexed sqlite",
			dialect:      SQLite,
			col:          &schema.Column{Name: "at", Type: &schema.TypeSpec{BaseType: schema.TypeTimestamp, Nullable: true}, Index: true},
			wantStmt:     `ALTER TABLE "t" ADD COLUMN "at" DATETIME NULL;`,
			wantDeferred: 1,
		},
		{
			name:     "bool default",
			dialect:  SQLite,
			col:      &schema.Column{Name: "ok", Type: &schema.TypeSpec{BaseType: schema.TypeBool, Default: true}},
			wantStmt: `ALTER TABLE "t" ADD COLUMN "ok" BOOLEAN NOT NULL DEFAULT TRUE;`,
		},
		{
			name:    "primary rejected",
			dialect: Postgres,
			col:     &schema.Column{Name: "pk", Type: &schema.TypeSpec{BaseType: schema.TypeInt}, Primary: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ddl, err := NewDDLGenerator(tt.dialect).GenerateAddColumn("t", tt.col)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateAddColumn() error = %v", err)
			}
			if ddl.Statement != tt.wantStmt {
				t.Errorf("Statement = %q, want %q", ddl.Statement, tt.wantStmt)
			}
			if len(ddl.Deferred) != tt.wantDeferred {
				t.Errorf("Deferred = %v, want %d statements", ddl.Deferred, tt.wantDeferred)
			}
		})
	}
}

func TestDDLGenerator_RenameAndDrop(t *testing.T) {
	pg := NewDDLGenerator(Postgres)
	lite := NewDDLGenerator(SQLite)

	if got := pg.GenerateRenameTable("a", "b"); got != `ALTER TABLE "a" RENAME TO "b";` {
		t.Errorf("GenerateRenameTable() = %q", got)
	}
	if got := lite.GenerateRenameColumn("t", "a", "b"); got != `ALTER TABLE "t" RENAME COLUMN "a" TO "b";` {
		t.Errorf("GenerateRenameColumn() = %q", got)
	}
	if got := pg.GenerateDropTable("t"); got != `DROP TABLE "t" CASCADE;` {
		t.Errorf("GenerateDropTable(postgres) = %q", got)
	}
	if got := lite.GenerateDropTable("t"); got != `DROP TABLE "t";` {
		t.Errorf("GenerateDropTable(sqlite) = %q", got)
	}

	if got := pg.GenerateDropColumn("t", "c"); len(got) != 1 || got[0] != `ALTER TABLE "t" DROP COLUMN "c";` {
		t.Errorf("GenerateDropColumn(postgres) = %v", got)
	}
	got := lite.GenerateDropColumn("t", "c")
	if len(got) != 3 || got[2] != `ALTER TABLE "t" DROP COLUMN "c";` {
		t.Errorf("GenerateDropColumn(sqlite) = %v", got)
	}
}

func TestDDLGenerator_GenerateJunctionTable(t *testing.T) {
	gen := NewDDLGenerator(Postgres)

	ddl, err := gen.GenerateJunctionTable("person", &schema.Relationship{Name: "friends", Target: "person"})
	if err != nil {
		t.Fatalf("GenerateJunctionTable() error = %v", err)
	}
	for _, exp := range []string{`"person_friends"`, `"from_person_id" INTEGER NOT NULL`, `"to_person_id" INTEGER NOT NULL`} {
		if !strings.Contains(ddl.Statement, exp) {
			t.Errorf("junction missing %q\nGot:\n%s", exp, ddl.Statement)
		}
	}
	last := ddl.Deferred[len(ddl.Deferred)-1]
	if !strings.HasPrefix(last, `CREATE UNIQUE INDEX IF NOT EXISTS "uq_person_friends_from_person_id_to_person_id"`) {
		t.Errorf("last deferred = %q", last)
	}

	if _, err := gen.GenerateJunctionTable("person", &schema.Relationship{Name: "groups", Target: "group", Through: "membership"}); err == nil {
		t.Error("expected error for relationship with explicit link entity")
	}
}

func TestDDLGenerator_GenerateRenameIndex(t *testing.T) {
	pg, err := NewDDLGenerator(Postgres).GenerateRenameIndex("uq_station_code", "uq_station_code_deleted_1", "")
	if err != nil {
		t.Fatalf("GenerateRenameIndex() error = %v", err)
	}
	if len(pg) != 1 || pg[0] != `ALTER INDEX "uq_station_code" RENAME TO "uq_station_code_deleted_1";` {
		t.Errorf("GenerateRenameIndex(postgres) = %q", pg)
	}

	lite := NewDDLGenerator(SQLite)
	stmts, err := lite.GenerateRenameIndex("uq_station_code", "uq_station_code_deleted_1",
		`CREATE UNIQUE INDEX "uq_station_code" ON "station" ("code_deleted_1")`)
	if err != nil {
		t.Fatalf("GenerateRenameIndex() error = %v", err)
	}
	want := []string{
		`DROP INDEX "uq_station_code";`,
		`CREATE UNIQUE INDEX "uq_station_code_deleted_1" ON "station" ("code_deleted_1");`,
	}
	if len(stmts) != len(want) {
		t.Fatalf("GenerateRenameIndex(sqlite) = %q", stmts)
	}
	for i := range want {
		if stmts[i] != want[i] {
			t.Errorf("statement %d = %q, want %q", i, stmts[i], want[i])
		}
	}

	if _, err := lite.GenerateRenameIndex("uq_other", "x", `CREATE INDEX "idx_a" ON "a" ("b")`); err == nil {
		t.Error("expected error when the definition does not name the index")
	}

	if got := lite.GenerateRenameConstraint("station", "fk_a", "fk_b"); got != `ALTER TABLE "station" RENAME CONSTRAINT "fk_a" TO "fk_b";` {
		t.Errorf("GenerateRenameConstraint() = %q", got)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := QuoteIdentifier(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteIdentifier() = %q", got)
	}
}

func TestDialectForDriver(t *testing.T) {
	tests := []struct {
		driver  string
		want    Dialect
		wantErr bool
	}{
		{"pgx", Postgres, false},
		{"postgres", Postgres, false},
		{"sqlite3", SQLite, false},
		{"mysql", 0, true},
	}
	for _, tt := range tests {
		got, err := DialectForDriver(tt.driver)
		if (err != nil) != tt.wantErr {
			t.Errorf("DialectForDriver(%q) error = %v", tt.driver, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DialectForDriver(%q) = %v, want %v", tt.driver, got, tt.want)
		}
	}

	if Postgres.Placeholder(2) != "$2" || SQLite.Placeholder(2) != "?" {
		t.Error("unexpected placeholders")
	}
}
