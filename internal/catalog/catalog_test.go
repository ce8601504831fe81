package catalog

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/schemasync/internal/orm/codegen"
	"github.com/conduit-lang/schemasync/internal/orm/hooks"
	"github.com/conduit-lang/schemasync/internal/orm/migrate"
	"github.com/conduit-lang/schemasync/internal/orm/registry"
	"github.com/conduit-lang/schemasync/internal/orm/schema"
	"github.com/conduit-lang/schemasync/internal/orm/slug"
)

func TestLoad(t *testing.T) {
	f, err := Load("testdata/weather.yaml")
	require.NoError(t, err)

	defs, err := f.Definitions()
	require.NoError(t, err)
	require.Len(t, defs, 2)

	station, reading := defs[0], defs[1]
	assert.Equal(t, "Station", station.Name)
	assert.Equal(t, "weather_station", station.Table)

	assert.Equal(t, "Reading", reading.Name)
	assert.Equal(t, "weather_reading", reading.Table)
	assert.Equal(t, []string{"id", "station", "wind_speed", "unit"}, reading.ColumnNames())

	unit, ok := reading.Column("unit")
	require.True(t, ok)
	assert.Equal(t, schema.TypeEnum, unit.Type.BaseType)
	assert.Equal(t, []string{"c", "f"}, unit.Type.EnumValues)
	assert.Equal(t, "c", unit.Type.Default)

	st, ok := reading.Column("station")
	require.True(t, ok)
	require.NotNil(t, st.References)
	assert.Equal(t, schema.CascadeCascade, st.References.OnDelete)

	require.Len(t, reading.Relationships, 1)
	assert.Equal(t, "weather_reading_tags", reading.Relationships[0].JunctionTable(reading.Table))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown key",
			doc:  "groups:\n  - name: weather\n    colour: blue\n",
			want: "colour",
		},
		{
			name: "unknown column type",
			doc:  "groups:\n  - name: weather\n    types:\n      - name: reading\n        columns:\n          - {name: temp, type: money}\n",
			want: "unknown primitive type",
		},
		{
			name: "enum without values",
			doc:  "groups:\n  - name: weather\n    types:\n      - name: reading\n        columns:\n          - {name: unit, type: enum}\n",
			want: "enum needs values",
		},
		{
			name: "invalid column slug",
			doc:  "groups:\n  - name: weather\n    types:\n      - name: reading\n        columns:\n          - {name: 9lives, type: int}\n",
			want: "9lives",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(strings.NewReader(tt.doc))
			if err == nil {
				_, err = f.Definitions()
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_InvalidSlugKind(t *testing.T) {
	doc := "groups:\n  - name: weather\n    types:\n      - name: _noconflict_x\n        columns: []\n"
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	_, err = f.Definitions()
	assert.ErrorIs(t, err, slug.ErrInvalidCharacter)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Groups)
}

func TestRegister_DependenciesGateProducers(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	exec := migrate.NewSQLExecutor(db, codegen.SQLite)
	reg := registry.New(migrate.NewSyncer(exec))
	bus := hooks.NewBus()
	reg.Watch(bus)
	ctx := context.Background()

	f, err := Load("testdata/weather.yaml")
	require.NoError(t, err)
	require.NoError(t, f.Register(reg))

	// Station has no dependencies and is created by bootstrap; Reading waits
	// for Station to become available
	require.NoError(t, reg.Bootstrap(ctx))
	tables, err := exec.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"weather_station"}, tables)

	require.NoError(t, bus.Emit(ctx, hooks.Event{Kind: hooks.TypeAvailable, Group: "weather", TypeName: "Station"}))
	tables, err = exec.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"weather_reading", "weather_reading_tags", "weather_station"}, tables)
}

func TestRegister_DependenciesUseSlugs(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	exec := migrate.NewSQLExecutor(db, codegen.SQLite)
	reg := registry.New(migrate.NewSyncer(exec))
	bus := hooks.NewBus()
	reg.Watch(bus)
	ctx := context.Background()

	doc := `groups:
  - name: farm
    types:
      - name: alert
        depends_on: [weather-station]
        columns:
          - name: level
            type: int
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.NoError(t, f.Register(reg))

	require.NoError(t, bus.Emit(ctx, hooks.Event{Kind: hooks.TypeAvailable, Group: "farm", TypeName: "WeatherStation"}))
	tables, err := exec.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"farm_alert"}, tables)
}
