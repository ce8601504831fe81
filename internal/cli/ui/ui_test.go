package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Line(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatus(&buf, true)

	s.Line(OutcomeChanged, "created %s", "weather_reading")
	s.Line(OutcomeUnchanged, "weather_station up to date")
	s.Line(OutcomeDeferred, "weather.Reading deferred")
	s.Line(OutcomeFailed, "boom")
	s.Detail("add_column weather_reading.temp")

	assert.Equal(t, "✓ created weather_reading\n"+
		"· weather_station up to date\n"+
		"… weather.Reading deferred\n"+
		"✗ boom\n"+
		"    add_column weather_reading.temp\n", buf.String())
}

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "ORIGINAL", "CURRENT")
	table.AddRow("weather_reading", "weather_reading_deleted_1")
	table.AddRow("temp", "temp_deleted_2", "ignored")

	table.Render()

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "ORIGINAL         CURRENT\n"+
		"weather_reading  weather_reading_deleted_1\n"+
		"temp             temp_deleted_2\n", buf.String())
}

func TestTable_RenderWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()
	assert.Empty(t, buf.String())
}
