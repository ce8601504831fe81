package slug

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "temperature", nil},
		{"hyphenated", "temp-sensor", nil},
		{"mixed case with digits", "Sensor2-B", nil},
		{"empty", "", nil},
		{"accented", "température", ErrEncoding},
		{"non-ascii before invalid char", "é sensor", ErrEncoding},
		{"space", "temp sensor", ErrInvalidCharacter},
		{"underscore", "temp_sensor", ErrInvalidCharacter},
		{"punctuation", "temp!", ErrInvalidCharacter},
		{"leading digit", "2sensor", ErrLeadingDigit},
		{"hyphen marker", "-noconflict-pk", ErrReservedPrefix},
		{"invalid char wins over digit", "2 sensor", ErrInvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.input)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.input, got)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.input, verr.Value)
		})
	}
}

func TestValidate_UnderscoreMarkerIsInvalidCharacter(t *testing.T) {
	// Underscores fail rule 2 before the reserved prefix rule is reached.
	_, err := Validate("_noconflict_pk")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
}

func TestValidate_AcceptsValidSlugsUnchanged(t *testing.T) {
	inputs := []string{"a", "Z", "abc-def", "x1-2-3", "sensor-", "A-b-C-9"}
	for _, in := range inputs {
		got, err := Validate(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, got)
	}
}

func TestValidate_NonASCIIAlwaysEncodingError(t *testing.T) {
	inputs := []string{"ü", "abcß", "9ä", "日本", "-noconflict-é"}
	for _, in := range inputs {
		_, err := Validate(in)
		assert.ErrorIs(t, err, ErrEncoding, in)
	}
}

func TestToIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Temp--C", "temp_c"},
		{"My--Sensor Name", "my_sensorname"},
		{"temp-sensor", "temp_sensor"},
		{"a___b", "a_b"},
		{"Grüße", "gre"},
		{"already_ok", "already_ok"},
		{"x-_-y", "x_y"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToIdentifier(tt.input)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "__")
			assert.NotContains(t, got, "-")
			assert.NotContains(t, got, " ")
		})
	}
}

func TestToFieldName(t *testing.T) {
	assert.Equal(t, "_noconflict_pk", ToFieldName("pk"))
	assert.Equal(t, "_noconflict_id", ToFieldName("ID"))
	assert.Equal(t, "_noconflict_save", ToFieldName("save"))
	assert.Equal(t, "temperature", ToFieldName("Temperature"))
	assert.Equal(t, "wind_speed", ToFieldName("wind-speed"))
}

func TestToTypeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"temp-sensor", "TempSensor"},
		{"weather station 2", "WeatherStation"},
		{"HELLO", "Hello"},
		{"a1b", "AB"},
		{"café-bar", "CafBar"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ToTypeName(tt.input))
		})
	}
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("temp_c"))
	assert.True(t, IsIdentifier("_noconflict_pk"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("Temp"))
	assert.False(t, IsIdentifier("1abc"))
	assert.False(t, IsIdentifier("temp-c"))
}
