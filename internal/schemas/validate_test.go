package schemas

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordValidator(t *testing.T) {
	v, err := RecordValidator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		record    map[string]any
		wantValid bool
		wantField string
	}{
		{
			name:      "string price",
			record:    map[string]any{"Articulo": "Palta Hass", "Precio": "1.000", "Proveedor": "Bella Palta"},
			wantValid: true,
		},
		{
			name:      "numeric price",
			record:    map[string]any{"Articulo": "Ajo GDE", "Precio": 300, "Proveedor": "Raices"},
			wantValid: true,
		},
		{
			name:      "extra fields allowed",
			record:    map[string]any{"Articulo": "Miel", "Precio": "5.000", "Proveedor": "Soleil", "Unidad": "kg"},
			wantValid: true,
		},
		{
			name:      "missing price",
			record:    map[string]any{"Articulo": "Miel", "Proveedor": "Soleil"},
			wantField: "(root)",
		},
		{
			name:      "empty article",
			record:    map[string]any{"Articulo": "", "Precio": "1", "Proveedor": "X"},
			wantField: "Articulo",
		},
		{
			name:      "price of wrong type",
			record:    map[string]any{"Articulo": "Miel", "Precio": []any{"1"}, "Proveedor": "X"},
			wantField: "Precio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.record)
			if tt.wantValid {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "error should be ValidationError type")
			require.NotEmpty(t, ve.Errors)
			assert.Equal(t, tt.wantField, ve.Errors[0].Field)
			assert.Contains(t, ve.Summary(), tt.wantField)
		})
	}
}

func TestRecordValidator_JSONNumber(t *testing.T) {
	v, err := RecordValidator()
	require.NoError(t, err)

	var rec map[string]any
	dec := json.NewDecoder(strings.NewReader(`{"Articulo": "Ajo", "Precio": 300, "Proveedor": "Raices"}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&rec))

	assert.NoError(t, v.Validate(rec))
}

func TestNewValidator_CustomSchema(t *testing.T) {
	schema := `{"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}}`
	v, err := NewValidator("custom", schema)
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]any{"name": "x"}))

	err = v.Validate(map[string]any{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "validation failed:")
	assert.Contains(t, ve.Error(), "1. (root)")

	assert.Error(t, v.Validate(map[string]any{"name": 1}))
}

func TestNewValidator_InvalidSchema(t *testing.T) {
	v, err := NewValidator("broken", `{"type": 12}`)
	assert.Nil(t, v)

	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "broken", loadErr.Path)
	assert.Contains(t, err.Error(), "failed to load schema broken")
}
