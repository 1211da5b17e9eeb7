package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n[{\"Articulo\": \"Palta\"}]\n```",
			expected: `[{"Articulo": "Palta"}]`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"Articulo\": \"Palta\"}\n```",
			expected: `{"Articulo": "Palta"}`,
		},
		{
			name:     "fence on one line",
			input:    "```[{\"Precio\": \"1.000\"}]```",
			expected: `[{"Precio": "1.000"}]`,
		},
		{
			name:     "plain array",
			input:    "  [{\"Precio\": \"1.000\"}]\n",
			expected: `[{"Precio": "1.000"}]`,
		},
		{
			name:     "preamble is kept",
			input:    "Aquí está el resultado:\n[{\"Articulo\": \"Ajo\"}]",
			expected: "Aquí está el resultado:\n[{\"Articulo\": \"Ajo\"}]",
		},
		{
			name:     "trailing text is kept",
			input:    "{\"items\": []}\n\n¿Necesitas algo más?",
			expected: "{\"items\": []}\n\n¿Necesitas algo más?",
		},
		{
			name:     "prose after a fence is kept",
			input:    "```json\n[]\n```\nListo.",
			expected: "```json\n[]\n```\nListo.",
		},
		{
			name:     "unclosed fence is kept",
			input:    "```json\n[]",
			expected: "```json\n[]",
		},
		{
			name:     "bare fence",
			input:    "```",
			expected: "```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}
