package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const soleilPrompt = `Extrae la información de los archivos PDF indicados y devuélvela en formato JSON con los siguientes campos:

- Articulo: Nombre completo del artículo, especificando presentación o unidad si corresponde.
- Precio: Valor del precio con separador de miles (Ejemplo: 1.000 o 5.000.000).
- Proveedor: Asigna el nombre 'Soleil' como proveedor.

---

Reglas generales para todos los archivos:
- Los encabezados del JSON deben ser exactamente: Articulo, Precio, Proveedor.
- Si el precio tiene descuentos, selecciona siempre el valor más bajo.
- Si hay varios precios disponibles, elige el que tenga IVA incluido.
- Corrige errores de formato en los precios.
- Reemplaza saltos de línea por espacios y elimina caracteres especiales.
- Extrae todos los artículos sin omitir ninguno, incluso si el precio está incompleto.

---

Ahora estás analizando el archivo: **soleil.pdf**

Aplica únicamente las siguientes reglas específicas:

- Usa únicamente la columna IVA INC. para el precio.


---

Validación final:
- Todos los artículos deben estar presentes.
- Precios correctamente estructurados.
- El JSON final debe ser válido y sin errores antes de entregarlo.`

func TestRender_ExactOutput(t *testing.T) {
	assert.Equal(t, soleilPrompt, Render("soleil.pdf", "Soleil"))
}

func TestRender_KnownFileIncludesRulesVerbatim(t *testing.T) {
	for _, name := range KnownFiles() {
		t.Run(name, func(t *testing.T) {
			block, ok := Rules(name)
			require.True(t, ok)

			prompt := Render(name, "Proveedor X")
			assert.Contains(t, prompt, block)
			assert.NotContains(t, prompt, Fallback())
			assert.Contains(t, prompt, "**"+name+"**")
			assert.Contains(t, prompt, "'Proveedor X'")
		})
	}
}

func TestRender_UnknownFileUsesFallback(t *testing.T) {
	prompt := Render("mercado_central.pdf", "Mercado Central")

	assert.Equal(t, 1, strings.Count(prompt, "- No hay reglas específicas para este archivo."))
	assert.Contains(t, prompt, "**mercado_central.pdf**")
	assert.Contains(t, prompt, "'Mercado Central'")
	for _, name := range KnownFiles() {
		block, _ := Rules(name)
		assert.NotContains(t, prompt, strings.TrimSpace(block))
	}
}

func TestRender_LookupIsCaseInsensitive(t *testing.T) {
	block, ok := Rules("RAICES.PDF")
	require.True(t, ok)

	prompt := Render("Raices.PDF", "Raices")
	assert.Contains(t, prompt, block)
	assert.Contains(t, prompt, "**Raices.PDF**", "file name is rendered as given")
}

func TestRender_PageUnitsDoNotMatchWholeDocumentRules(t *testing.T) {
	_, ok := Rules("raices_pagina_1.pdf")
	assert.False(t, ok)
	assert.Contains(t, Render("raices_pagina_1.pdf", "Raices"), Fallback())
}

func TestRender_GeneralRules(t *testing.T) {
	prompt := Render("x.pdf", "X")

	for _, want := range []string{
		"Los encabezados del JSON deben ser exactamente: Articulo, Precio, Proveedor.",
		"selecciona siempre el valor más bajo",
		"elige el que tenga IVA incluido",
		"elimina caracteres especiales",
		"sin omitir ninguno, incluso si el precio está incompleto",
		"El JSON final debe ser válido",
	} {
		assert.Contains(t, prompt, want)
	}
	assert.False(t, strings.HasPrefix(prompt, "\n"))
	assert.False(t, strings.HasSuffix(prompt, "\n"))
}

func TestRules_RaicesDerivedRecords(t *testing.T) {
	block, ok := Rules("raices.pdf")
	require.True(t, ok)

	assert.Contains(t, block, "`Ajo GDE $300 por Cajón`")
	assert.Contains(t, block, "`Ajo GDE $300 por Kilo`")
	assert.Contains(t, block, "`Ajo GDE $300 por Unidad`")
}

func TestKnownFiles(t *testing.T) {
	assert.Equal(t, []string{
		"bella_palta.pdf",
		"bellapalta.pdf",
		"delite.pdf",
		"delite_ofertas.pdf",
		"jumbalay.pdf",
		"le_soleil.pdf",
		"raices.pdf",
		"soleil.pdf",
	}, KnownFiles())
}

func TestParseRules(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr string
	}{
		{
			name: "shared block",
			input: `
- files: [A.pdf, b.pdf]
  rules: |
    - regla
`,
			want: map[string]string{"a.pdf": "\n- regla\n", "b.pdf": "\n- regla\n"},
		},
		{
			name: "duplicate file",
			input: `
- files: [a.pdf]
  rules: x
- files: [A.PDF]
  rules: y
`,
			wantErr: "more than one rules entry",
		},
		{
			name:    "entry without files",
			input:   "- rules: x\n",
			wantErr: "has no files",
		},
		{
			name:    "invalid yaml",
			input:   "files: [",
			wantErr: "failed to parse rules table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRules([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
