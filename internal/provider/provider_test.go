package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain pdf", "raices.pdf", "Raices"},
		{"Page suffix", "acme_pagina_1.pdf", "Acme"},
		{"Multi-digit page suffix", "acme_pagina_12.pdf", "Acme"},
		{"Underscore becomes space", "bella_palta.pdf", "Bella Palta"},
		{"Digit runs collapse", "le_soleil_2024_03.pdf", "Le Soleil"},
		{"Digits inside words", "delite2ofertas.pdf", "Delite Ofertas"},
		{"Mixed case normalized", "JUMBALAY.PDF", "Jumbalay"},
		{"Image file", "verduleria_norte.jpeg", "Verduleria Norte"},
		{"Converted spreadsheet", "lista_precios_pagina_3.pdf", "Lista Precios"},
		{"Only last extension stripped", "archivo.tar.gz", "Archivo.Tar"},
		{"Hyphenated", "la-huerta.pdf", "La-Huerta"},
		{"Accented letters", "ñandú_frutas.png", "Ñandú Frutas"},
		{"No extension", "proveedor", "Proveedor"},
		{"Leading dot only", ".pdf", ".Pdf"},
		{"Digits only", "123.pdf", ""},
		{"Empty string", "", ""},
		{"Whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Derive(tt.input))
		})
	}
}

func TestDerive_PageSuffixInvariant(t *testing.T) {
	assert.Equal(t, "Acme", Derive("acme_pagina_1.pdf"))
	assert.Equal(t, Derive("acme_pagina_1.pdf"), Derive("acme_pagina_2.pdf"))
	assert.Equal(t, Derive("bella_palta.pdf"), Derive("bella_palta_pagina_7.pdf"))
}

func TestDerive_Deterministic(t *testing.T) {
	inputs := []string{"raices.pdf", "x_1_y.png", "", "___", "ÀÉÎ_õü.jpg"}
	for _, in := range inputs {
		assert.Equal(t, Derive(in), Derive(in), "input %q", in)
	}
}

func TestStripExt(t *testing.T) {
	assert.Equal(t, "raices", stripExt("raices.pdf"))
	assert.Equal(t, ".env", stripExt(".env"))
	assert.Equal(t, "..hidden", stripExt("..hidden"))
	assert.Equal(t, "noext", stripExt("noext"))
	assert.Equal(t, "trailing", stripExt("trailing."))
}
