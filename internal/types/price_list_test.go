package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordText(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"Articulo": "Ajo GDE $300 por Kilo",
		"Precio": 1500,
		"Proveedor": null,
		"Extra": {"a": 1}
	}`), &rec))

	assert.Equal(t, "Ajo GDE $300 por Kilo", rec.Articulo())
	assert.Equal(t, "1500", rec.Precio())
	assert.Equal(t, "", rec.Proveedor())
	assert.Equal(t, `{"a":1}`, rec.Text("Extra"))
	assert.Equal(t, "", rec.Text("Missing"))
}

func TestWorkingFileSetTotal(t *testing.T) {
	var nilSet *WorkingFileSet
	assert.Equal(t, 0, nilSet.Total())

	set := &WorkingFileSet{
		Documents:    []string{"a.pdf", "b.pdf"},
		Spreadsheets: []string{"c.xlsx"},
		Images:       []string{"d.png"},
	}
	assert.Equal(t, 4, set.Total())
}

func TestUnitName(t *testing.T) {
	u := Unit{Path: "/tmp/run/raices_pagina_2.pdf"}
	assert.Equal(t, "raices_pagina_2.pdf", u.Name())
}

func TestAggregateResultFecha(t *testing.T) {
	res := &AggregateResult{ProcessedAt: time.Date(2025, time.March, 7, 15, 4, 0, 0, time.UTC)}
	assert.Equal(t, "07/03/2025", res.Fecha())
}

func TestAggregateResultExtraColumns(t *testing.T) {
	res := &AggregateResult{
		Records: []Record{
			{"Articulo": "a", "Precio": "1", "Proveedor": "P", "Unidad": "kg", "Codigo": "x1"},
			{"Articulo": "b", "Marca": "m", "Unidad": "u"},
			{"Articulo": "c"},
		},
	}
	assert.Equal(t, []string{"Codigo", "Unidad", "Marca"}, res.ExtraColumns())
}

func TestUnitFailureUnwrap(t *testing.T) {
	cause := assert.AnError
	f := UnitFailure{File: "x.pdf", Stage: "upload", Err: cause}
	assert.ErrorIs(t, f, cause)
	assert.Contains(t, f.Error(), "upload: x.pdf")
}
