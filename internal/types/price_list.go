// Package types defines the data shared by the price-list extraction stages.
package types

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"time"
)

// Record field names. The first three are requested from the extraction
// service; Fecha is stamped by the pipeline once per run.
const (
	FieldArticulo  = "Articulo"
	FieldPrecio    = "Precio"
	FieldProveedor = "Proveedor"
	FieldFecha     = "Fecha"
)

// DateLayout is the DD/MM/YYYY layout used for the Fecha column.
const DateLayout = "02/01/2006"

// Columns is the fixed column order of the export.
var Columns = []string{FieldArticulo, FieldPrecio, FieldProveedor, FieldFecha}

// UnitKind distinguishes paginated documents from standalone images.
type UnitKind string

const (
	// UnitDocument is a single-page PDF.
	UnitDocument UnitKind = "document"
	// UnitImage is a standalone image file.
	UnitImage UnitKind = "image"
)

// WorkingFileSet holds the classified contents of one expanded archive.
type WorkingFileSet struct {
	Root         string   `json:"root"`
	Documents    []string `json:"documents"`
	Spreadsheets []string `json:"spreadsheets"`
	Images       []string `json:"images"`
}

// Total returns the number of classified files.
func (w *WorkingFileSet) Total() int {
	if w == nil {
		return 0
	}
	return len(w.Documents) + len(w.Spreadsheets) + len(w.Images)
}

// Unit is the atomic item submitted to extraction.
type Unit struct {
	Index  int      `json:"index"`
	Path   string   `json:"path"`
	Kind   UnitKind `json:"kind"`
	Source string   `json:"source"` // file the unit was derived from
}

// Name returns the unit's file name.
func (u Unit) Name() string {
	return filepath.Base(u.Path)
}

// Record is one extracted row. Records are kept as generic JSON objects so
// that whatever the service returns is carried through unchanged.
type Record map[string]any

// Text returns the field rendered as text. Missing and null values are empty;
// non-string values use their JSON encoding.
func (r Record) Text(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Articulo returns the article name.
func (r Record) Articulo() string { return r.Text(FieldArticulo) }

// Precio returns the price as text.
func (r Record) Precio() string { return r.Text(FieldPrecio) }

// Proveedor returns the provider label.
func (r Record) Proveedor() string { return r.Text(FieldProveedor) }

// UnitFailure describes a unit (or source file) dropped during a run.
type UnitFailure struct {
	File  string `json:"file"`
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

// Error implements error.
func (f UnitFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Stage, f.File, f.Err)
}

// Unwrap returns the underlying cause.
func (f UnitFailure) Unwrap() error {
	return f.Err
}

// AggregateResult is the ordered record set produced by one run.
type AggregateResult struct {
	RunID       string        `json:"run_id"`
	ProcessedAt time.Time     `json:"processed_at"`
	Units       int           `json:"units"`
	Records     []Record      `json:"records"`
	Failures    []UnitFailure `json:"failures,omitempty"`
}

// Fecha returns the run date in DD/MM/YYYY form.
func (a *AggregateResult) Fecha() string {
	return a.ProcessedAt.Format(DateLayout)
}

// ExtraColumns returns the record keys outside Columns, in first-seen order.
func (a *AggregateResult) ExtraColumns() []string {
	known := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		known[c] = true
	}
	var extra []string
	for _, rec := range a.Records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			if !known[k] {
				keys = append(keys, k)
			}
		}
		// map order is random; sort within a record for determinism
		slices.Sort(keys)
		for _, k := range keys {
			known[k] = true
			extra = append(extra, k)
		}
	}
	return extra
}
