// Package paginate splits multi-page PDFs into one file per page.
package paginate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageSuffix is inserted between a document's stem and extension to name
// its per-page files.
const PageSuffix = "_pagina_"

// MalformedDocumentError is returned when a document cannot be read as a
// paged PDF.
type MalformedDocumentError struct {
	Path    string
	Message string
	Cause   error
}

func (e *MalformedDocumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed document %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed document %s: %s", e.Path, e.Message)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Cause
}

// Paginator splits documents. The zero value is ready to use.
type Paginator struct {
	conf *model.Configuration
}

// New returns a Paginator using relaxed validation.
func New() *Paginator {
	return &Paginator{conf: relaxedConfig()}
}

func relaxedConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

func (p *Paginator) config() *model.Configuration {
	if p == nil || p.conf == nil {
		return relaxedConfig()
	}
	return p.conf
}

// recoverMalformed turns a panic raised by pdfcpu on damaged input into a
// MalformedDocumentError stored in err. It must be deferred directly.
func recoverMalformed(path, message string, err *error) {
	if r := recover(); r != nil {
		*err = &MalformedDocumentError{Path: path, Message: message, Cause: fmt.Errorf("%v", r)}
	}
}

// PageCount validates the document and returns its number of pages.
func (p *Paginator) PageCount(path string) (n int, err error) {
	defer recoverMalformed(path, "cannot parse", &err)

	if err := api.ValidateFile(path, p.config()); err != nil {
		return 0, &MalformedDocumentError{Path: path, Message: "validation failed", Cause: err}
	}
	n, err = api.PageCountFile(path)
	if err != nil {
		return 0, &MalformedDocumentError{Path: path, Message: "cannot count pages", Cause: err}
	}
	if n < 1 {
		return 0, &MalformedDocumentError{Path: path, Message: "document has no pages"}
	}
	return n, nil
}

// Paginate returns the single-page units for a document. A one-page document
// is returned as is; otherwise page i is written next to the source as
// <stem>_pagina_i<ext> and the paths are returned in page order.
func (p *Paginator) Paginate(path string) ([]string, error) {
	n, err := p.PageCount(path)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		return []string{path}, nil
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	units := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out := PagePath(stem, ext, i)
		if err := p.extractPage(path, out, i); err != nil {
			removeAll(append(units, out))
			return nil, err
		}
		units = append(units, out)
	}
	return units, nil
}

func (p *Paginator) extractPage(path, out string, i int) (err error) {
	message := fmt.Sprintf("cannot extract page %d", i)
	defer recoverMalformed(path, message, &err)

	if err := api.TrimFile(path, out, []string{fmt.Sprint(i)}, p.config()); err != nil {
		return &MalformedDocumentError{Path: path, Message: message, Cause: err}
	}
	return nil
}

// PagePath names the file holding page i of the document stem+ext.
func PagePath(stem, ext string, i int) string {
	return fmt.Sprintf("%s%s%d%s", stem, PageSuffix, i, ext)
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
