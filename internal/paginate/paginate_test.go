package paginate

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/compulsa/internal/testutil"
)

func TestPaginate_SinglePageUnchanged(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WritePDF(t, dir, "raices.pdf", 1)

	units, err := New().Paginate(src)
	require.NoError(t, err)
	assert.Equal(t, []string{src}, units)

	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Len(t, matches, 1, "no copy is made")
}

func TestPaginate_MultiPage(t *testing.T) {
	for _, pages := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("%d pages", pages), func(t *testing.T) {
			dir := t.TempDir()
			src := testutil.WritePDF(t, dir, "soleil.pdf", pages)

			units, err := New().Paginate(src)
			require.NoError(t, err)
			require.Len(t, units, pages)

			for i, u := range units {
				assert.Equal(t, filepath.Join(dir, fmt.Sprintf("soleil_pagina_%d.pdf", i+1)), u)
				n, err := api.PageCountFile(u)
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			}
		})
	}
}

func TestPaginate_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "garbage", data: []byte("not a pdf at all")},
		{name: "empty", data: []byte{}},
		{name: "truncated", data: testutil.PDF(2)[:60]},
		{name: "header only", data: []byte("%PDF-1.4\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testutil.WriteFile(t, t.TempDir(), "roto.pdf", tt.data)

			units, err := New().Paginate(src)
			assert.Nil(t, units)
			var malformed *MalformedDocumentError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, src, malformed.Path)
		})
	}
}

func TestPageCount_TruncatedIsMalformed(t *testing.T) {
	src := testutil.WriteFile(t, t.TempDir(), "roto.pdf", testutil.PDF(2)[:60])

	var n int
	var err error
	require.NotPanics(t, func() { n, err = New().PageCount(src) })
	assert.Zero(t, n)

	var malformed *MalformedDocumentError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, src, malformed.Path)
}

func TestPageCount(t *testing.T) {
	src := testutil.WritePDF(t, t.TempDir(), "x.pdf", 4)

	var p Paginator
	n, err := p.PageCount(src)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestPagePath(t *testing.T) {
	assert.Equal(t, "/w/delite_pagina_12.pdf", PagePath("/w/delite", ".pdf", 12))
}

func TestMalformedDocumentError(t *testing.T) {
	cause := errors.New("boom")
	err := &MalformedDocumentError{Path: "a.pdf", Message: "validation failed", Cause: cause}
	assert.Equal(t, "malformed document a.pdf: validation failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
