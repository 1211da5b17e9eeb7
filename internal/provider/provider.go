// Package provider derives the supplier label stamped on every record of a unit
// from the unit's file name.
package provider

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// pageSuffixRe matches the ordinal suffix added by the paginator.
	pageSuffixRe = regexp.MustCompile(`_pagina_\p{Nd}+`)
	// separatorRe matches digit and underscore runs left in the stem.
	separatorRe = regexp.MustCompile(`[_\p{Nd}]+`)
)

// Derive maps a file name to a provider label. It is total and pure:
// extension strip, page-suffix strip, digit/underscore runs to single spaces,
// trim, title case. Pages of the same document yield the same label.
func Derive(fileName string) string {
	name := stripExt(fileName)
	name = pageSuffixRe.ReplaceAllString(name, "")
	name = separatorRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	return titleCase(name)
}

// stripExt removes the last extension. Leading dots do not start an
// extension, so ".env" is kept whole.
func stripExt(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return name
	}
	if strings.TrimLeft(name[:dot], ".") == "" {
		return name
	}
	return name[:dot]
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			b.WriteRune(unicode.ToTitle(r))
		case isLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}
