// Package observability provides logging and operator-facing output for the
// CLI: status lines, summary boxes and progress indicators.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/jonathan/compulsa/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for the operator
type Printer struct {
	out     io.Writer
	noColor bool
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// NewPlainPrinter creates a Printer that never emits colour codes.
func NewPlainPrinter(out io.Writer) *Printer {
	return &Printer{out: out, noColor: true}
}

//nolint:errcheck // operator output; errors are not recoverable
func (p *Printer) line(attr color.Attribute, symbol, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c := color.New(attr)
	if p.noColor {
		c.DisableColor()
	}
	c.Fprintf(p.out, "%s %s\n", symbol, msg)
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	p.line(color.FgCyan, "ℹ", format, args...)
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	p.line(color.FgGreen, "✓", format, args...)
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	p.line(color.FgYellow, "⚠", format, args...)
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	p.line(color.FgRed, "✗", format, args...)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", inner, truncate(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", inner, truncate(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSummary outputs the totals of a run and its failures.
func (p *Printer) PrintSummary(result *types.AggregateResult, output string) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:       %s\n", result.RunID))
	sb.WriteString(fmt.Sprintf("Fecha:     %s\n", result.Fecha()))
	sb.WriteString(fmt.Sprintf("Unidades:  %d\n", result.Units))
	sb.WriteString(fmt.Sprintf("Registros: %d\n", len(result.Records)))
	if output != "" {
		sb.WriteString(fmt.Sprintf("Archivo:   %s\n", output))
	}

	if len(result.Failures) > 0 {
		sb.WriteString(fmt.Sprintf("\nErrores (%d):\n", len(result.Failures)))
		count := min(len(result.Failures), maxItemsToShow)
		for i := 0; i < count; i++ {
			f := result.Failures[i]
			sb.WriteString(fmt.Sprintf("  • [%s] %s\n", f.Stage, f.File))
		}
		if len(result.Failures) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Failures)-maxItemsToShow))
		}
	}

	p.printBox("RESUMEN DE EXTRACCIÓN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecords outputs the first records of a run as a preview table.
func (p *Printer) PrintRecords(result *types.AggregateResult) {
	if result == nil || len(result.Records) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(result.Records), maxItemsToShow)
	for i := 0; i < count; i++ {
		rec := result.Records[i]
		sb.WriteString(fmt.Sprintf("%-36s %12s  %s\n",
			truncate(rec.Articulo(), 36), truncate(rec.Precio(), 12), truncate(rec.Proveedor(), 16)))
	}
	if len(result.Records) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more records", len(result.Records)-maxItemsToShow))
	}

	p.printBox("DATOS EXTRAÍDOS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintInspection outputs how a file name would be handled: its provider
// label and whether it has specific rules.
func (p *Printer) PrintInspection(fileName, provider string, hasRules bool) {
	rules := "no (regla genérica)"
	if hasRules {
		rules = "sí"
	}
	content := fmt.Sprintf("Proveedor: %s\nReglas:    %s", provider, rules)
	p.printBox(fileName, content)
}

// PrintKnownFiles outputs the file names that have specific rules.
func (p *Printer) PrintKnownFiles(names []string) {
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("• %s\n", name))
	}
	if len(names) == 0 {
		sb.WriteString("(ninguno)")
	}
	p.printBox("ARCHIVOS CON REGLAS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPrompt outputs a rendered prompt verbatim.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintPrompt(prompt string) {
	fmt.Fprintln(p.out, prompt)
}
