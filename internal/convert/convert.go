// Package convert turns spreadsheets into PDF documents through an office
// suite running headless.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Defaults for OfficeConverter.
const (
	DefaultBinary  = "soffice"
	DefaultTimeout = 2 * time.Minute
)

// Converter converts one spreadsheet into a PDF placed in outputDir and
// returns the PDF path.
type Converter interface {
	Convert(ctx context.Context, spreadsheetPath, outputDir string) (string, error)
}

// ConversionError is returned for any failed conversion. The pipeline treats
// it as a warning and drops the spreadsheet.
type ConversionError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ConversionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conversion of %s failed: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("conversion of %s failed: %s", e.Path, e.Message)
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// OfficeConverter prepares .xlsx workbooks with excelize (active sheet only,
// one page wide) and exports them with the office binary.
type OfficeConverter struct {
	Binary  string
	Timeout time.Duration
	Runner  Runner
	Logger  zerolog.Logger
}

// NewOfficeConverter returns a converter for the given binary. Empty or zero
// arguments use the defaults.
func NewOfficeConverter(binary string, timeout time.Duration, logger zerolog.Logger) *OfficeConverter {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OfficeConverter{
		Binary:  binary,
		Timeout: timeout,
		Runner:  NewExecRunner(logger),
		Logger:  logger,
	}
}

// Convert implements Converter. The source file is never modified.
func (c *OfficeConverter) Convert(ctx context.Context, spreadsheetPath, outputDir string) (string, error) {
	fail := func(msg string, err error) (string, error) {
		return "", &ConversionError{Path: spreadsheetPath, Message: msg, Cause: err}
	}

	if _, err := os.Stat(spreadsheetPath); err != nil {
		return fail("cannot read spreadsheet", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fail("cannot create output dir", err)
	}

	scratch, err := os.MkdirTemp(outputDir, ".convert-*")
	if err != nil {
		return fail("cannot create scratch dir", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	input := spreadsheetPath
	if filepath.Ext(spreadsheetPath) == ".xlsx" {
		prepared := filepath.Join(scratch, filepath.Base(spreadsheetPath))
		sheet, err := PrepareWorkbook(spreadsheetPath, prepared)
		if err != nil {
			return fail("cannot prepare workbook", err)
		}
		c.Logger.Debug().Str("file", filepath.Base(spreadsheetPath)).Str("sheet", sheet).Msg("workbook prepared")
		input = prepared
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := c.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	runner := c.Runner
	if runner == nil {
		runner = NewExecRunner(c.Logger)
	}

	_, stderr, err := runner.Run(runCtx, binary, "--headless", "--convert-to", "pdf", "--outdir", outputDir, input)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fail(fmt.Sprintf("timed out after %s", timeout), err)
		}
		msg := "converter failed"
		if s := strings.TrimSpace(string(stderr)); s != "" {
			msg = fmt.Sprintf("converter failed: %s", truncate(s, 512))
		}
		return fail(msg, err)
	}

	out := OutputPath(spreadsheetPath, outputDir)
	if _, err := os.Stat(out); err != nil {
		return fail("converter produced no output", err)
	}
	return out, nil
}

// OutputPath is where the PDF for spreadsheetPath lands: <outputDir>/<stem>.pdf.
func OutputPath(spreadsheetPath, outputDir string) string {
	base := filepath.Base(spreadsheetPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+".pdf")
}

// PrepareWorkbook writes a copy of src to dst that keeps only the active sheet
// (the last sheet when no valid active sheet is recorded), scaled to one page
// wide with unbounded height. It returns the kept sheet's name.
func PrepareWorkbook(src, dst string) (string, error) {
	f, err := excelize.OpenFile(src)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	idx := f.GetActiveSheetIndex()
	if idx < 0 || idx >= len(sheets) {
		idx = len(sheets) - 1
	}
	keep := sheets[idx]

	for _, name := range sheets {
		if name == keep {
			continue
		}
		if err := f.DeleteSheet(name); err != nil {
			return "", fmt.Errorf("failed to drop sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	fitToPage := true
	if err := f.SetSheetProps(keep, &excelize.SheetPropsOptions{FitToPage: &fitToPage}); err != nil {
		return "", fmt.Errorf("failed to set fit-to-page: %w", err)
	}
	wide, tall := 1, 0
	if err := f.SetPageLayout(keep, &excelize.PageLayoutOptions{FitToWidth: &wide, FitToHeight: &tall}); err != nil {
		return "", fmt.Errorf("failed to set page layout: %w", err)
	}

	if err := f.SaveAs(dst); err != nil {
		return "", fmt.Errorf("failed to save prepared workbook: %w", err)
	}
	return keep, nil
}
