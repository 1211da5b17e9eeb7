// Package archive expands a supplier archive into a per-run working
// directory and classifies its contents by extension.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/compulsa/internal/types"
)

// Extension sets. Matching is case-sensitive.
var (
	documentExts    = map[string]bool{".pdf": true}
	spreadsheetExts = map[string]bool{".xls": true, ".xlsx": true}
	imageExts       = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}
)

// CorruptArchiveError is returned when the archive cannot be opened or one of
// its entries cannot be materialized.
type CorruptArchiveError struct {
	Path    string
	Message string
	Cause   error
}

func (e *CorruptArchiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corrupt archive %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("corrupt archive %s: %s", e.Path, e.Message)
}

func (e *CorruptArchiveError) Unwrap() error {
	return e.Cause
}

// NewWorkDir creates a fresh working directory for one run under parent.
// An empty parent uses the OS temp directory.
func NewWorkDir(parent, runID string) (string, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", fmt.Errorf("failed to create work dir parent %s: %w", parent, err)
		}
	}
	dir, err := os.MkdirTemp(parent, "compulsa-"+runID+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	return dir, nil
}

// Expand extracts the zip archive at archivePath under workRoot and
// classifies the result.
func Expand(archivePath, workRoot string) (*types.WorkingFileSet, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &CorruptArchiveError{Path: archivePath, Message: "cannot open", Cause: err}
	}
	defer func() { _ = zr.Close() }()

	return expand(&zr.Reader, archivePath, workRoot)
}

func expand(zr *zip.Reader, name, workRoot string) (*types.WorkingFileSet, error) {
	root, err := filepath.Abs(workRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work root: %w", err)
	}

	for _, f := range zr.File {
		if err := extractEntry(f, root); err != nil {
			return nil, &CorruptArchiveError{Path: name, Message: fmt.Sprintf("entry %q", f.Name), Cause: err}
		}
	}

	return Classify(root)
}

func extractEntry(f *zip.File, root string) error {
	target, err := safeJoin(root, f.Name)
	if err != nil {
		return err
	}

	mode := f.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		return nil
	case f.FileInfo().IsDir():
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// safeJoin resolves an entry name under root, rejecting names that escape it.
func safeJoin(root, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("absolute path not allowed")
	}
	target := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes working directory")
	}
	return target, nil
}

// Classify walks root in lexical order and sorts every regular file into
// documents, spreadsheets or images by extension. Other files are ignored.
func Classify(root string) (*types.WorkingFileSet, error) {
	set := &types.WorkingFileSet{Root: root}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ext := filepath.Ext(path)
		switch {
		case documentExts[ext]:
			set.Documents = append(set.Documents, path)
		case spreadsheetExts[ext]:
			set.Spreadsheets = append(set.Spreadsheets, path)
		case imageExts[ext]:
			set.Images = append(set.Images, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return set, nil
}
