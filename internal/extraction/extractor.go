// Package extraction sends one unit to the model and turns the JSON it
// returns into records.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jonathan/compulsa/internal/llm"
	"github.com/jonathan/compulsa/internal/schemas"
	"github.com/jonathan/compulsa/internal/types"
)

// Options configures an Extractor.
type Options struct {
	Retry         llm.RetryConfig
	Strict        bool // drop records that fail the record schema
	DeleteUploads bool
	Logger        zerolog.Logger
}

// Extractor uploads units and parses the model's answers.
type Extractor struct {
	client        llm.FileGenerator
	retry         llm.RetryConfig
	validator     *schemas.Validator
	deleteUploads bool
	logger        zerolog.Logger
}

// New returns an Extractor backed by client.
func New(client llm.FileGenerator, opts Options) (*Extractor, error) {
	if client == nil {
		return nil, fmt.Errorf("extraction client is required")
	}
	e := &Extractor{
		client:        client,
		retry:         opts.Retry,
		deleteUploads: opts.DeleteUploads,
		logger:        opts.Logger,
	}
	if opts.Strict {
		v, err := schemas.RecordValidator()
		if err != nil {
			return nil, err
		}
		e.validator = v
	}
	return e, nil
}

// Extract uploads the unit, asks for JSON with prompt and returns the
// records found in the answer, in response order.
func (e *Extractor) Extract(ctx context.Context, unitPath, prompt string) ([]types.Record, error) {
	name := filepath.Base(unitPath)
	log := e.logger.With().Str("file", name).Logger()

	var file *llm.UploadedFile
	err := llm.Retry(ctx, e.retry, log, "upload", func(ctx context.Context) error {
		var err error
		file, err = e.client.UploadFile(ctx, unitPath, name, MIMEType(name))
		return err
	})
	if err != nil {
		return nil, &UploadError{File: name, Cause: err}
	}
	log.Debug().Str("uri", file.URI).Msg("unit uploaded")

	if e.deleteUploads {
		defer func() {
			// the request context may already be cancelled
			if err := e.client.DeleteFile(context.WithoutCancel(ctx), file); err != nil {
				log.Warn().Err(err).Msg("failed to delete uploaded file")
			}
		}()
	}

	var text string
	err = llm.Retry(ctx, e.retry, log, "generate", func(ctx context.Context) error {
		var err error
		text, err = e.client.GenerateJSONWithFile(ctx, file, prompt)
		return err
	})
	if err != nil {
		return nil, &GenerationError{File: name, Message: "service call failed", Cause: err}
	}

	payload, err := Decode(text)
	if err != nil {
		message := "response is not valid JSON"
		if errors.Is(err, ErrUnexpectedShape) {
			message = "response has an unexpected shape"
		}
		return nil, &GenerationError{File: name, Message: message, Response: text, Cause: err}
	}

	records, skipped := Fold(payload)
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("response contained non-object entries")
	}

	if e.validator != nil {
		records = e.filterValid(records, log)
	}
	return records, nil
}

func (e *Extractor) filterValid(records []types.Record, log zerolog.Logger) []types.Record {
	kept := records[:0]
	for i, rec := range records {
		if err := e.validator.Validate(map[string]any(rec)); err != nil {
			event := log.Warn().Int("record", i)
			if ve, ok := err.(*schemas.ValidationError); ok {
				event = event.Str("violations", ve.Summary())
			} else {
				event = event.Err(err)
			}
			event.Msg("record dropped")
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// ErrUnexpectedShape is returned by Decode for a JSON value that is neither
// an array nor an object.
var ErrUnexpectedShape = errors.New("response is neither a JSON array nor an object")

// Decode parses response text as exactly one JSON array or object. A
// surrounding markdown fence is removed; any other text before or after the
// value is an error. Numbers are kept as json.Number so prices keep their
// formatting.
func Decode(text string) (any, error) {
	cleaned := llm.CleanJSONBlock(text)
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value at offset %d", dec.InputOffset())
	}

	switch v.(type) {
	case []any, map[string]any:
		return v, nil
	default:
		return nil, ErrUnexpectedShape
	}
}

// Fold turns a decoded response into records. An array yields one record
// per object; a lone object yields itself, unless its only value is an array,
// which is folded instead. It also returns how many entries were skipped for
// not being objects.
func Fold(v any) ([]types.Record, int) {
	switch t := v.(type) {
	case []any:
		records := make([]types.Record, 0, len(t))
		skipped := 0
		for _, item := range t {
			obj, ok := item.(map[string]any)
			if !ok {
				skipped++
				continue
			}
			records = append(records, types.Record(obj))
		}
		return records, skipped
	case map[string]any:
		if len(t) == 1 {
			for _, inner := range t {
				if arr, ok := inner.([]any); ok {
					return Fold(arr)
				}
			}
		}
		return []types.Record{types.Record(t)}, 0
	default:
		return nil, 1
	}
}

// MIMEType returns the upload content type for a unit file name.
func MIMEType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
