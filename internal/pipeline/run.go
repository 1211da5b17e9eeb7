// Package pipeline provides the high-level orchestration of one price-list
// extraction run: expand, convert, paginate, extract and aggregate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/compulsa/internal/archive"
	"github.com/jonathan/compulsa/internal/convert"
	"github.com/jonathan/compulsa/internal/extraction"
	"github.com/jonathan/compulsa/internal/paginate"
	"github.com/jonathan/compulsa/internal/prompts"
	"github.com/jonathan/compulsa/internal/provider"
	"github.com/jonathan/compulsa/internal/types"
)

// Stages recorded on failures and progress events.
const (
	StageExpand   = "expand"
	StageConvert  = "convert"
	StagePaginate = "paginate"
	StageUpload   = "upload"
	StageGenerate = "generate"
	StageExtract  = "extract"
)

// Progress steps.
const (
	StepExpanded   = "expanded"
	StepConverted  = "converted"
	StepWorklist   = "worklist"
	StepUnitStart  = "unit_start"
	StepUnitDone   = "unit_done"
	StepUnitFailed = "unit_failed"
	StepFailed     = "failed"
	StepAggregated = "aggregated"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string      `json:"step"`
	Category string      `json:"category"`
	Message  string      `json:"message"`
	RunID    string      `json:"run_id,omitempty"`
	File     string      `json:"file,omitempty"`
	Provider string      `json:"provider,omitempty"`
	Index    int         `json:"index"`
	Total    int         `json:"total"`
	Records  int         `json:"records,omitempty"`
	Err      error       `json:"-"`
	Unit     *types.Unit `json:"unit,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs. With a batch
// size above one it is called from several goroutines, one call at a time.
type ProgressCallback func(event ProgressEvent)

// Expander materializes and classifies an archive.
type Expander interface {
	Expand(archivePath, workRoot string) (*types.WorkingFileSet, error)
}

// Paginator splits a document into single-page units.
type Paginator interface {
	Paginate(path string) ([]string, error)
}

// Extractor turns one unit into records.
type Extractor interface {
	Extract(ctx context.Context, unitPath, prompt string) ([]types.Record, error)
}

// ExpanderFunc adapts a function to Expander.
type ExpanderFunc func(archivePath, workRoot string) (*types.WorkingFileSet, error)

// Expand implements Expander.
func (f ExpanderFunc) Expand(archivePath, workRoot string) (*types.WorkingFileSet, error) {
	return f(archivePath, workRoot)
}

// Deps are the collaborators of an Orchestrator. Expander and Paginator
// default to the zip and pdfcpu implementations; Clock defaults to time.Now.
type Deps struct {
	Expander  Expander
	Converter convert.Converter
	Paginator Paginator
	Extractor Extractor
	Clock     func() time.Time
	Logger    zerolog.Logger
}

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	BatchSize   int
	WorkDir     string
	KeepWorkDir bool
	OnProgress  ProgressCallback
}

// Orchestrator runs the extraction pipeline. It holds no per-run state, so
// one Orchestrator may serve several runs.
type Orchestrator struct {
	deps Deps
	opts RunOptions
}

// New returns an Orchestrator. Converter and Extractor are required.
func New(deps Deps, opts RunOptions) (*Orchestrator, error) {
	if deps.Extractor == nil {
		return nil, fmt.Errorf("pipeline: extractor is required")
	}
	if deps.Converter == nil {
		return nil, fmt.Errorf("pipeline: converter is required")
	}
	if deps.Expander == nil {
		deps.Expander = ExpanderFunc(archive.Expand)
	}
	if deps.Paginator == nil {
		deps.Paginator = paginate.New()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	return &Orchestrator{deps: deps, opts: opts}, nil
}

// run carries the state of one Run call.
type run struct {
	*Orchestrator
	id       string
	log      zerolog.Logger
	mu       sync.Mutex // serializes progress callbacks
	failures []types.UnitFailure
}

func (r *run) emit(ev ProgressEvent) {
	if r.opts.OnProgress == nil {
		return
	}
	ev.RunID = r.id
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts.OnProgress(ev)
}

func (r *run) fail(stage, file string, err error) {
	r.failures = append(r.failures, types.UnitFailure{File: file, Stage: stage, Err: err})
}

// Run processes one archive. It returns an error and no result only when the
// archive cannot be expanded; every per-file failure is recorded in
// Failures and the run continues. If ctx is cancelled the partial result is
// returned together with the context error.
func (o *Orchestrator) Run(ctx context.Context, archivePath string) (*types.AggregateResult, error) {
	r := &run{Orchestrator: o, id: uuid.NewString()}
	r.log = o.deps.Logger.With().Str("run_id", r.id).Logger()

	workDir, err := archive.NewWorkDir(o.opts.WorkDir, r.id)
	if err != nil {
		return nil, err
	}
	if o.opts.KeepWorkDir {
		r.log.Info().Str("work_dir", workDir).Msg("keeping working directory")
	} else {
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				r.log.Warn().Err(err).Str("work_dir", workDir).Msg("failed to remove working directory")
			}
		}()
	}

	// Step 1: expand
	set, err := o.deps.Expander.Expand(archivePath, filepath.Join(workDir, "archivo"))
	if err != nil {
		r.log.Error().Err(err).Str("archive", archivePath).Msg("archive expansion failed")
		r.emit(ProgressEvent{Step: StepFailed, Category: StageExpand, Message: err.Error(), File: filepath.Base(archivePath), Err: err})
		return nil, err
	}
	r.log.Info().
		Int("documents", len(set.Documents)).
		Int("spreadsheets", len(set.Spreadsheets)).
		Int("images", len(set.Images)).
		Msg("archive expanded")
	r.emit(ProgressEvent{Step: StepExpanded, Category: StageExpand, Total: set.Total(),
		Message: fmt.Sprintf("%d documentos, %d planillas, %d imágenes", len(set.Documents), len(set.Spreadsheets), len(set.Images))})

	// Step 2: convert spreadsheets
	converted := r.convertAll(ctx, set.Spreadsheets, filepath.Join(workDir, "convertidos"))

	// Step 3: worklist
	documents := append(append([]string{}, set.Documents...), converted...)
	units := r.buildWorklist(documents, set.Images)
	r.emit(ProgressEvent{Step: StepWorklist, Category: StagePaginate, Total: len(units),
		Message: fmt.Sprintf("%d unidades a procesar", len(units))})

	// Step 4: extract
	results, runErr := r.extractAll(ctx, units)

	// Step 5: aggregate
	result := r.aggregate(units, results)
	r.emit(ProgressEvent{Step: StepAggregated, Category: StageExtract, Total: len(units), Records: len(result.Records),
		Message: fmt.Sprintf("%d registros extraídos", len(result.Records))})
	r.log.Info().
		Int("units", result.Units).
		Int("records", len(result.Records)).
		Int("failures", len(result.Failures)).
		Msg("run finished")

	if runErr != nil {
		return result, fmt.Errorf("run interrupted: %w", runErr)
	}
	return result, nil
}

// convertAll converts each spreadsheet into its own directory under outRoot
// so that same-stem sheets (a/lista.xlsx, b/lista.xlsx, lista.xls) keep their
// file name, and with it their provider label, without overwriting each other.
func (r *run) convertAll(ctx context.Context, sheets []string, outRoot string) []string {
	var converted []string
	for i, sheet := range sheets {
		name := filepath.Base(sheet)
		outDir := filepath.Join(outRoot, strconv.Itoa(i))
		pdf, err := r.deps.Converter.Convert(ctx, sheet, outDir)
		if err != nil {
			r.log.Warn().Err(err).Str("file", name).Msg("spreadsheet skipped")
			r.fail(StageConvert, name, err)
			r.emit(ProgressEvent{Step: StepFailed, Category: StageConvert, File: name, Err: err,
				Message: fmt.Sprintf("No se pudo convertir %s: %v", name, err)})
			continue
		}
		r.emit(ProgressEvent{Step: StepConverted, Category: StageConvert, File: name,
			Message: fmt.Sprintf("%s convertido a %s", name, filepath.Base(pdf))})
		converted = append(converted, pdf)
	}
	return converted
}

func (r *run) buildWorklist(documents, images []string) []types.Unit {
	var units []types.Unit
	add := func(path string, kind types.UnitKind, source string) {
		units = append(units, types.Unit{Index: len(units), Path: path, Kind: kind, Source: source})
	}

	for _, doc := range documents {
		name := filepath.Base(doc)
		pages, err := r.deps.Paginator.Paginate(doc)
		if err != nil {
			r.log.Warn().Err(err).Str("file", name).Msg("document skipped")
			r.fail(StagePaginate, name, err)
			r.emit(ProgressEvent{Step: StepFailed, Category: StagePaginate, File: name, Err: err,
				Message: fmt.Sprintf("No se pudo leer %s: %v", name, err)})
			continue
		}
		for _, page := range pages {
			add(page, types.UnitDocument, doc)
		}
	}
	for _, img := range images {
		add(img, types.UnitImage, img)
	}
	return units
}

type unitResult struct {
	records []types.Record
	err     error
	done    bool
}

func (r *run) extractAll(ctx context.Context, units []types.Unit) ([]unitResult, error) {
	results := make([]unitResult, len(units))

	var g errgroup.Group
	g.SetLimit(r.opts.BatchSize)

	for i := range units {
		unit := units[i]
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[unit.Index] = r.extractUnit(ctx, unit, len(units))
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}

func (r *run) extractUnit(ctx context.Context, unit types.Unit, total int) unitResult {
	name := unit.Name()
	label := provider.Derive(name)
	log := r.log.With().Str("file", name).Str("provider", label).Logger()

	r.emit(ProgressEvent{Step: StepUnitStart, Category: StageExtract, File: name, Provider: label,
		Index: unit.Index, Total: total, Unit: &unit,
		Message: fmt.Sprintf("Procesando: %s (Proveedor: %s)", name, label)})

	prompt := prompts.Render(name, label)
	records, err := r.deps.Extractor.Extract(ctx, unit.Path, prompt)
	if err != nil {
		log.Error().Err(err).Msg("unit failed")
		r.emit(ProgressEvent{Step: StepUnitFailed, Category: stageOf(err), File: name, Provider: label,
			Index: unit.Index, Total: total, Unit: &unit, Err: err,
			Message: fmt.Sprintf("Error con %s: %v", name, err)})
		return unitResult{err: err, done: true}
	}

	log.Debug().Int("records", len(records)).Msg("unit extracted")
	r.emit(ProgressEvent{Step: StepUnitDone, Category: StageExtract, File: name, Provider: label,
		Index: unit.Index, Total: total, Unit: &unit, Records: len(records),
		Message: fmt.Sprintf("%s: %d registros", name, len(records))})
	return unitResult{records: records, done: true}
}

func stageOf(err error) string {
	var uploadErr *extraction.UploadError
	var genErr *extraction.GenerationError
	switch {
	case errors.As(err, &uploadErr):
		return StageUpload
	case errors.As(err, &genErr):
		return StageGenerate
	default:
		return StageExtract
	}
}

// aggregate flattens per-unit records in unit order and stamps the run date
// on every record.
func (r *run) aggregate(units []types.Unit, results []unitResult) *types.AggregateResult {
	processedAt := r.deps.Clock()
	fecha := processedAt.Format(types.DateLayout)

	result := &types.AggregateResult{
		RunID:       r.id,
		ProcessedAt: processedAt,
		Units:       len(units),
		Records:     []types.Record{},
	}

	for i, res := range results {
		if !res.done {
			continue
		}
		if res.err != nil {
			r.fail(stageOf(res.err), units[i].Name(), res.err)
			continue
		}
		for _, rec := range res.records {
			if rec == nil {
				rec = types.Record{}
			}
			rec[types.FieldFecha] = fecha
			result.Records = append(result.Records, rec)
		}
	}
	result.Failures = r.failures
	return result
}
