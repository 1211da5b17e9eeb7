package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/compulsa/internal/archive"
	"github.com/jonathan/compulsa/internal/config"
	"github.com/jonathan/compulsa/internal/convert"
	"github.com/jonathan/compulsa/internal/export"
	"github.com/jonathan/compulsa/internal/extraction"
	"github.com/jonathan/compulsa/internal/llm"
	"github.com/jonathan/compulsa/internal/observability"
	"github.com/jonathan/compulsa/internal/pipeline"
)

// Replaced in tests.
var (
	newGenerator = func(ctx context.Context, cfg *llm.Config, apiKey string) (llm.FileGenerator, error) {
		return llm.NewClient(ctx, cfg, apiKey)
	}
	newConverter = func(cfg config.Config, logger zerolog.Logger) convert.Converter {
		return convert.NewOfficeConverter(cfg.Converter, time.Duration(cfg.ConvertTimeout), logger)
	}
)

type extractOptions struct {
	configPath  string
	output      string
	apiKey      string
	model       string
	batchSize   int
	maxRetries  int
	keepWorkDir bool
	strict      bool
	verbose     bool
	logLevel    string
	noProgress  bool
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <archive.zip>",
		Short: "Extract the price lists in a zip archive to a spreadsheet",
		Long: `Expands the archive, converts spreadsheets to PDF, splits documents into
pages and asks the model for the articles of every page and image.

Configuration can be loaded from a JSON file using --config. Environment
variables override the file and command-line flags override both.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	f.StringVarP(&opts.output, "output", "o", "", "Output spreadsheet (default datos_extraidos.xlsx)")
	f.StringVar(&opts.apiKey, "api-key", "", "Gemini API key (defaults to GOOGLE_API_KEY env var)")
	f.StringVar(&opts.model, "model", "", "Generation model (default "+llm.DefaultModel+")")
	f.IntVar(&opts.batchSize, "batch-size", 0, "Units extracted concurrently")
	f.IntVar(&opts.maxRetries, "max-retries", 0, "Retries per upload or generation call")
	f.BoolVar(&opts.keepWorkDir, "keep-work-dir", false, "Keep the working directory after the run")
	f.BoolVar(&opts.strict, "strict", false, "Drop records that do not match the record schema")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Print detailed debug information")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	f.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar and spinner")

	return cmd
}

// resolveConfig merges defaults, config file, environment and the flags
// that were set explicitly.
func resolveConfig(cmd *cobra.Command, opts *extractOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath, os.Getenv)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("api-key") {
		cfg.APIKey = opts.apiKey
	}
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = opts.batchSize
	}
	if flags.Changed("max-retries") {
		retries := opts.maxRetries
		cfg.MaxRetries = &retries
	}
	if flags.Changed("keep-work-dir") {
		cfg.KeepWorkDir = opts.keepWorkDir
	}
	if flags.Changed("strict") {
		cfg.StrictRecords = opts.strict
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runExtract(cmd *cobra.Command, opts *extractOptions, archivePath string) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Output:      cmd.ErrOrStderr(),
		ServiceName: "compulsa",
	})
	printer := observability.NewPrinter(cmd.OutOrStdout())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newGenerator(ctx, llm.DefaultConfig().WithModel(cfg.Model), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create extraction client: %w", err)
	}
	defer func() { _ = client.Close() }()

	retry := llm.DefaultRetryConfig()
	retry.MaxRetries = cfg.RetryCount()
	if cfg.RetryBackoff > 0 {
		retry.InitialBackoff = time.Duration(cfg.RetryBackoff)
	}

	extractor, err := extraction.New(client, extraction.Options{
		Retry:         retry,
		Strict:        cfg.StrictRecords,
		DeleteUploads: cfg.ShouldDeleteUploads(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	progress := newProgressView(printer, cmd.ErrOrStderr(), !opts.noProgress)
	defer progress.close()

	orchestrator, err := pipeline.New(pipeline.Deps{
		Converter: newConverter(cfg, logger),
		Extractor: extractor,
		Logger:    logger,
	}, pipeline.RunOptions{
		BatchSize:   cfg.BatchSize,
		WorkDir:     cfg.WorkDir,
		KeepWorkDir: cfg.KeepWorkDir,
		OnProgress:  progress.handle,
	})
	if err != nil {
		return err
	}

	progress.startSpinner("Expandiendo archivo...")
	result, runErr := orchestrator.Run(ctx, archivePath)
	progress.close()

	if result == nil {
		var corrupt *archive.CorruptArchiveError
		if errors.As(runErr, &corrupt) {
			printer.Error("ERROR: El archivo ZIP está corrupto o no es válido.")
		}
		return runErr
	}

	if err := export.WriteXLSX(cfg.Output, result); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.Output, err)
	}

	if runErr != nil {
		printer.Warning("Procesamiento interrumpido: %v", runErr)
	} else {
		printer.Success("Procesamiento completado")
	}
	printer.PrintSummary(result, cfg.Output)
	printer.PrintRecords(result)
	return runErr
}

// progressView turns pipeline events into operator output: a spinner while
// the archive is expanded and converted, then a bar across units.
type progressView struct {
	printer *observability.Printer
	out     io.Writer
	enabled bool
	spinner *observability.Spinner
	bar     *observability.ProgressBar
}

func newProgressView(printer *observability.Printer, out io.Writer, enabled bool) *progressView {
	return &progressView{printer: printer, out: out, enabled: enabled}
}

func (v *progressView) startSpinner(message string) {
	if !v.enabled || v.spinner != nil {
		return
	}
	v.spinner = observability.NewSpinner(v.out, message)
	v.spinner.Start()
}

func (v *progressView) stopSpinner() {
	if v.spinner != nil {
		v.spinner.Stop()
		v.spinner = nil
	}
}

func (v *progressView) close() {
	v.stopSpinner()
	if v.bar != nil {
		v.bar.Finish()
		v.bar = nil
	}
}

// handle is called one event at a time by the orchestrator.
func (v *progressView) handle(ev pipeline.ProgressEvent) {
	switch ev.Step {
	case pipeline.StepExpanded:
		if v.spinner != nil {
			v.spinner.UpdateMessage("Convirtiendo planillas...")
		}
	case pipeline.StepWorklist:
		v.stopSpinner()
		v.printer.Info("%s", ev.Message)
		if v.enabled && ev.Total > 0 {
			v.bar = observability.NewProgressBar(v.out, ev.Total, "Extrayendo")
		}
	case pipeline.StepUnitStart:
		v.printer.Info("%s", ev.Message)
	case pipeline.StepUnitDone:
		v.advance()
	case pipeline.StepUnitFailed:
		switch ev.Category {
		case pipeline.StageUpload:
			v.printer.Error("ERROR al subir %s a Gemini: %v", ev.File, ev.Err)
		case pipeline.StageGenerate:
			v.printer.Error("ERROR en la solicitud a Gemini para %s: %v", ev.File, ev.Err)
			var genErr *extraction.GenerationError
			if errors.As(ev.Err, &genErr) && genErr.IsParse() {
				v.printer.Info("Respuesta recibida: %s", responsePreview(genErr.Response))
			}
		default:
			v.printer.Error("ERROR procesando %s: %v", ev.File, ev.Err)
		}
		v.advance()
	case pipeline.StepFailed:
		if ev.Category == pipeline.StageConvert {
			v.printer.Warning("ERROR al convertir %s a PDF: %v", ev.File, ev.Err)
		} else if ev.Category == pipeline.StagePaginate {
			v.printer.Warning("ERROR al leer %s: %v", ev.File, ev.Err)
		}
	}
}

// responsePreview returns the first line of a model response, shortened.
func responsePreview(response string) string {
	const limit = 120
	line, _, cut := strings.Cut(strings.TrimSpace(response), "\n")
	runes := []rune(line)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	if cut {
		return line + " ..."
	}
	return line
}

func (v *progressView) advance() {
	if v.bar != nil {
		v.bar.Add(1)
	}
}
