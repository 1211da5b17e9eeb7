// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrMissingCredential is returned by Validate when no API key is configured.
var ErrMissingCredential = errors.New("missing API credential: set GOOGLE_API_KEY")

// Environment variable names.
const (
	EnvAPIKey         = "GOOGLE_API_KEY"
	EnvAPIKeyFallback = "GEMINI_API_KEY"
	EnvModel          = "COMPULSA_MODEL"
	EnvBatchSize      = "COMPULSA_BATCH_SIZE"
	EnvMaxRetries     = "COMPULSA_MAX_RETRIES"
	EnvRetryBackoff   = "COMPULSA_RETRY_BACKOFF"
	EnvWorkDir        = "COMPULSA_WORK_DIR"
	EnvConverter      = "COMPULSA_CONVERTER"
	EnvLogLevel       = "COMPULSA_LOG_LEVEL"
)

// Duration is a time.Duration that reads "1s"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config represents the CLI configuration that can be loaded from a JSON file.
// Precedence is defaults < file < environment < flags.
type Config struct {
	// Extraction service
	APIKey       string   `json:"api_key,omitempty"`
	Model        string   `json:"model,omitempty" validate:"required"`
	BatchSize    int      `json:"batch_size,omitempty" validate:"min=1,max=64"`
	MaxRetries   *int     `json:"max_retries,omitempty" validate:"omitempty,min=0,max=10"` // nil means the default
	RetryBackoff Duration `json:"retry_backoff,omitempty" validate:"min=0"`

	// Files
	Output      string `json:"output,omitempty" validate:"required"`
	WorkDir     string `json:"work_dir,omitempty"`
	KeepWorkDir bool   `json:"keep_work_dir,omitempty"`

	// Spreadsheet conversion
	Converter      string   `json:"converter,omitempty" validate:"required"`
	ConvertTimeout Duration `json:"convert_timeout,omitempty" validate:"min=0"`

	// Behavior
	StrictRecords bool  `json:"strict_records,omitempty"`
	DeleteUploads *bool `json:"delete_uploads,omitempty"` // nil means true

	// Logging
	LogLevel  string `json:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn warning error disabled off"`
	LogFormat string `json:"log_format,omitempty" validate:"omitempty,oneof=console json"`
}

const defaultMaxRetries = 3

func intPtr(n int) *int { return &n }

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Model:          "gemini-2.0-flash",
		BatchSize:      1,
		MaxRetries:     intPtr(defaultMaxRetries),
		RetryBackoff:   Duration(time.Second),
		Output:         "datos_extraidos.xlsx",
		Converter:      "soffice",
		ConvertTimeout: Duration(2 * time.Minute),
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// RetryCount returns how many times a failed service call is retried. An
// explicit zero disables retries.
func (c *Config) RetryCount() int {
	if c.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *c.MaxRetries
}

// ShouldDeleteUploads reports whether uploaded files are removed after use.
func (c *Config) ShouldDeleteUploads() bool {
	return c.DeleteUploads == nil || *c.DeleteUploads
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration from the defaults, an optional
// config file and the environment. Flags are applied by the caller.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = *loaded
	}
	merged := cfg.MergeWithDefaults(Default())
	if err := merged.ApplyEnv(getenv); err != nil {
		return Config{}, err
	}
	return merged, nil
}

// ApplyEnv overrides fields with any environment variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if v := env(EnvAPIKey); v != "" {
		c.APIKey = v
	} else if v := env(EnvAPIKeyFallback); v != "" && c.APIKey == "" {
		c.APIKey = v
	}
	if v := env(EnvModel); v != "" {
		c.Model = v
	}
	if v := env(EnvWorkDir); v != "" {
		c.WorkDir = v
	}
	if v := env(EnvConverter); v != "" {
		c.Converter = v
	}
	if v := env(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := env(EnvBatchSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer: %w", EnvBatchSize, err)
		}
		c.BatchSize = n
	}
	if v := env(EnvMaxRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer: %w", EnvMaxRetries, err)
		}
		c.MaxRetries = &n
	}
	if v := env(EnvRetryBackoff); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be a duration: %w", EnvRetryBackoff, err)
		}
		c.RetryBackoff = Duration(d)
	}
	return nil
}

var validate = validator.New()

// Validate checks that the configuration has valid values. A missing API key
// yields ErrMissingCredential.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' check (value %v)", jsonName(fe.StructField()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingCredential
	}
	return nil
}

func jsonName(field string) string {
	switch field {
	case "BatchSize":
		return "batch_size"
	case "MaxRetries":
		return "max_retries"
	case "RetryBackoff":
		return "retry_backoff"
	case "ConvertTimeout":
		return "convert_timeout"
	case "LogLevel":
		return "log_level"
	case "LogFormat":
		return "log_format"
	default:
		return strings.ToLower(field)
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.WorkDir == "" {
		result.WorkDir = defaults.WorkDir
	}
	if result.Converter == "" {
		result.Converter = defaults.Converter
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	// Numeric fields: use default if zero
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.RetryBackoff == 0 {
		result.RetryBackoff = defaults.RetryBackoff
	}
	if result.ConvertTimeout == 0 {
		result.ConvertTimeout = defaults.ConvertTimeout
	}

	// Pointer fields: nil is unset, so an explicit zero or false survives
	if result.MaxRetries == nil {
		result.MaxRetries = defaults.MaxRetries
	}
	if result.DeleteUploads == nil {
		result.DeleteUploads = defaults.DeleteUploads
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
