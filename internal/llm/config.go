// Package llm wraps the generative model used to read price lists. The
// package exposes a small file-oriented interface so callers can be tested
// against fakes.
package llm

import "time"

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Model       string
	Temperature float32
	// PollInterval and PollTimeout bound the wait for an uploaded file to
	// leave the processing state.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider:     ProviderGemini,
		Model:        DefaultModel,
		Temperature:  0.1,
		PollInterval: 2 * time.Second,
		PollTimeout:  2 * time.Minute,
	}
}

// WithModel returns a copy of the config using model. An empty model leaves
// the config unchanged.
func (c *Config) WithModel(model string) *Config {
	next := *c
	if model != "" {
		next.Model = model
	}
	return &next
}
