package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/compulsa/internal/config"
	"github.com/jonathan/compulsa/internal/llm"
)

// fakeGenerator answers from a map keyed by uploaded display name.
type fakeGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	uploads   []string
	deleted   []string
	model     string
	closed    bool
}

func (f *fakeGenerator) UploadFile(_ context.Context, _, displayName, mimeType string) (*llm.UploadedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, displayName)
	return &llm.UploadedFile{Name: "files/" + displayName, DisplayName: displayName, MIMEType: mimeType}, nil
}

func (f *fakeGenerator) GenerateJSONWithFile(_ context.Context, file *llm.UploadedFile, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, ok := f.responses[file.DisplayName]
	if !ok {
		return "", llm.Permanent(fmt.Errorf("no canned response for %s", file.DisplayName))
	}
	return resp, nil
}

func (f *fakeGenerator) DeleteFile(_ context.Context, file *llm.UploadedFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, file.Name)
	return nil
}

func (f *fakeGenerator) Close() error {
	f.closed = true
	return nil
}

// useFakeGenerator installs gen for the duration of the test.
func useFakeGenerator(t *testing.T, gen *fakeGenerator) {
	t.Helper()
	prev := newGenerator
	newGenerator = func(_ context.Context, cfg *llm.Config, _ string) (llm.FileGenerator, error) {
		gen.model = cfg.Model
		return gen, nil
	}
	t.Cleanup(func() { newGenerator = prev })
}

// clearEnv blanks every variable the config layer reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvAPIKey, config.EnvAPIKeyFallback, config.EnvModel, config.EnvBatchSize,
		config.EnvMaxRetries, config.EnvRetryBackoff, config.EnvWorkDir, config.EnvConverter,
		config.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return strings.TrimSpace(stdout.String()), err
}
