package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// UploadedFile is a handle to a file stored by the model provider.
type UploadedFile struct {
	Name        string
	DisplayName string
	URI         string
	MIMEType    string
}

// FileGenerator uploads a file and asks the model about it.
type FileGenerator interface {
	// UploadFile stores the file at path under displayName.
	UploadFile(ctx context.Context, path, displayName, mimeType string) (*UploadedFile, error)
	// GenerateJSONWithFile runs prompt against an uploaded file and returns
	// the response text, requesting a JSON-typed response.
	GenerateJSONWithFile(ctx context.Context, file *UploadedFile, prompt string) (string, error)
	// DeleteFile removes an uploaded file.
	DeleteFile(ctx context.Context, file *UploadedFile) error
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (FileGenerator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider %q", config.Provider)
	}
}

// GeminiClient implements FileGenerator for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// UploadFile uploads the file and waits until the service reports it active.
func (c *GeminiClient) UploadFile(ctx context.Context, path, displayName, mimeType string) (*UploadedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to open %s: %w", path, err))
	}
	defer func() { _ = f.Close() }()

	file, err := c.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: displayName,
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	file, err = c.waitActive(ctx, file)
	if err != nil {
		return nil, err
	}

	return &UploadedFile{
		Name:        file.Name,
		DisplayName: file.DisplayName,
		URI:         file.URI,
		MIMEType:    file.MIMEType,
	}, nil
}

func (c *GeminiClient) waitActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	interval := c.config.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := time.Now().Add(c.config.PollTimeout)

	for file.State == genai.FileStateProcessing {
		if c.config.PollTimeout > 0 && time.Now().After(deadline) {
			return nil, fmt.Errorf("file %s still processing after %s", file.Name, c.config.PollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		next, err := c.client.GetFile(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to poll file %s: %w", file.Name, err)
		}
		file = next
	}

	if file.State == genai.FileStateFailed {
		return nil, Permanent(fmt.Errorf("service rejected file %s", file.Name))
	}
	return file, nil
}

// GenerateJSONWithFile generates JSON content from the uploaded file and prompt
func (c *GeminiClient) GenerateJSONWithFile(ctx context.Context, file *UploadedFile, prompt string) (string, error) {
	if file == nil {
		return "", Permanent(fmt.Errorf("no file to generate from"))
	}

	model := c.client.GenerativeModel(c.config.Model)
	model.SetTemperature(c.config.Temperature)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.FileData{MIMEType: file.MIMEType, URI: file.URI},
		genai.Text(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// DeleteFile deletes an uploaded file
func (c *GeminiClient) DeleteFile(ctx context.Context, file *UploadedFile) error {
	if file == nil || file.Name == "" {
		return nil
	}
	if err := c.client.DeleteFile(ctx, file.Name); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", file.Name, err)
	}
	return nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
