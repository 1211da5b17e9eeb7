package extraction

import "fmt"

// UploadError is returned when a unit cannot be uploaded to the service.
type UploadError struct {
	File  string
	Cause error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.File, e.Cause)
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

// GenerationError is returned when the service call fails or its response
// is not valid JSON. Response holds the raw text in the latter case.
type GenerationError struct {
	File     string
	Message  string
	Response string
	Cause    error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation for %s failed: %s: %v", e.File, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation for %s failed: %s", e.File, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// IsParse reports whether the service answered but the text was not a JSON
// array or object.
func (e *GenerationError) IsParse() bool {
	return e.Response != ""
}
