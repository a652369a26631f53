package pipeline

import (
	"context"
	"strings"
)

// Extractor turns uploaded file bytes into plain text. Implementations
// must fail with an extraction error when they cannot decode the input;
// placeholder text is never an acceptable result.
type Extractor interface {
	// CanExtract returns true if this extractor handles the given file type
	CanExtract(fileType string) bool

	// Extract decodes the file bytes into plain text
	Extract(ctx context.Context, data []byte) (string, error)

	// Name returns the extractor name for logging
	Name() string
}

// ExtractorRegistry holds all registered extractors and dispatches on file type
type ExtractorRegistry struct {
	extractors []Extractor
}

// NewExtractorRegistry creates a new extractor registry
func NewExtractorRegistry(extractors ...Extractor) *ExtractorRegistry {
	return &ExtractorRegistry{extractors: extractors}
}

// Find returns the first extractor that can handle the file type
func (r *ExtractorRegistry) Find(fileType string) Extractor {
	normalized := strings.ToLower(strings.TrimPrefix(fileType, "."))
	for _, e := range r.extractors {
		if e.CanExtract(normalized) {
			return e
		}
	}
	return nil
}
