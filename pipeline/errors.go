package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceRequired is returned when no document source is provided.
	ErrSourceRequired = errors.New("document source is required")

	// ErrExtractorRequired is returned when no extractor is provided.
	ErrExtractorRequired = errors.New("extractor is required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrStoreRequired is returned when no annotation store is provided.
	ErrStoreRequired = errors.New("annotation store is required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrCollectionMissing is returned from setup when the configured
	// collection does not exist on the source.
	ErrCollectionMissing = errors.New("collection does not exist on source")

	// ErrResourceExhausted marks extraction failures caused by backend
	// resource limits (device memory, context length). The pipeline
	// responds with a memory reclaim and one retry at a reduced
	// sub-batch size instead of counting the document as failed.
	ErrResourceExhausted = errors.New("extractor resources exhausted")
)

// ExtractionError attributes a failed extraction to a single document.
// Extraction errors are counted and logged; they never abort a page.
type ExtractionError struct {
	DocID string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for document %q: %v", e.DocID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// CacheWriteError attributes a failed batch write to its batch index.
// A cache write failure triggers an immediate checkpoint so the fetch
// progress made so far survives.
type CacheWriteError struct {
	BatchIndex int
	Err        error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("cache write failed for batch %d: %v", e.BatchIndex, e.Err)
}

func (e *CacheWriteError) Unwrap() error {
	return e.Err
}
