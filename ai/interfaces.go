// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"

	"github.com/poiesic/markit/core"
)

// Extractor is a pluggable inference backend that extracts annotation spans
// from text. An extractor is single-owner: callers must not invoke Extract
// concurrently on one instance.
type Extractor interface {
	// Load prepares the backend for inference. It must be called, and must
	// succeed, before the first Extract. Calling Load on a loaded extractor
	// is an error.
	Load(ctx context.Context) error

	// Unload releases the backend's resources (model weights, device
	// memory). After Unload the extractor returns to the unloaded state and
	// may be loaded again.
	Unload() error

	// IsLoaded reports whether the extractor is ready for inference.
	IsLoaded() bool

	// UnitBudget returns the maximum input size, in the extractor's own
	// units, that a single Extract call accepts without truncating.
	UnitBudget() int

	// Extract returns the spans found in text, with offsets local to text.
	// Returns an empty slice when nothing is found.
	Extract(ctx context.Context, text string) ([]core.Span, error)
}

// BatchExtractor is the optional capability of processing several texts in
// one backend call. Callers discover it with a type assertion; backends
// without a native batch path simply do not implement it.
type BatchExtractor interface {
	Extractor

	// ExtractBatch returns one span list per input text, in input order.
	ExtractBatch(ctx context.Context, texts []string) ([][]core.Span, error)
}

// Embedder generates vector embeddings for text content.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates an embedding vector for a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embedding vectors for multiple texts in a batch.
	// Returns one vector per input, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// MemoryReclaimer is the optional capability of releasing device memory
// between batches. GPU-backed extractors implement it so the pipeline can
// insert explicit reclaim points instead of relying on garbage collection.
type MemoryReclaimer interface {
	// ReclaimMemory releases transient inference memory. Safe to call at
	// any point between Extract calls.
	ReclaimMemory() error
}
