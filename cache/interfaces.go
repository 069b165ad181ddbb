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


package cache

import (
	"github.com/poiesic/markit/core"
)

// Layout selects the physical record encoding of a shard.
type Layout string

const (
	// LayoutDefault stores one object per document with a nested
	// annotation list.
	LayoutDefault Layout = "default"

	// LayoutFlat stores parallel arrays per document (struct-of-arrays).
	// Smaller on disk; reconstituted into spans on read.
	LayoutFlat Layout = "flat"
)

// SaveOptions controls how a batch of records is written.
type SaveOptions struct {
	// ShardHint is an optional name prefix for the new shard.
	ShardHint string

	// ShardStartID distinguishes shards written by consecutive batches;
	// typically the pipeline's batch index or running document offset.
	ShardStartID int

	// Layout selects the record encoding. Zero value means LayoutDefault.
	Layout Layout

	// Compact passes labels through the many-to-one compaction table
	// before storage and writes the sidecar mapping file alongside the
	// index. Reads do not auto-expand compacted labels.
	Compact bool

	// Compress gzips the shard file. Reads handle both forms.
	Compress bool
}

// Store is a durable key-value store for per-document annotation lists,
// namespaced by (model, collection, field). Implementations must be safe
// for concurrent reads; concurrent writers to one namespace are not
// supported.
type Store interface {
	// SaveAnnotations durably writes one record per entry of records, in
	// order, as a single new batch. The namespace index becomes visible
	// only after the batch write fully succeeds; a failed write leaves the
	// index untouched. Saving an empty batch is an error.
	SaveAnnotations(model, collection, field string, records []core.AnnotationRecord, opts SaveOptions) error

	// GetAnnotation returns the stored span list for one document.
	// Returns ErrNotFound for unknown documents and for records that can
	// no longer be decoded (fail-soft, logged).
	GetAnnotation(model, collection, field, docID string) ([]core.Span, error)

	// Close releases the backend's resources.
	Close() error
}
