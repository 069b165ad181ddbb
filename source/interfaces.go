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

package source

import (
	"context"
	"errors"
)

// ErrTransient marks fetch failures worth retrying: network errors,
// timeouts, upstream 5xx. Callers test with errors.Is and back off.
var ErrTransient = errors.New("transient source error")

// ErrCollectionNotFound indicates the named collection does not exist
// on the backing store. Not retryable.
var ErrCollectionNotFound = errors.New("collection not found")

// Document is one fetched document: its stable identifier and the text
// of the requested field.
type Document struct {
	ID   string
	Text string
}

// DocumentSource serves pages of documents from a remote collection.
//
// Pagination must be stable: the same (offset, limit) returns the same
// page absent concurrent writes to the collection. Results are ordered
// so that walking offsets 0, limit, 2*limit... visits every document
// exactly once.
type DocumentSource interface {
	// FetchBatch returns up to limit documents starting at offset,
	// together with the number of rows the backend returned for the
	// page. filter is a backend-specific query expression; empty means
	// all documents. Backends may drop rows that carry no usable text,
	// so end-of-collection detection must use the row count, not
	// len(docs): rows < limit signals the last page.
	FetchBatch(ctx context.Context, collection, field string, offset, limit int, filter string) (docs []Document, rows int, err error)

	// Exists reports whether the collection is present on the backend.
	Exists(ctx context.Context, collection string) (bool, error)
}
