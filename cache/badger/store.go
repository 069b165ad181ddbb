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


// Package badger implements the annotation store on BadgerDB. Unlike the
// sharded file store, point lookups are O(log n); use it when annotations
// are read back interactively rather than consumed in bulk.
package badger

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/markit/cache"
	"github.com/poiesic/markit/core"
)

// Store is a BadgerDB-backed annotation store. Span lists are stored as
// MUS-encoded binary values under namespace-prefixed keys.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ cache.Store = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a BadgerDB store at the specified path, creating the
// directory if it doesn't exist. inMemory is for tests.
func Open(filePath string, inMemory bool) (*Store, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", cache.ErrRootNotWritable, filePath, err)
			}
			info, err = os.Stat(filePath)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "badger-store")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// SaveAnnotations writes every record in one transaction, so a batch is
// visible either whole or not at all. Layout and compression options do
// not apply to the binary encoding; Compact still rewrites labels.
func (s *Store) SaveAnnotations(model, collection, field string, records []core.AnnotationRecord, opts cache.SaveOptions) error {
	if len(records) == 0 {
		return cache.ErrNoRecords
	}
	if s.db.IsClosed() {
		return cache.ErrStoreClosed
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	for _, record := range records {
		spans := record.Spans
		if opts.Compact {
			compacted := make([]core.Span, len(spans))
			for i, span := range spans {
				span.Labels = cache.CompactLabels(span.Labels)
				compacted[i] = span
			}
			spans = compacted
		}

		key := makeAnnotationKey(model, collection, field, record.DocID)
		if err := tx.Set(key, core.MarshalSpans(spans)); err != nil {
			return fmt.Errorf("failed to stage record %q: %w", record.DocID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("annotation batch commit failed", "records", len(records), "err", err)
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// GetAnnotation returns the stored span list for one document.
func (s *Store) GetAnnotation(model, collection, field, docID string) ([]core.Span, error) {
	if s.db.IsClosed() {
		return nil, cache.ErrStoreClosed
	}

	var spans []core.Span
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeAnnotationKey(model, collection, field, docID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decodeErr error
			spans, decodeErr = core.UnmarshalSpans(val)
			return decodeErr
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, fmt.Errorf("%w: %s", cache.ErrNotFound, docID)
		}
		s.logger.Warn("failed to decode annotation", "doc", docID, "err", err)
		return nil, fmt.Errorf("%w: %s", cache.ErrNotFound, docID)
	}
	return spans, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
