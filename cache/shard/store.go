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


package shard

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/poiesic/markit/cache"
	"github.com/poiesic/markit/core"
)

const (
	shardExt     = ".jsonl"
	shardExtGzip = ".jsonl.gz"

	// maxLineSize bounds a single shard line; documents with very large
	// annotation sets still fit comfortably.
	maxLineSize = 64 * 1024 * 1024
)

// Store is the file-backed annotation store. Namespace indexes are loaded
// lazily and kept in memory; shards are written whole, never appended to
// after creation.
type Store struct {
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	indexes map[string]map[string]Entry
	closed  bool
}

var _ cache.Store = (*Store)(nil)

// New opens a store rooted at the given directory, creating it on demand.
// An unwritable root is a setup failure and fails here, before any batch
// work begins.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", cache.ErrRootNotWritable, root, err)
	}
	probe, err := os.CreateTemp(root, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", cache.ErrRootNotWritable, root, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return &Store{
		root:    root,
		logger:  slog.Default().With("component", "shard-store"),
		indexes: make(map[string]map[string]Entry),
	}, nil
}

// CachePath returns the namespace directory for a (model, collection,
// field) triple, creating it on demand.
func (s *Store) CachePath(model, collection, field string) (string, error) {
	dir := filepath.Join(s.root, model, collection, field)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache path: %w", err)
	}
	return dir, nil
}

// index returns the in-memory index for a namespace, loading it from disk
// on first access. Must be called with the lock held.
func (s *Store) index(dir string) map[string]Entry {
	if idx, ok := s.indexes[dir]; ok {
		return idx
	}
	idx := loadIndex(dir, s.logger)
	s.indexes[dir] = idx
	return idx
}

// SaveAnnotations writes one new shard holding every record, in order, then
// updates and persists the namespace index. A failure at any point before
// the index rewrite leaves the index untouched, so a crashed batch is
// simply re-annotated later.
func (s *Store) SaveAnnotations(model, collection, field string, records []core.AnnotationRecord, opts cache.SaveOptions) error {
	if len(records) == 0 {
		return cache.ErrNoRecords
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cache.ErrStoreClosed
	}

	dir, err := s.CachePath(model, collection, field)
	if err != nil {
		return err
	}

	// Encode every line before touching the filesystem so an encode error
	// cannot leave a half-written shard behind.
	var buf bytes.Buffer
	for _, record := range records {
		line, err := encodeRecord(record, opts.Layout, opts.Compact)
		if err != nil {
			return fmt.Errorf("failed to encode record %q: %w", record.DocID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	name := shardName(opts)
	if err := writeShard(dir, name, buf.Bytes(), opts.Compress); err != nil {
		s.logger.Error("shard write failed", "shard", name, "err", err)
		return err
	}

	if opts.Compact {
		if err := writeSidecar(dir); err != nil {
			s.logger.Error("sidecar write failed", "dir", dir, "err", err)
			return err
		}
	}

	// Update a copy of the index and persist it; the in-memory index only
	// advances once the rewrite succeeded.
	old := s.index(dir)
	next := make(map[string]Entry, len(old)+len(records))
	for id, entry := range old {
		next[id] = entry
	}
	for i, record := range records {
		next[record.DocID] = Entry{Shard: name, Pos: i}
	}
	if err := saveIndex(dir, next); err != nil {
		s.logger.Error("index write failed", "dir", dir, "err", err)
		return err
	}
	s.indexes[dir] = next

	s.logger.Debug("saved annotation batch",
		"shard", name, "records", len(records), "layout", opts.Layout, "compact", opts.Compact)
	return nil
}

// GetAnnotation looks the document up in the namespace index, then scans
// its shard forward to the recorded line. Missing documents, missing shard
// files and undecodable records all yield ErrNotFound.
func (s *Store) GetAnnotation(model, collection, field, docID string) ([]core.Span, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, cache.ErrStoreClosed
	}
	dir := filepath.Join(s.root, model, collection, field)
	entry, ok := s.index(dir)[docID]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", cache.ErrNotFound, docID)
	}

	line, err := readShardLine(dir, entry.Shard, entry.Pos)
	if err != nil {
		s.logger.Warn("failed to read annotation", "doc", docID, "shard", entry.Shard, "err", err)
		return nil, fmt.Errorf("%w: %s", cache.ErrNotFound, docID)
	}

	spans, err := decodeRecord(line)
	if err != nil {
		s.logger.Warn("failed to decode annotation", "doc", docID, "shard", entry.Shard, "err", err)
		return nil, fmt.Errorf("%w: %s", cache.ErrNotFound, docID)
	}
	return spans, nil
}

// Close releases the in-memory indexes. The files need no teardown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.indexes = nil
	return nil
}

// shardName derives the new shard's name from the save options.
func shardName(opts cache.SaveOptions) string {
	if opts.ShardHint != "" {
		return fmt.Sprintf("%s_%d", opts.ShardHint, opts.ShardStartID)
	}
	return strconv.Itoa(opts.ShardStartID)
}

// writeShard writes the shard body to a temporary file and renames it into
// place, so a crash never leaves a partial shard visible.
func writeShard(dir, name string, body []byte, compress bool) error {
	ext := shardExt
	if compress {
		ext = shardExtGzip
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create shard: %w", err)
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(tmp)
		w = gz
	}
	if _, err := w.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write shard: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to finish shard: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close shard: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name+ext)); err != nil {
		return fmt.Errorf("failed to place shard: %w", err)
	}
	return nil
}

// readShardLine opens the shard (plain or gzipped) and scans forward to
// the requested line.
func readShardLine(dir, name string, pos int) ([]byte, error) {
	var reader io.ReadCloser

	f, err := os.Open(filepath.Join(dir, name+shardExt))
	if err == nil {
		reader = f
	} else {
		gzf, gzErr := os.Open(filepath.Join(dir, name+shardExtGzip))
		if gzErr != nil {
			return nil, fmt.Errorf("shard %s missing: %w", name, err)
		}
		gz, gzErr := gzip.NewReader(gzf)
		if gzErr != nil {
			gzf.Close()
			return nil, fmt.Errorf("shard %s unreadable: %w", name, gzErr)
		}
		reader = struct {
			io.Reader
			io.Closer
		}{gz, gzf}
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for i := 0; scanner.Scan(); i++ {
		if i == pos {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("shard %s scan failed: %w", name, err)
	}
	return nil, fmt.Errorf("shard %s has no line %d", name, pos)
}

// writeSidecar stores the label compaction mapping next to the index so
// downstream consumers can expand compacted codes.
func writeSidecar(dir string) error {
	data, err := json.MarshalIndent(cache.CompactionMapping(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, sidecarFile), data, 0644)
}
