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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	indexFile   = "index.json"
	sidecarFile = "labels.json"
)

// Entry locates one document's record: the shard holding it and the
// record's line position within the shard.
type Entry struct {
	Shard string
	Pos   int
}

// The on-disk form is a compact two-element array: ["shardName", pos].
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Shard, e.Pos})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &e.Shard); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &e.Pos)
}

// loadIndex reads a namespace index. Missing or corrupt files yield an
// empty index: the cache degrades to re-annotation rather than failing
// the run.
func loadIndex(dir string, logger *slog.Logger) map[string]Entry {
	path := filepath.Join(dir, indexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read index, starting empty", "path", path, "err", err)
		}
		return map[string]Entry{}
	}

	index := map[string]Entry{}
	if err := json.Unmarshal(data, &index); err != nil {
		logger.Warn("corrupt index, starting empty", "path", path, "err", err)
		return map[string]Entry{}
	}
	return index
}

// saveIndex rewrites the whole namespace index. The write goes to a
// temporary file first and is renamed into place, so readers never observe
// a torn index.
func saveIndex(dir string, index map[string]Entry) error {
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	tmp := filepath.Join(dir, indexFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, indexFile)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}
