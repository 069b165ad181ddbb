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

package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/markit/core"
)

const checkpointSuffix = ".checkpoint.json"

// CheckpointManager persists pipeline progress next to the output path.
// A saved checkpoint is only honored on load when its signature matches
// the manager's (model, collection, field) namespace; anything else is
// treated as absent so a run never resumes someone else's progress.
type CheckpointManager struct {
	path      string
	signature core.ID
	logger    *slog.Logger
}

// NewCheckpointManager creates a manager writing to
// outputPath + ".checkpoint.json".
func NewCheckpointManager(outputPath string, signature core.ID) *CheckpointManager {
	return &CheckpointManager{
		path:      outputPath + checkpointSuffix,
		signature: signature,
		logger:    slog.Default().With("component", "checkpoint"),
	}
}

// Path returns the checkpoint file path.
func (m *CheckpointManager) Path() string {
	return m.path
}

// Load reads the checkpoint if one exists. Returns nil without error
// when the file is missing, unreadable, or carries a foreign signature;
// starting over is always safe, resuming someone else's run is not.
func (m *CheckpointManager) Load() *core.Checkpoint {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("checkpoint unreadable, starting fresh", "path", m.path, "err", err)
		}
		return nil
	}

	var cp core.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		m.logger.Warn("checkpoint corrupt, starting fresh", "path", m.path, "err", err)
		return nil
	}
	if cp.Signature != m.signature {
		m.logger.Warn("checkpoint signature mismatch, starting fresh",
			"path", m.path, "found", cp.Signature, "want", m.signature)
		return nil
	}
	return &cp
}

// Save writes the checkpoint atomically (temp file + rename). The
// signature and timestamp are filled in here.
func (m *CheckpointManager) Save(cp *core.Checkpoint) error {
	cp.Signature = m.signature
	cp.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	m.logger.Debug("checkpoint saved",
		"offset", cp.Offset, "batch", cp.BatchIndex, "processed", cp.Processed)
	return nil
}

// Clear removes the checkpoint file after a clean completion.
func (m *CheckpointManager) Clear() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
