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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/markit/ai"
	"github.com/poiesic/markit/core"
	"github.com/poiesic/markit/source"
)

// EmbedRecord is one output line of an embedding run.
type EmbedRecord struct {
	DocID  string    `json:"doc_id"`
	Vector []float32 `json:"vector"`
}

// EmbedPipeline streams document embeddings to a JSONL file instead of
// writing annotations to the cache. It shares the fetch loop, retry and
// checkpoint behavior of Pipeline.
type EmbedPipeline struct {
	src      source.DocumentSource
	embedder ai.Embedder
	config   *Config
	ckpt     *CheckpointManager
	progress io.Writer
	logger   *slog.Logger
}

// NewEmbedPipeline creates an embedding pipeline. Config.Model should
// name the embedding model so checkpoints from annotation runs are
// never mistaken for embedding progress.
func NewEmbedPipeline(src source.DocumentSource, embedder ai.Embedder, config *Config, progress io.Writer) (*EmbedPipeline, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	signature := core.CheckpointSignature(config.Model, config.Collection, config.Field)
	return &EmbedPipeline{
		src:      src,
		embedder: embedder,
		config:   config,
		ckpt:     NewCheckpointManager(config.OutputPath, signature),
		progress: progress,
		logger:   slog.Default().With("component", "embed-pipeline"),
	}, nil
}

// Run embeds the collection page by page, appending one JSON line per
// document to the output file. An existing checkpoint resumes the run
// and keeps already-written documents out of the output.
func (p *EmbedPipeline) Run(ctx context.Context) (*Result, error) {
	cfg := p.config
	stats := &Result{}

	ok, err := p.src.Exists(ctx, cfg.Collection)
	if err != nil {
		return stats, fmt.Errorf("source check failed: %w", err)
	}
	if !ok {
		return stats, fmt.Errorf("%w: %s", ErrCollectionMissing, cfg.Collection)
	}

	offset := 0
	batchIndex := 0
	processed := make(map[string]struct{})
	resuming := false
	var claimedBytes int64
	if cp := p.ckpt.Load(); cp != nil {
		offset = cp.Offset
		batchIndex = cp.BatchIndex
		stats.Processed = cp.Processed
		stats.Skipped = cp.Skipped
		stats.Errored = cp.Errored
		processed = cp.ProcessedSet()
		claimedBytes = cp.OutputBytes
		resuming = true
		p.logger.Info("resuming from checkpoint", "offset", offset, "processed", len(processed))
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if resuming {
		// Lines past the checkpointed size reached the file after the
		// last checkpoint; their documents are not in ProcessedIDs and
		// would be embedded again, so trim them before appending.
		if info, serr := os.Stat(cfg.OutputPath); serr == nil && info.Size() > claimedBytes {
			p.logger.Warn("trimming output past last checkpoint",
				"have", info.Size(), "claimed", claimedBytes)
			if terr := os.Truncate(cfg.OutputPath, claimedBytes); terr != nil {
				return stats, fmt.Errorf("failed to trim output: %w", terr)
			}
		}
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	out, err := os.OpenFile(cfg.OutputPath, flags, 0644)
	if err != nil {
		return stats, fmt.Errorf("failed to open output: %w", err)
	}
	defer out.Close()
	writer := bufio.NewWriter(out)
	encoder := json.NewEncoder(writer)

	tracker := NewProgressTracker(p.progress, 0, cfg.ReportInterval)
	tracker.Start()

	checkpoint := func(offset, batchIndex int) {
		// The output must be durable before the checkpoint claims it.
		if err := writer.Flush(); err != nil {
			p.logger.Error("output flush failed", "err", err)
			return
		}
		info, err := out.Stat()
		if err != nil {
			p.logger.Error("output stat failed", "err", err)
			return
		}
		ids := make([]string, 0, len(processed))
		for id := range processed {
			ids = append(ids, id)
		}
		cp := &core.Checkpoint{
			Offset:       offset,
			BatchIndex:   batchIndex,
			Processed:    stats.Processed,
			Skipped:      stats.Skipped,
			Errored:      stats.Errored,
			ProcessedIDs: ids,
			OutputBytes:  info.Size(),
		}
		if err := p.ckpt.Save(cp); err != nil {
			p.logger.Error("checkpoint save failed", "err", err)
		}
	}

	docsSinceCkpt := 0
	pageFailures := 0
	for {
		if ctx.Err() != nil {
			checkpoint(offset, batchIndex)
			return stats, ctx.Err()
		}

		var page []source.Document
		var fetched int
		err := RetryWithBackoff(ctx, func() error {
			docs, rows, ferr := p.src.FetchBatch(ctx, cfg.Collection, cfg.Field, offset, cfg.PageSize, cfg.Filter)
			if ferr != nil {
				if errors.Is(ferr, source.ErrTransient) {
					return ferr
				}
				return Permanent(ferr)
			}
			page, fetched = docs, rows
			return nil
		}, cfg.MaxRetries, cfg.RetryDelay)
		if err != nil {
			if ctx.Err() != nil {
				checkpoint(offset, batchIndex)
				return stats, ctx.Err()
			}
			if !errors.Is(err, source.ErrTransient) {
				return stats, fmt.Errorf("fetch failed at offset %d: %w", offset, err)
			}
			// A full page, as an upper bound; the true size is unknowable.
			p.logger.Error("page fetch exhausted retries, skipping page",
				"offset", offset, "assumed_docs", cfg.PageSize, "err", err)
			stats.Errored += cfg.PageSize
			offset += cfg.PageSize
			batchIndex++
			stats.Batches++
			pageFailures++
			if pageFailures >= maxConsecutivePageFailures {
				return stats, fmt.Errorf("%d consecutive page failures, giving up: %w", pageFailures, err)
			}
			continue
		}
		pageFailures = 0
		if holes := fetched - len(page); holes > 0 {
			stats.Skipped += holes
		}

		docs := page[:0:0]
		for _, doc := range page {
			if _, seen := processed[doc.ID]; seen {
				stats.Skipped++
				continue
			}
			docs = append(docs, doc)
		}

		if len(docs) > 0 {
			texts := make([]string, len(docs))
			for i, d := range docs {
				texts[i] = d.Text
			}

			var vectors [][]float32
			err := RetryWithBackoff(ctx, func() error {
				var eerr error
				vectors, eerr = p.embedder.EmbedTexts(ctx, texts)
				return eerr
			}, cfg.MaxRetries, cfg.RetryDelay)
			if err != nil {
				if ctx.Err() != nil {
					// Cancellation, not an embedding failure: the page
					// was never finished, so the checkpoint must keep
					// pointing at its start.
					checkpoint(offset, batchIndex)
					return stats, ctx.Err()
				}
				p.logger.Error("embedding page failed", "offset", offset, "err", err)
				stats.Errored += len(docs)
			} else if len(vectors) != len(docs) {
				p.logger.Error("embedding count mismatch",
					"expected", len(docs), "got", len(vectors))
				stats.Errored += len(docs)
			} else {
				for i, doc := range docs {
					if err := encoder.Encode(EmbedRecord{DocID: doc.ID, Vector: vectors[i]}); err != nil {
						return stats, fmt.Errorf("failed to write embedding: %w", err)
					}
					processed[doc.ID] = struct{}{}
				}
				stats.Processed += len(docs)
				docsSinceCkpt += len(docs)
				tracker.Increment(len(docs))
			}
		}

		offset += cfg.PageSize
		batchIndex++
		stats.Batches++

		if fetched < cfg.PageSize {
			break
		}
		if cfg.MaxBatches > 0 && stats.Batches >= cfg.MaxBatches {
			break
		}
		if (cfg.CheckpointEvery > 0 && stats.Batches%cfg.CheckpointEvery == 0) ||
			(cfg.CheckpointDocs > 0 && docsSinceCkpt >= cfg.CheckpointDocs) {
			checkpoint(offset, batchIndex)
			docsSinceCkpt = 0
		}
	}

	if err := writer.Flush(); err != nil {
		return stats, fmt.Errorf("failed to flush output: %w", err)
	}
	tracker.Finish()
	if err := p.ckpt.Clear(); err != nil {
		p.logger.Warn("failed to remove checkpoint", "err", err)
	}
	p.logger.Info("embedding run complete",
		"processed", stats.Processed, "errored", stats.Errored, "batches", stats.Batches)
	return stats, nil
}
