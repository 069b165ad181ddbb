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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/markit/ai"
	"github.com/poiesic/markit/cache"
	"github.com/poiesic/markit/chunk"
	"github.com/poiesic/markit/core"
	"github.com/poiesic/markit/source"
)

// Config holds the parameters of an annotation run.
type Config struct {
	// Model names the extraction model; together with Collection and
	// Field it forms the cache namespace and the checkpoint signature.
	Model      string
	Collection string
	Field      string

	// Filter is a source-specific query restricting which documents are
	// fetched. Empty means the whole collection.
	Filter string

	// PageSize is the number of documents requested per source fetch.
	PageSize int

	// MaxBatches stops the run after this many pages; 0 means run until
	// the source is exhausted.
	MaxBatches int

	// Overlap is the chunk overlap, in extractor units.
	Overlap int

	// Workers is the per-document worker pool size. Values above 1 are
	// capped at the CPU count; 1 or less means sequential processing.
	Workers int

	// MaxRetries and RetryDelay control fetch retry behavior.
	MaxRetries int
	RetryDelay time.Duration

	// CheckpointEvery saves a checkpoint after this many pages;
	// CheckpointDocs after this many written documents. Whichever
	// trips first.
	CheckpointEvery int
	CheckpointDocs  int

	// ReportInterval is how often to report progress (documents).
	ReportInterval int

	// OutputPath anchors run artifacts: the checkpoint lives at
	// OutputPath + ".checkpoint.json".
	OutputPath string

	// Cache write options.
	Layout   cache.Layout
	Compact  bool
	Compress bool
}

// DefaultConfig returns a Config with sensible defaults. Model,
// Collection, Field and OutputPath must still be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		PageSize:        50,
		Overlap:         50,
		Workers:         1,
		MaxRetries:      3,
		RetryDelay:      1 * time.Second,
		CheckpointEvery: 5,
		CheckpointDocs:  500,
		ReportInterval:  100,
	}
}

// Result summarizes a finished (or interrupted) run.
type Result struct {
	Processed int // documents annotated and written
	Skipped   int // excluded by a resume checkpoint, or unusable at the source
	Errored   int // documents or whole pages that failed
	Batches   int // pages fetched this run
}

// failed pages in a row before the run gives up; keeps a dead source
// from looping forever while still riding out rough patches.
const maxConsecutivePageFailures = 5

// Pipeline annotates a document collection end to end.
type Pipeline struct {
	src       source.DocumentSource
	extractor ai.Extractor
	store     cache.Store
	config    *Config
	counter   chunk.UnitCounter
	chunker   *chunk.Chunker
	sizer     *batchSizer
	ckpt      *CheckpointManager
	pool      *ants.Pool
	extractMu sync.Mutex
	progress  io.Writer
	logger    *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a Pipeline. counter must be denominated in the same units
// as the extractor's budget; nil defaults to the conservative
// character-estimate counter.
// progress: where to write progress output (typically os.Stderr)
func New(src source.DocumentSource, extractor ai.Extractor, store cache.Store, counter chunk.UnitCounter, config *Config, progress io.Writer) (*Pipeline, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if counter == nil {
		counter = chunk.CharEstimateCounter(0)
	}
	if progress == nil {
		progress = io.Discard
	}

	chunker, err := chunk.NewChunker(extractor.UnitBudget(), config.Overlap, counter)
	if err != nil {
		return nil, err
	}

	var pool *ants.Pool
	if config.Workers > 1 {
		size := min(config.Workers, runtime.NumCPU())
		if size < 1 {
			size = 1
		}
		pool, err = ants.NewPool(size)
		if err != nil {
			return nil, err
		}
	}

	signature := core.CheckpointSignature(config.Model, config.Collection, config.Field)
	return &Pipeline{
		src:       src,
		extractor: extractor,
		store:     store,
		config:    config,
		counter:   counter,
		chunker:   chunker,
		sizer:     newBatchSizer(MaxSubBatch),
		ckpt:      NewCheckpointManager(config.OutputPath, signature),
		pool:      pool,
		progress:  progress,
		logger:    slog.Default().With("component", "pipeline"),
	}, nil
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Release frees the worker pool. The pipeline must not run afterwards.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Run executes the annotation loop until the collection is exhausted,
// the batch limit is reached, or the context is canceled. On
// cancellation the in-flight sub-batch is finished, a final checkpoint
// is written, and the extractor is unloaded before returning.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	cfg := p.config
	stats := &Result{}

	// Setup failures are fatal and surface before any batch work.
	ok, err := p.src.Exists(ctx, cfg.Collection)
	if err != nil {
		p.setState(StateFailed)
		return stats, fmt.Errorf("source check failed: %w", err)
	}
	if !ok {
		p.setState(StateFailed)
		return stats, fmt.Errorf("%w: %s", ErrCollectionMissing, cfg.Collection)
	}

	if err := p.extractor.Load(ctx); err != nil {
		p.setState(StateFailed)
		return stats, fmt.Errorf("failed to load extractor: %w", err)
	}
	defer func() {
		if err := p.extractor.Unload(); err != nil {
			p.logger.Warn("extractor unload failed", "err", err)
		}
	}()

	offset := 0
	batchIndex := 0
	processed := make(map[string]struct{})
	if cp := p.ckpt.Load(); cp != nil {
		offset = cp.Offset
		batchIndex = cp.BatchIndex
		stats.Processed = cp.Processed
		stats.Skipped = cp.Skipped
		stats.Errored = cp.Errored
		processed = cp.ProcessedSet()
		p.logger.Info("resuming from checkpoint",
			"offset", offset, "batch", batchIndex, "processed", len(processed))
	}

	tracker := NewProgressTracker(p.progress, 0, cfg.ReportInterval)
	tracker.Start()

	docsSinceCkpt := 0
	pageFailures := 0
	for {
		if ctx.Err() != nil {
			return p.interrupted(ctx, stats, offset, batchIndex, processed)
		}

		p.setState(StateFetching)
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
				return p.interrupted(ctx, stats, offset, batchIndex, processed)
			}
			if !errors.Is(err, source.ErrTransient) {
				p.setState(StateFailed)
				return stats, fmt.Errorf("fetch failed at offset %d: %w", offset, err)
			}
			// The true page size is unknowable after a failed fetch;
			// count a full page so the errored total stays an upper
			// bound, and move past it.
			p.logger.Error("page fetch exhausted retries, skipping page",
				"offset", offset, "batch", batchIndex, "assumed_docs", cfg.PageSize, "err", err)
			stats.Errored += cfg.PageSize
			offset += cfg.PageSize
			batchIndex++
			stats.Batches++
			pageFailures++
			if pageFailures >= maxConsecutivePageFailures {
				p.setState(StateFailed)
				return stats, fmt.Errorf("%d consecutive page failures, giving up: %w",
					pageFailures, err)
			}
			continue
		}
		pageFailures = 0
		if holes := fetched - len(page); holes > 0 {
			// Rows the source returned without usable text.
			stats.Skipped += holes
		}

		// Exclude documents a previous (checkpointed) run already wrote.
		docs := page[:0:0]
		for _, doc := range page {
			if _, seen := processed[doc.ID]; seen {
				stats.Skipped++
				continue
			}
			docs = append(docs, doc)
		}

		p.setState(StateProcessing)
		records, complete := p.processPage(ctx, docs, stats)

		p.setState(StateWriting)
		if len(records) > 0 {
			opts := cache.SaveOptions{
				ShardHint:    "batch",
				ShardStartID: batchIndex,
				Layout:       cfg.Layout,
				Compact:      cfg.Compact,
				Compress:     cfg.Compress,
			}
			if err := p.store.SaveAnnotations(cfg.Model, cfg.Collection, cfg.Field, records, opts); err != nil {
				werr := &CacheWriteError{BatchIndex: batchIndex, Err: err}
				p.logger.Error("batch write failed, checkpointing", "batch", batchIndex, "err", werr)
				stats.Errored += len(records)
				// Save immediately, aligned to the next page start, so
				// the fetch progress survives a crash.
				p.saveCheckpoint(stats, offset+cfg.PageSize, batchIndex+1, processed)
				docsSinceCkpt = 0
			} else {
				for _, rec := range records {
					processed[rec.DocID] = struct{}{}
				}
				stats.Processed += len(records)
				docsSinceCkpt += len(records)
				tracker.Increment(len(records))
			}
		}

		if !complete {
			// Cancellation cut the page short. Checkpoint its start so
			// the resume refetches it; documents already written are
			// excluded then via ProcessedIDs. The shard counter still
			// advances so the resumed page never reuses a shard name.
			return p.interrupted(ctx, stats, offset, batchIndex+1, processed)
		}

		offset += cfg.PageSize
		batchIndex++
		stats.Batches++

		if fetched < cfg.PageSize {
			break // collection exhausted
		}
		if cfg.MaxBatches > 0 && stats.Batches >= cfg.MaxBatches {
			break
		}

		if (cfg.CheckpointEvery > 0 && stats.Batches%cfg.CheckpointEvery == 0) ||
			(cfg.CheckpointDocs > 0 && docsSinceCkpt >= cfg.CheckpointDocs) {
			p.saveCheckpoint(stats, offset, batchIndex, processed)
			docsSinceCkpt = 0
		}
	}

	if ctx.Err() != nil {
		return p.interrupted(ctx, stats, offset, batchIndex, processed)
	}

	tracker.Finish()
	if err := p.ckpt.Clear(); err != nil {
		p.logger.Warn("failed to remove checkpoint", "err", err)
	}
	p.setState(StateDone)
	p.logger.Info("run complete",
		"processed", stats.Processed, "skipped", stats.Skipped,
		"errored", stats.Errored, "batches", stats.Batches,
		"elapsed", tracker.Elapsed().Round(time.Second))
	return stats, nil
}

// interrupted finalizes a canceled run: one last checkpoint, then the
// deferred extractor unload on the way out.
func (p *Pipeline) interrupted(ctx context.Context, stats *Result, offset, batchIndex int, processed map[string]struct{}) (*Result, error) {
	p.saveCheckpoint(stats, offset, batchIndex, processed)
	p.setState(StateInterrupted)
	p.logger.Info("run interrupted", "offset", offset, "processed", stats.Processed)
	return stats, ctx.Err()
}

func (p *Pipeline) saveCheckpoint(stats *Result, offset, batchIndex int, processed map[string]struct{}) {
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
	}
	if err := p.ckpt.Save(cp); err != nil {
		p.logger.Error("checkpoint save failed", "err", err)
	}
}

// processPage runs a page through adaptively sized sub-batches and
// returns one record per successfully annotated document, in page
// order. Cancellation is honored between sub-batches; the in-flight
// sub-batch always completes. The second return reports whether every
// document of the page was reached; a false means cancellation stopped
// the page partway and the remainder was never attempted.
func (p *Pipeline) processPage(ctx context.Context, docs []source.Document, stats *Result) ([]core.AnnotationRecord, bool) {
	records := make([]core.AnnotationRecord, 0, len(docs))
	for start := 0; start < len(docs); {
		if ctx.Err() != nil {
			return records, false
		}

		texts := make([]string, 0, len(docs)-start)
		for _, d := range docs[start:] {
			texts = append(texts, d.Text)
		}
		n := p.sizer.next(averageLength(texts))
		end := min(start+n, len(docs))

		records = append(records, p.processSubBatch(ctx, docs[start:end], stats)...)
		start = end
	}
	return records, true
}

// outcome is the per-document result of a sub-batch, kept in input
// order.
type outcome struct {
	spans []core.Span
	err   error
}

// processSubBatch annotates one sub-batch. With a worker pool the
// documents are processed in parallel but results are collected by
// input index, so output order never depends on scheduling.
func (p *Pipeline) processSubBatch(ctx context.Context, docs []source.Document, stats *Result) []core.AnnotationRecord {
	outcomes := make([]outcome, len(docs))

	// A batch-capable extractor handles the whole sub-batch in one call
	// when no document needs chunking.
	if be, ok := p.extractor.(ai.BatchExtractor); ok && !p.anyOverBudget(docs) {
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Text
		}
		lists, err := be.ExtractBatch(ctx, texts)
		if err == nil && len(lists) == len(docs) {
			for i := range lists {
				outcomes[i] = outcome{spans: lists[i]}
			}
			return p.collectOutcomes(ctx, docs, outcomes, stats)
		}
		if err != nil {
			p.logger.Warn("batch extraction failed, falling back to per-document", "err", err)
		}
	}

	run := func(i int) {
		spans, err := p.annotateDocument(ctx, docs[i])
		outcomes[i] = outcome{spans: spans, err: err}
	}

	if p.pool != nil {
		var wg sync.WaitGroup
		for i := range docs {
			wg.Add(1)
			job := i
			if err := p.pool.Submit(func() {
				defer wg.Done()
				run(job)
			}); err != nil {
				// Pool unavailable; fall back to inline execution.
				run(job)
				wg.Done()
			}
		}
		wg.Wait()
	} else {
		for i := range docs {
			run(i)
		}
	}

	return p.collectOutcomes(ctx, docs, outcomes, stats)
}

// collectOutcomes folds per-document outcomes into annotation records,
// handling the resource-exhaustion retry and the error bookkeeping.
func (p *Pipeline) collectOutcomes(ctx context.Context, docs []source.Document, outcomes []outcome, stats *Result) []core.AnnotationRecord {
	records := make([]core.AnnotationRecord, 0, len(docs))
	for i, out := range outcomes {
		if errors.Is(out.err, ErrResourceExhausted) {
			// Reclaim device memory and retry this document once at a
			// reduced sub-batch size.
			if reclaimer, ok := p.extractor.(ai.MemoryReclaimer); ok {
				if rerr := reclaimer.ReclaimMemory(); rerr != nil {
					p.logger.Warn("memory reclaim failed", "err", rerr)
				}
			}
			p.sizer.halve()
			out.spans, out.err = p.annotateDocument(ctx, docs[i])
		}

		if out.err != nil {
			p.sizer.record(true)
			stats.Errored++
			p.logger.Warn("document failed",
				"err", &ExtractionError{DocID: docs[i].ID, Err: out.err})
			continue
		}
		p.sizer.record(false)
		records = append(records, core.AnnotationRecord{DocID: docs[i].ID, Spans: out.spans})
	}
	return records
}

// anyOverBudget reports whether any document in the slice needs
// chunking before extraction.
func (p *Pipeline) anyOverBudget(docs []source.Document) bool {
	budget := p.extractor.UnitBudget()
	for _, d := range docs {
		if p.counter(d.Text) > budget {
			return true
		}
	}
	return false
}

// annotateDocument extracts spans for one document. Texts over the
// extractor's unit budget go through chunking; their per-chunk results
// are remapped to document offsets and deduplicated across overlaps.
func (p *Pipeline) annotateDocument(ctx context.Context, doc source.Document) ([]core.Span, error) {
	if p.counter(doc.Text) <= p.extractor.UnitBudget() {
		return p.extract(ctx, doc.Text)
	}

	var all []core.Span
	for _, c := range p.chunker.Chunk(doc.Text) {
		spans, err := p.extract(ctx, c.Text)
		if err != nil {
			return nil, err
		}
		all = append(all, chunk.Remap(spans, c.DocStart)...)
	}
	return chunk.Dedupe(all), nil
}

// extract serializes extractor access when a worker pool is active; the
// extractor is single-owner and must not see concurrent calls.
func (p *Pipeline) extract(ctx context.Context, text string) ([]core.Span, error) {
	if p.pool != nil {
		p.extractMu.Lock()
		defer p.extractMu.Unlock()
	}
	return p.extractor.Extract(ctx, text)
}
