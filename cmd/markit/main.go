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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/markit/ai"
	"github.com/poiesic/markit/ai/factory"
	"github.com/poiesic/markit/cache"
	badgercache "github.com/poiesic/markit/cache/badger"
	"github.com/poiesic/markit/cache/shard"
	"github.com/poiesic/markit/chunk"
	"github.com/poiesic/markit/pipeline"
	"github.com/poiesic/markit/source/solr"
)

func main() {
	app := &cli.App{
		Name:  "markit",
		Usage: "Batch annotation pipeline for remote document collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "annotate",
				Usage:  "Annotate a collection field and cache the extracted spans",
				Action: annotateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Solr base URL, e.g. http://localhost:8983/solr",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"c"},
						Usage:    "Collection to annotate",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "field",
						Aliases:  []string{"f"},
						Usage:    "Document field holding the text",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "filter",
						Usage: "Source query restricting which documents are fetched",
					},
					&cli.StringFlag{
						Name:  "backend",
						Usage: "Extractor backend (openai, regex)",
						Value: "openai",
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "Inference service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Extraction model name",
						Value: "qwen2.5:3b",
					},
					&cli.StringFlag{
						Name:  "labels",
						Usage: "Comma-separated entity labels to extract",
						Value: "PERSON,ORGANIZATION,LOCATION,DATE",
					},
					&cli.IntFlag{
						Name:  "unit-budget",
						Usage: "Largest input, in model units, per extraction call",
						Value: 450,
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Chunk overlap in model units",
						Value: 50,
					},
					&cli.StringFlag{
						Name:  "token-encoding",
						Usage: "tiktoken encoding for exact token counting (e.g. cl100k_base); empty uses a character estimate",
					},
					&cli.Float64Flag{
						Name:  "chars-per-unit",
						Usage: "Chars-per-token ratio for the character estimate",
						Value: chunk.DefaultCharsPerUnit,
					},
					&cli.StringFlag{
						Name:  "cache-root",
						Usage: "Annotation cache directory",
						Value: "annotation-cache",
					},
					&cli.StringFlag{
						Name:  "cache-backend",
						Usage: "Cache backend (shard, badger)",
						Value: "shard",
					},
					&cli.StringFlag{
						Name:  "layout",
						Usage: "Shard record layout (default, flat)",
						Value: string(cache.LayoutDefault),
					},
					&cli.BoolFlag{
						Name:  "compact",
						Usage: "Compact labels before storage (writes a sidecar mapping)",
					},
					&cli.BoolFlag{
						Name:  "compress",
						Usage: "Gzip shard files",
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Run artifact path; the checkpoint lives at <output>.checkpoint.json",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Documents per source fetch",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "max-batches",
						Usage: "Stop after N pages (0 = run to completion)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Per-document worker pool size",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed fetches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "checkpoint-every",
						Usage: "Checkpoint every N pages",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  "checkpoint-docs",
						Usage: "Checkpoint every N written documents",
						Value: 500,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
				},
			},
			{
				Name:   "embed",
				Usage:  "Embed a collection field and stream vectors to a JSONL file",
				Action: embedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Solr base URL, e.g. http://localhost:8983/solr",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"c"},
						Usage:    "Collection to embed",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "field",
						Aliases:  []string{"f"},
						Usage:    "Document field holding the text",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "filter",
						Usage: "Source query restricting which documents are fetched",
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Output JSONL file",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Documents per source fetch",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "checkpoint-every",
						Usage: "Checkpoint every N pages",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
				},
			},
			{
				Name:      "lookup",
				Usage:     "Print the cached annotations for a document",
				ArgsUsage: "<doc-id>",
				Action:    lookupCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cache-root",
						Usage: "Annotation cache directory",
						Value: "annotation-cache",
					},
					&cli.StringFlag{
						Name:  "cache-backend",
						Usage: "Cache backend (shard, badger)",
						Value: "shard",
					},
					&cli.StringFlag{
						Name:     "model",
						Usage:    "Model namespace",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"c"},
						Usage:    "Collection namespace",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "field",
						Aliases:  []string{"f"},
						Usage:    "Field namespace",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func annotateCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kind, err := factory.ParseKind(c.String("backend"))
	if err != nil {
		return err
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithModel(c.String("model")),
		ai.WithLabels(parseLabels(c.String("labels"))...),
		ai.WithUnitBudget(c.Int("unit-budget")),
	)
	backends, err := factory.New(aiConfig)
	if err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	extractor, err := backends.Extractor(kind)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	counter, err := newCounter(c.String("token-encoding"), c.Float64("chars-per-unit"))
	if err != nil {
		return fmt.Errorf("failed to create unit counter: %w", err)
	}

	store, err := newStore(c.String("cache-backend"), c.String("cache-root"))
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	cfg := &pipeline.Config{
		Model:           c.String("model"),
		Collection:      c.String("collection"),
		Field:           c.String("field"),
		Filter:          c.String("filter"),
		PageSize:        c.Int("page-size"),
		MaxBatches:      c.Int("max-batches"),
		Overlap:         c.Int("overlap"),
		Workers:         c.Int("workers"),
		MaxRetries:      c.Int("max-retries"),
		RetryDelay:      c.Duration("retry-delay"),
		CheckpointEvery: c.Int("checkpoint-every"),
		CheckpointDocs:  c.Int("checkpoint-docs"),
		ReportInterval:  c.Int("report-interval"),
		OutputPath:      c.String("output"),
		Layout:          cache.Layout(c.String("layout")),
		Compact:         c.Bool("compact"),
		Compress:        c.Bool("compress"),
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("page-size must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	p, err := pipeline.New(solr.New(c.String("source")), extractor, store, counter, cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer p.Release()

	fmt.Fprintf(os.Stderr, "Source: %s\n", c.String("source"))
	fmt.Fprintf(os.Stderr, "Collection: %s field: %s\n", cfg.Collection, cfg.Field)
	fmt.Fprintf(os.Stderr, "Backend: %s model: %s\n", kind, cfg.Model)
	fmt.Fprintln(os.Stderr)

	stats, err := p.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "\nInterrupted: %d processed, %d errored; resume with the same flags\n",
				stats.Processed, stats.Errored)
			return nil
		}
		return fmt.Errorf("annotation failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Done: %d processed, %d skipped, %d errored over %d batches\n",
		stats.Processed, stats.Skipped, stats.Errored, stats.Batches)
	return nil
}

func embedCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	backends, err := factory.New(aiConfig)
	if err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	embedder, err := backends.Embedder(factory.KindOpenAI)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	cfg := &pipeline.Config{
		Model:           c.String("embedding-model"),
		Collection:      c.String("collection"),
		Field:           c.String("field"),
		Filter:          c.String("filter"),
		PageSize:        c.Int("page-size"),
		MaxRetries:      c.Int("max-retries"),
		RetryDelay:      c.Duration("retry-delay"),
		CheckpointEvery: c.Int("checkpoint-every"),
		ReportInterval:  c.Int("report-interval"),
		OutputPath:      c.String("output"),
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("page-size must be greater than 0")
	}

	p, err := pipeline.NewEmbedPipeline(solr.New(c.String("source")), embedder, cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	stats, err := p.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "\nInterrupted: %d embedded; resume with the same flags\n", stats.Processed)
			return nil
		}
		return fmt.Errorf("embedding failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Done: %d embedded, %d errored over %d batches\n",
		stats.Processed, stats.Errored, stats.Batches)
	return nil
}

func lookupCommand(c *cli.Context) error {
	docID := c.Args().First()
	if docID == "" {
		return fmt.Errorf("doc-id argument is required")
	}

	store, err := newStore(c.String("cache-backend"), c.String("cache-root"))
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	spans, err := store.GetAnnotation(c.String("model"), c.String("collection"), c.String("field"), docID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(spans)
}

// newStore opens the selected cache backend.
func newStore(backend, root string) (cache.Store, error) {
	switch strings.ToLower(backend) {
	case "shard":
		return shard.New(root)
	case "badger":
		return badgercache.Open(root, false)
	default:
		return nil, fmt.Errorf("unknown cache backend %q: must be shard or badger", backend)
	}
}

// newCounter builds the unit counter matching the extractor's budget
// denomination.
func newCounter(encoding string, charsPerUnit float64) (chunk.UnitCounter, error) {
	if encoding != "" {
		return chunk.TiktokenCounter(encoding)
	}
	return chunk.CharEstimateCounter(charsPerUnit), nil
}

func parseLabels(s string) []string {
	parts := strings.Split(s, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			labels = append(labels, strings.ToUpper(trimmed))
		}
	}
	return labels
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
