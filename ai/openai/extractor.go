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


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/markit/ai"
	"github.com/poiesic/markit/core"
)

// parseAttempts bounds the retries on malformed JSON from the model.
const parseAttempts = 3

// Extractor implements ai.Extractor using OpenAI-compatible chat APIs.
// The model names entities and labels; character offsets are resolved
// locally by locating each entity occurrence in the input, since language
// models do not report reliable offsets.
type Extractor struct {
	config    *ai.Config
	client    llms.Model
	lifecycle ai.Lifecycle
	logger    *slog.Logger
}

var _ ai.Extractor = (*Extractor)(nil)

// entity is an internal type used for JSON unmarshaling.
// It matches the structure requested from the LLM.
type entity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	Entities []entity `json:"entities"`
}

// NewExtractor creates an unloaded extractor. The client connection is
// established by Load.
func NewExtractor(config *ai.Config) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		config: config,
		logger: slog.Default().With("component", "openai-extractor"),
	}, nil
}

// Load creates the API client. Use "none" as token for local
// OpenAI-compatible services that don't require authentication.
func (e *Extractor) Load(ctx context.Context) error {
	if err := e.lifecycle.BeginLoad(); err != nil {
		return err
	}

	client, err := openai.New(
		openai.WithBaseURL(e.config.Host),
		openai.WithToken("none"),
		openai.WithModel(e.config.Model),
	)
	if err != nil {
		e.lifecycle.FinishLoad(false)
		return fmt.Errorf("failed to create client: %w", err)
	}

	e.client = client
	e.lifecycle.FinishLoad(true)
	e.logger.Debug("extractor loaded", "model", e.config.Model)
	return nil
}

// Unload drops the client and returns to the unloaded state.
func (e *Extractor) Unload() error {
	e.client = nil
	e.lifecycle.Release()
	return nil
}

// IsLoaded reports whether the extractor is ready for inference.
func (e *Extractor) IsLoaded() bool {
	return e.lifecycle.Ready()
}

// UnitBudget returns the configured input limit in model tokens.
func (e *Extractor) UnitBudget() int {
	return e.config.UnitBudget
}

// Extract asks the model for the entities in text and resolves their
// character offsets locally. Every occurrence of a reported entity becomes
// one span.
func (e *Extractor) Extract(ctx context.Context, text string) ([]core.Span, error) {
	if !e.lifecycle.Ready() {
		return nil, ai.ErrNotLoaded
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt(e.config.Labels))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	// Try a few times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []core.Span{}, nil
		}

		responseText := repairJSON(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}
	if lastErr != nil {
		e.logger.Error("failed to parse extraction response after retries", "err", lastErr)
		return nil, lastErr
	}

	return resolveSpans(text, result.Entities, e.config.Labels), nil
}

// resolveSpans locates each reported entity in the input text and builds a
// span per occurrence. Entities the model invented (not present in the
// text) and labels outside the configured set are dropped.
func resolveSpans(text string, entities []entity, labels []string) []core.Span {
	allowed := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		allowed[strings.ToUpper(label)] = struct{}{}
	}

	spans := []core.Span{}
	for _, ent := range entities {
		if ent.Text == "" {
			continue
		}
		label := strings.ToUpper(strings.TrimSpace(ent.Label))
		if _, ok := allowed[label]; !ok {
			continue
		}

		confidence := ent.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = core.ConfidenceUnknown
		}

		for from := 0; ; {
			idx := strings.Index(text[from:], ent.Text)
			if idx < 0 {
				break
			}
			start := from + idx
			spans = append(spans, core.Span{
				Text:       ent.Text,
				Labels:     []string{label},
				Start:      start,
				End:        start + len(ent.Text),
				Confidence: confidence,
			})
			from = start + len(ent.Text)
		}
	}
	return spans
}
