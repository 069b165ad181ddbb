// Package regexner provides a rule-based span extractor with no model
// dependency. It recognizes the structured entity classes regular
// expressions can state precisely (emails, URLs, phone numbers, dates,
// money amounts); it is useful as a cheap baseline and as the default
// backend in environments without an inference service.
package regexner

import (
	"context"
	"regexp"

	"github.com/poiesic/markit/ai"
	"github.com/poiesic/markit/core"
)

// Rule-based detections are exact matches, so confidence is always 1.0.
const ruleConfidence = 1.0

var patterns = map[string]*regexp.Regexp{
	"EMAIL": regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	"URL":   regexp.MustCompile(`https?://[^\s<>"']+`),
	"PHONE": regexp.MustCompile(`\+?\d[\d\s\-()]{7,}\d`),
	"DATE":  regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
	"MONEY": regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d+)?`),
	"IP":    regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
}

// Extractor matches a fixed pattern table against input text.
type Extractor struct {
	lifecycle ai.Lifecycle
	labels    []string
	budget    int
}

var _ ai.BatchExtractor = (*Extractor)(nil)

// New creates an unloaded regex extractor. Requested labels without a
// pattern are ignored; when no requested label is recognized, the full
// pattern table applies.
func New(labels []string, budget int) (*Extractor, error) {
	var supported []string
	for _, label := range labels {
		if _, ok := patterns[label]; ok {
			supported = append(supported, label)
		}
	}
	if len(supported) == 0 {
		for label := range patterns {
			supported = append(supported, label)
		}
	}
	if budget <= 0 {
		budget = 1 << 20
	}
	return &Extractor{labels: supported, budget: budget}, nil
}

// Load marks the extractor ready. There is nothing to fetch; the patterns
// are compiled at package init.
func (e *Extractor) Load(ctx context.Context) error {
	if err := e.lifecycle.BeginLoad(); err != nil {
		return err
	}
	e.lifecycle.FinishLoad(true)
	return nil
}

// Unload returns the extractor to the unloaded state.
func (e *Extractor) Unload() error {
	e.lifecycle.Release()
	return nil
}

// IsLoaded reports whether Load has succeeded.
func (e *Extractor) IsLoaded() bool {
	return e.lifecycle.Ready()
}

// UnitBudget returns the extractor's input limit in characters. Regex
// matching has no model window, so the budget is effectively unbounded.
func (e *Extractor) UnitBudget() int {
	return e.budget
}

// Extract returns every pattern match as a span with offsets local to text.
func (e *Extractor) Extract(ctx context.Context, text string) ([]core.Span, error) {
	if !e.lifecycle.Ready() {
		return nil, ai.ErrNotLoaded
	}

	spans := []core.Span{}
	for _, label := range e.labels {
		for _, loc := range patterns[label].FindAllStringIndex(text, -1) {
			spans = append(spans, core.Span{
				Text:       text[loc[0]:loc[1]],
				Labels:     []string{label},
				Start:      loc[0],
				End:        loc[1],
				Confidence: ruleConfidence,
			})
		}
	}
	return spans, nil
}

// ExtractBatch processes each text sequentially. Regex matching is cheap
// enough that there is no batched fast path; the method exists so callers
// exercising the batch capability can use this backend in tests.
func (e *Extractor) ExtractBatch(ctx context.Context, texts []string) ([][]core.Span, error) {
	results := make([][]core.Span, len(texts))
	for i, text := range texts {
		spans, err := e.Extract(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = spans
	}
	return results, nil
}
