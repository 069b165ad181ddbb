package mock

import (
	"context"
	"unicode"

	"github.com/poiesic/markit/ai"
	"github.com/poiesic/markit/core"
)

// MockExtractor is a test double for ai.Extractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, uses default capitalized-word extraction.
	ExtractFunc func(ctx context.Context, text string) ([]core.Span, error)

	// LoadErr, if set, is returned by Load.
	LoadErr error

	// Budget is returned by UnitBudget. Defaults to 450.
	Budget int

	lifecycle ai.Lifecycle
	calls     int
	unloads   int
}

var _ ai.Extractor = (*MockExtractor)(nil)

// NewMockExtractor creates a mock extractor with default behavior.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Load drives the lifecycle; fails with LoadErr when injected.
func (m *MockExtractor) Load(ctx context.Context) error {
	if err := m.lifecycle.BeginLoad(); err != nil {
		return err
	}
	if m.LoadErr != nil {
		m.lifecycle.FinishLoad(false)
		return m.LoadErr
	}
	m.lifecycle.FinishLoad(true)
	return nil
}

// Unload returns to the unloaded state and counts the call.
func (m *MockExtractor) Unload() error {
	m.unloads++
	m.lifecycle.Release()
	return nil
}

// IsLoaded reports whether Load has succeeded.
func (m *MockExtractor) IsLoaded() bool {
	return m.lifecycle.Ready()
}

// UnitBudget returns the configured budget, defaulting to 450 units.
func (m *MockExtractor) UnitBudget() int {
	if m.Budget > 0 {
		return m.Budget
	}
	return 450
}

// Extract returns spans for each capitalized word, or delegates to
// ExtractFunc when set.
func (m *MockExtractor) Extract(ctx context.Context, text string) ([]core.Span, error) {
	m.calls++
	if !m.lifecycle.Ready() {
		return nil, ai.ErrNotLoaded
	}
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, text)
	}
	return capitalizedWords(text), nil
}

// CallCount returns the number of Extract calls.
func (m *MockExtractor) CallCount() int {
	return m.calls
}

// UnloadCount returns the number of Unload calls.
func (m *MockExtractor) UnloadCount() int {
	return m.unloads
}

// capitalizedWords emits one ENT span per word starting with an upper-case
// letter. Deterministic and offset-correct, which is all the pipeline tests
// need.
func capitalizedWords(text string) []core.Span {
	spans := []core.Span{}
	start := -1
	for i, r := range text {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		if isWord && start < 0 {
			start = i
		}
		if !isWord && start >= 0 {
			if word := text[start:i]; unicode.IsUpper([]rune(word)[0]) {
				spans = append(spans, core.Span{
					Text:       word,
					Labels:     []string{"ENT"},
					Start:      start,
					End:        i,
					Confidence: 0.9,
				})
			}
			start = -1
		}
	}
	if start >= 0 {
		if word := text[start:]; unicode.IsUpper([]rune(word)[0]) {
			spans = append(spans, core.Span{
				Text:       word,
				Labels:     []string{"ENT"},
				Start:      start,
				End:        len(text),
				Confidence: 0.9,
			})
		}
	}
	return spans
}
