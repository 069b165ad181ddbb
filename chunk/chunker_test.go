package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_Validation(t *testing.T) {
	_, err := NewChunker(0, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidBudget)

	_, err = NewChunker(100, 100, nil)
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	_, err = NewChunker(100, -1, nil)
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	_, err = NewChunker(100, 10, nil)
	assert.NoError(t, err)
}

func TestChunk_EmptyInput(t *testing.T) {
	chunker, err := NewChunker(500, 50, nil)
	require.NoError(t, err)

	assert.Empty(t, chunker.Chunk(""))
	assert.Empty(t, chunker.Chunk("   \n\t  "))
}

func TestChunk_WithinBudget(t *testing.T) {
	chunker, err := NewChunker(500, 50, nil)
	require.NoError(t, err)

	text := "A short document that fits in one window."
	chunks := chunker.Chunk(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].DocStart)
	assert.Equal(t, len(text), chunks[0].DocEnd)
}

func TestChunk_ShorterThanOverlap(t *testing.T) {
	chunker, err := NewChunker(500, 50, nil)
	require.NoError(t, err)

	chunks := chunker.Chunk("tiny")
	require.Len(t, chunks, 1)
}

// Scenario: 1200 chars with a 500-unit budget and 50-unit overlap in
// character mode produces three windows starting near 0, 450 and 900.
func TestChunk_SlidingWindows(t *testing.T) {
	chunker, err := NewChunker(500, 50, CharCounter())
	require.NoError(t, err)

	text := strings.Repeat("a", 1200)
	chunks := chunker.Chunk(text)

	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].DocStart)
	assert.Equal(t, 450, chunks[1].DocStart)
	assert.Equal(t, 900, chunks[2].DocStart)
	assert.Equal(t, 1200, chunks[2].DocEnd)
}

func TestChunk_BoundaryBackSearch(t *testing.T) {
	chunker, err := NewChunker(100, 20, CharCounter())
	require.NoError(t, err)

	// A sentence end sits at offset 95, inside the overlap region of the
	// first window [80, 100).
	text := strings.Repeat("a", 94) + ". " + strings.Repeat("b", 150)
	chunks := chunker.Chunk(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, 95, chunks[0].DocEnd, "first window should cut after the period")
}

func TestChunk_WhitespaceBoundaryFallback(t *testing.T) {
	chunker, err := NewChunker(100, 20, CharCounter())
	require.NoError(t, err)

	// No sentence punctuation, but a space at offset 90.
	text := strings.Repeat("a", 90) + " " + strings.Repeat("b", 150)
	chunks := chunker.Chunk(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, 91, chunks[0].DocEnd, "first window should cut after the space")
}

func TestChunk_AnchorsMatchText(t *testing.T) {
	chunker, err := NewChunker(80, 15, CharCounter())
	require.NoError(t, err)

	text := "The quick brown fox jumps over the lazy dog. " +
		"Pack my box with five dozen liquor jugs. " +
		"How vexingly quick daft zebras jump! " +
		"Sphinx of black quartz, judge my vow."
	for _, c := range chunker.Chunk(text) {
		assert.Equal(t, text[c.DocStart:c.DocEnd], c.Text)
		assert.NoError(t, c.Validate())
	}
}

// Coverage: for any text under 3x the budget the union of windows covers the
// whole input with no gaps.
func TestChunk_Coverage(t *testing.T) {
	chunker, err := NewChunker(500, 50, CharCounter())
	require.NoError(t, err)

	texts := []string{
		strings.Repeat("a", 1200),
		strings.Repeat("word ", 250),
		strings.Repeat("One sentence here. ", 70),
	}

	for _, text := range texts {
		chunks := chunker.Chunk(text)
		require.NotEmpty(t, chunks)

		assert.Equal(t, 0, chunks[0].DocStart)
		assert.Equal(t, len(text), chunks[len(chunks)-1].DocEnd)
		for i := 1; i < len(chunks); i++ {
			assert.LessOrEqual(t, chunks[i].DocStart, chunks[i-1].DocEnd,
				"gap between window %d and %d", i-1, i)
			assert.Greater(t, chunks[i].DocStart, chunks[i-1].DocStart,
				"window starts must strictly increase")
		}
	}
}

func TestChunk_ForwardProgress(t *testing.T) {
	// Tiny windows over boundary-free text exercise the fallback advance.
	chunker, err := NewChunker(10, 9, CharCounter())
	require.NoError(t, err)

	text := strings.Repeat("x", 200)
	chunks := chunker.Chunk(text)

	require.NotEmpty(t, chunks)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].DocStart, chunks[i-1].DocStart)
	}
	assert.Equal(t, len(text), chunks[len(chunks)-1].DocEnd)
}

func TestCharEstimateCounter(t *testing.T) {
	counter := CharEstimateCounter(2.5)
	assert.Equal(t, 400, counter(strings.Repeat("a", 1000)))
	assert.Equal(t, 0, counter(""))
	assert.Equal(t, 1, counter("a"), "short text still counts at least one unit")

	fallback := CharEstimateCounter(0)
	assert.Equal(t, 400, fallback(strings.Repeat("a", 1000)))
}

func TestCharCounter(t *testing.T) {
	counter := CharCounter()
	assert.Equal(t, 5, counter("hello"))
	assert.Equal(t, 0, counter(""))
}
