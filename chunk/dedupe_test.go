package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/markit/core"
)

func span(text string, start, end int, confidence float64) core.Span {
	return core.Span{Text: text, Labels: []string{"ENT"}, Start: start, End: end, Confidence: confidence}
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
	assert.Empty(t, Dedupe([]core.Span{}))
}

func TestDedupe_SortsByStart(t *testing.T) {
	spans := []core.Span{
		span("third", 900, 905, 0.9),
		span("first", 10, 15, 0.9),
		span("second", 400, 410, 0.9),
	}

	got := Dedupe(spans)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "third", got[2].Text)
}

func TestDedupe_OverlapKeepsHigherConfidence(t *testing.T) {
	spans := []core.Span{
		span("Marie Curie", 100, 111, 0.6),
		span("Marie Curie,", 100, 112, 0.95),
	}

	got := Dedupe(spans)
	require.Len(t, got, 1)
	assert.Equal(t, 0.95, got[0].Confidence)
}

func TestDedupe_LowerConfidenceCandidateDiscarded(t *testing.T) {
	spans := []core.Span{
		span("Marie Curie", 100, 111, 0.95),
		span("arie Curie", 101, 111, 0.4),
	}

	got := Dedupe(spans)
	require.Len(t, got, 1)
	assert.Equal(t, "Marie Curie", got[0].Text)
	assert.Equal(t, 0.95, got[0].Confidence)
}

// The overlap threshold is strict: a ratio of exactly 0.7 does not merge,
// anything above it does.
func TestDedupe_ThresholdIsStrict(t *testing.T) {
	atThreshold := []core.Span{
		span("aaaa", 0, 100000, 0.9),
		span("bbbb", 30000, 130000, 0.9), // overlap 70000 of 100000 = 0.7
	}
	got := Dedupe(atThreshold)
	assert.Len(t, got, 2, "ratio exactly at threshold must not merge")

	aboveThreshold := []core.Span{
		span("aaaa", 0, 100000, 0.9),
		span("bbbb", 29999, 129999, 0.9), // overlap 70001 of 100000 = 0.70001
	}
	got = Dedupe(aboveThreshold)
	assert.Len(t, got, 1, "ratio above threshold must merge")
}

func TestDedupe_SameTextNearby(t *testing.T) {
	// No positional overlap, but identical text within 100 chars: the same
	// occurrence reported by two adjacent windows.
	spans := []core.Span{
		span("Paris", 440, 445, 0.8),
		span("paris", 460, 465, 0.9),
	}
	got := Dedupe(spans)
	require.Len(t, got, 1)
	assert.Equal(t, 0.9, got[0].Confidence)

	// The same text far apart is a genuine second occurrence.
	distant := []core.Span{
		span("Paris", 0, 5, 0.8),
		span("Paris", 500, 505, 0.9),
	}
	assert.Len(t, Dedupe(distant), 2)
}

// Scenario: an entity inside the window overlap is reported by both windows,
// once in full and once clipped; the merged output contains it exactly once.
func TestDedupe_ChunkSeamEntity(t *testing.T) {
	fromChunk1 := span("Robert Oppenheimer", 440, 460, 0.92)
	fromChunk2 := span("Oppenheimer", 449, 460, 0.88) // clipped by the window edge

	got := Dedupe([]core.Span{fromChunk1, fromChunk2})
	require.Len(t, got, 1)
	assert.Equal(t, "Robert Oppenheimer", got[0].Text)
	assert.Equal(t, 440, got[0].Start)
}

// A same-text duplicate reported later in the document wins on
// confidence; the output must still come back sorted by start.
func TestDedupe_SameTextWinnerKeepsSortOrder(t *testing.T) {
	spans := []core.Span{
		span("alpha", 0, 5, 0.5),
		span("beta", 50, 54, 0.8),
		span("ALPHA", 60, 65, 0.9),
	}

	got := Dedupe(spans)
	require.Len(t, got, 2)
	assert.Equal(t, "beta", got[0].Text)
	assert.Equal(t, "ALPHA", got[1].Text)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Start, got[i].Start, "output sorted by start")
	}
}

// A winner that duplicates several accepted spans displaces all of
// them, never just the first one found.
func TestDedupe_WinnerDisplacesEveryDuplicate(t *testing.T) {
	spans := []core.Span{
		span("Curie", 0, 10, 0.5),
		span("Marie", 8, 12, 0.6), // overlaps neither enough to merge
		span("curie", 9, 12, 0.9), // same text as the first, engulfs the second
	}

	got := Dedupe(spans)
	require.Len(t, got, 1)
	assert.Equal(t, "curie", got[0].Text)
	assert.Equal(t, 0.9, got[0].Confidence)
}

func TestDedupe_Idempotent(t *testing.T) {
	spans := []core.Span{
		span("Paris", 440, 445, 0.8),
		span("paris", 450, 455, 0.9),
		span("Berlin", 900, 906, 0.7),
		span("Berli", 900, 905, 0.6),
		span("Tokyo", 2000, 2005, core.ConfidenceUnknown),
	}

	once := Dedupe(spans)
	twice := Dedupe(once)
	assert.Equal(t, once, twice)
}

func TestDedupe_NoPairExceedsThreshold(t *testing.T) {
	spans := []core.Span{
		span("alpha", 0, 10, 0.5),
		span("beta", 5, 15, 0.6),
		span("gamma", 8, 18, 0.7),
		span("delta", 14, 24, 0.8),
	}

	got := Dedupe(spans)
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			a, b := got[i], got[j]
			overlap := min(a.End, b.End) - max(a.Start, b.Start)
			if overlap <= 0 {
				continue
			}
			assert.LessOrEqual(t, float64(overlap)/float64(a.Len()), OverlapThreshold)
			assert.LessOrEqual(t, float64(overlap)/float64(b.Len()), OverlapThreshold)
		}
	}
}
