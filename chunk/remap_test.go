package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/markit/core"
)

func TestRemap(t *testing.T) {
	spans := []core.Span{
		span("Paris", 10, 15, 0.9),
		span("Curie", 20, 25, core.ConfidenceUnknown),
	}

	got := Remap(spans, 450)
	require.Len(t, got, 2)
	assert.Equal(t, 460, got[0].Start)
	assert.Equal(t, 465, got[0].End)
	assert.Equal(t, 470, got[1].Start)
	assert.Equal(t, 475, got[1].End)

	// Non-offset fields are untouched, as is the input slice.
	assert.Equal(t, "Paris", got[0].Text)
	assert.Equal(t, core.ConfidenceUnknown, got[1].Confidence)
	assert.Equal(t, 10, spans[0].Start)
}

func TestRemap_Empty(t *testing.T) {
	assert.Empty(t, Remap(nil, 100))
}

func TestRemap_ZeroShift(t *testing.T) {
	spans := []core.Span{span("x", 5, 6, 1)}
	got := Remap(spans, 0)
	assert.Equal(t, spans, got)
}
