package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/markit/core"
)

func TestResolveSpans(t *testing.T) {
	text := "Marie Curie worked in Paris. Curie won twice."
	entities := []entity{
		{Text: "Marie Curie", Label: "person", Confidence: 0.95},
		{Text: "Paris", Label: "LOCATION", Confidence: 0.9},
	}

	spans := resolveSpans(text, entities, []string{"PERSON", "LOCATION"})
	require.Len(t, spans, 2)

	assert.Equal(t, "Marie Curie", spans[0].Text)
	assert.Equal(t, []string{"PERSON"}, spans[0].Labels, "labels are upper-cased")
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 11, spans[0].End)
	assert.Equal(t, text[spans[1].Start:spans[1].End], "Paris")
}

func TestResolveSpans_MultipleOccurrences(t *testing.T) {
	text := "Paris is Paris."
	spans := resolveSpans(text, []entity{{Text: "Paris", Label: "LOCATION", Confidence: 0.8}}, []string{"LOCATION"})

	require.Len(t, spans, 2)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 9, spans[1].Start)
}

func TestResolveSpans_DropsInventedEntities(t *testing.T) {
	spans := resolveSpans("nothing here", []entity{{Text: "London", Label: "LOCATION"}}, []string{"LOCATION"})
	assert.Empty(t, spans)
}

func TestResolveSpans_DropsUnknownLabels(t *testing.T) {
	text := "Paris in spring"
	spans := resolveSpans(text, []entity{{Text: "Paris", Label: "CITY"}}, []string{"LOCATION"})
	assert.Empty(t, spans)
}

func TestResolveSpans_ConfidenceSentinel(t *testing.T) {
	text := "Paris"
	spans := resolveSpans(text, []entity{{Text: "Paris", Label: "LOCATION"}}, []string{"LOCATION"})
	require.Len(t, spans, 1)
	assert.Equal(t, core.ConfidenceUnknown, spans[0].Confidence, "unscored entities use the sentinel")
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain json untouched",
			in:   `{"entities": []}`,
			want: `{"entities": []}`,
		},
		{
			name: "markdown fences stripped",
			in:   "```json\n{\"entities\": []}\n```",
			want: `{"entities": []}`,
		},
		{
			name: "trailing comma removed",
			in:   `{"entities": [{"text": "a", "label": "B",},]}`,
			want: `{"entities": [{"text": "a", "label": "B"}]}`,
		},
		{
			name: "commas inside strings preserved",
			in:   `{"entities": [{"text": "a, b,", "label": "C"}]}`,
			want: `{"entities": [{"text": "a, b,", "label": "C"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}
