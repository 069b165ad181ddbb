package core

import (
	"reflect"
	"testing"
)

func TestSpansRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		spans []Span
	}{
		{
			name: "typical spans",
			spans: []Span{
				{Text: "Paris", Labels: []string{"LOC"}, Start: 10, End: 15, Confidence: 0.9},
				{Text: "Marie Curie", Labels: []string{"PER", "SCIENTIST"}, Start: 20, End: 31, Confidence: ConfidenceUnknown},
			},
		},
		{
			name:  "empty list",
			spans: nil,
		},
		{
			name: "unicode text",
			spans: []Span{
				{Text: "Zürich", Labels: []string{"LOC"}, Start: 0, End: 7, Confidence: 0.5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalSpans(tt.spans)
			got, err := UnmarshalSpans(data)
			if err != nil {
				t.Fatalf("UnmarshalSpans() error: %v", err)
			}
			if len(got) != len(tt.spans) {
				t.Fatalf("UnmarshalSpans() returned %d spans, want %d", len(got), len(tt.spans))
			}
			for i := range got {
				if !reflect.DeepEqual(got[i], tt.spans[i]) {
					t.Errorf("span %d = %+v, want %+v", i, got[i], tt.spans[i])
				}
			}
		})
	}
}

func TestUnmarshalSpans_Truncated(t *testing.T) {
	data := MarshalSpans([]Span{
		{Text: "Paris", Labels: []string{"LOC"}, Start: 10, End: 15, Confidence: 0.9},
	})

	if _, err := UnmarshalSpans(data[:len(data)/2]); err == nil {
		t.Errorf("UnmarshalSpans() on truncated data should fail")
	}
}

func TestSpanMUS_SizeMatchesMarshal(t *testing.T) {
	span := Span{Text: "Berlin", Labels: []string{"LOC", "CITY"}, Start: 100, End: 106, Confidence: 0.75}
	buf := make([]byte, SpanMUS.Size(span))
	n := SpanMUS.Marshal(span, buf)
	if n != len(buf) {
		t.Errorf("Marshal() wrote %d bytes, Size() reported %d", n, len(buf))
	}
}
