package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	id1 := IDFromContent("collection-a")
	id2 := IDFromContent("collection-a")
	if id1 != id2 {
		t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
	}

	if IDFromContent("collection-a") == IDFromContent("collection-b") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestCheckpointSignature(t *testing.T) {
	tests := []struct {
		name                      string
		model, collection, field  string
		model2, collection2, field2 string
		wantSame                  bool
	}{
		{
			name:  "same namespace",
			model: "ner-base", collection: "news", field: "body",
			model2: "ner-base", collection2: "news", field2: "body",
			wantSame: true,
		},
		{
			name:  "different model",
			model: "ner-base", collection: "news", field: "body",
			model2: "ner-large", collection2: "news", field2: "body",
			wantSame: false,
		},
		{
			name:  "component boundaries are not ambiguous",
			model: "ab", collection: "c", field: "d",
			model2: "a", collection2: "bc", field2: "d",
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig1 := CheckpointSignature(tt.model, tt.collection, tt.field)
			sig2 := CheckpointSignature(tt.model2, tt.collection2, tt.field2)
			if (sig1 == sig2) != tt.wantSame {
				t.Errorf("CheckpointSignature() same=%v, want %v", sig1 == sig2, tt.wantSame)
			}
		})
	}
}

func TestSpan_Shifted(t *testing.T) {
	span := Span{Text: "Paris", Labels: []string{"LOC"}, Start: 10, End: 15, Confidence: 0.9}
	shifted := span.Shifted(450)

	if shifted.Start != 460 || shifted.End != 465 {
		t.Errorf("Shifted() = [%d,%d), want [460,465)", shifted.Start, shifted.End)
	}
	if shifted.Text != span.Text || shifted.Confidence != span.Confidence {
		t.Errorf("Shifted() modified non-offset fields")
	}
	// Original is untouched
	if span.Start != 10 || span.End != 15 {
		t.Errorf("Shifted() mutated the receiver")
	}
}

func TestSpan_Len(t *testing.T) {
	span := Span{Start: 440, End: 460}
	if span.Len() != 20 {
		t.Errorf("Len() = %d, want 20", span.Len())
	}
}

func TestCheckpoint_ProcessedSet(t *testing.T) {
	cp := &Checkpoint{ProcessedIDs: []string{"doc1", "doc2", "doc2"}}
	set := cp.ProcessedSet()

	if len(set) != 2 {
		t.Errorf("ProcessedSet() has %d entries, want 2", len(set))
	}
	if _, ok := set["doc1"]; !ok {
		t.Errorf("ProcessedSet() missing doc1")
	}
	if _, ok := set["doc3"]; ok {
		t.Errorf("ProcessedSet() contains doc3")
	}
}
