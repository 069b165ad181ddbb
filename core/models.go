package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier derived from content.
// It is used for checkpoint signatures and shard naming, so that two runs
// over the same (model, collection, field) namespace agree on identity
// without any coordination.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ConfidenceUnknown is the sentinel confidence for spans the extractor
// did not score.
const ConfidenceUnknown = -1.0

// Span is a single extracted annotation: an entity or token with its
// character offsets in the source document. Spans are immutable once
// created; remapping and deduplication produce new values.
type Span struct {
	Text       string   `json:"text"`
	Labels     []string `json:"labels"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Confidence float64  `json:"confidence"`
}

// Len returns the character length of the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Shifted returns a copy of the span with both offsets moved by delta.
func (s Span) Shifted(delta int) Span {
	s.Start += delta
	s.End += delta
	return s
}

// Chunk is a bounded substring of a document, anchored to its position in
// the full text. Chunks are ephemeral: created per document, discarded
// after extraction.
type Chunk struct {
	Text     string
	DocStart int
	DocEnd   int
}

// AnnotationRecord associates a document with its extracted spans.
// It is the unit stored and retrieved by the annotation cache.
type AnnotationRecord struct {
	DocID string
	Spans []Span
}

// Checkpoint is a durable snapshot of pipeline progress. A checkpoint is
// only honored on resume when its Signature matches the current
// (model, collection, field) namespace.
type Checkpoint struct {
	Signature    ID        `json:"signature"`
	Offset       int       `json:"offset"`
	BatchIndex   int       `json:"batch_index"`
	Processed    int       `json:"processed"`
	Skipped      int       `json:"skipped"`
	Errored      int       `json:"errored"`
	ProcessedIDs []string  `json:"processed_doc_ids"`
	// OutputBytes is the durable size of the streamed output file when
	// the checkpoint was written; resume trims the file back to it so
	// lines the checkpoint never claimed are not duplicated.
	OutputBytes int64     `json:"output_bytes,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CheckpointSignature derives the signature ID for a pipeline namespace.
func CheckpointSignature(model, collection, field string) ID {
	return IDFromContent(model + "\x00" + collection + "\x00" + field)
}

// ProcessedSet returns the processed document IDs as a set for O(1)
// membership checks during resume.
func (c *Checkpoint) ProcessedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ProcessedIDs))
	for _, id := range c.ProcessedIDs {
		set[id] = struct{}{}
	}
	return set
}
