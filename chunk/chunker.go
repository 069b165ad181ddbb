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


package chunk

import (
	"errors"
	"strings"

	"github.com/poiesic/markit/core"
)

var (
	// ErrInvalidBudget indicates a unit budget that is zero or negative.
	ErrInvalidBudget = errors.New("unit budget must be positive")

	// ErrInvalidOverlap indicates an overlap that is negative or not smaller
	// than the unit budget.
	ErrInvalidOverlap = errors.New("overlap must be in [0, budget)")
)

// Chunker splits long text into overlapping windows with document-global
// offset anchors. Windows prefer to end on a sentence or whitespace
// boundary so semantic units are not cut mid-word.
type Chunker struct {
	budget  int
	overlap int
	counter UnitCounter
}

// NewChunker creates a chunker with the given unit budget and overlap.
// A nil counter defaults to CharCounter.
func NewChunker(budget, overlap int, counter UnitCounter) (*Chunker, error) {
	if budget <= 0 {
		return nil, ErrInvalidBudget
	}
	if overlap < 0 || overlap >= budget {
		return nil, ErrInvalidOverlap
	}
	if counter == nil {
		counter = CharCounter()
	}
	return &Chunker{budget: budget, overlap: overlap, counter: counter}, nil
}

// Chunk splits text into overlapping windows. Each returned chunk satisfies
// text[c.DocStart:c.DocEnd] == c.Text, window starts strictly increase, and
// the union of windows covers the whole input. Empty or whitespace-only
// input yields no chunks; text within budget yields a single chunk.
func (c *Chunker) Chunk(text string) []core.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	units := c.counter(text)
	if units <= c.budget || units <= c.overlap {
		return []core.Chunk{{Text: text, DocStart: 0, DocEnd: len(text)}}
	}

	// Derive the chars-per-unit ratio from this document so windows land
	// close to the budget regardless of how the counter is denominated.
	charsPerUnit := float64(len(text)) / float64(units)
	window := int(float64(c.budget) * charsPerUnit)
	if window < 1 {
		window = 1
	}
	overlapChars := int(float64(c.overlap) * charsPerUnit)
	if overlapChars >= window {
		overlapChars = window - 1
	}

	var chunks []core.Chunk
	start := 0
	for start < len(text) {
		end := start + window
		if end >= len(text) {
			chunks = append(chunks, core.Chunk{Text: text[start:], DocStart: start, DocEnd: len(text)})
			break
		}

		// The right edge falls inside the text: back up within the overlap
		// region to the nearest unit boundary so the cut does not split a
		// sentence or word. A missing boundary means a hard cut.
		cut := boundaryBefore(text, end, overlapChars)
		chunks = append(chunks, core.Chunk{Text: text[start:cut], DocStart: start, DocEnd: cut})

		next := cut - overlapChars
		if next <= start {
			// Pathological boundary placement; force forward progress.
			next = start + max(1, window/2)
		}
		start = next
	}

	return chunks
}

// boundaryBefore searches backward from end, at most span bytes, for a unit
// boundary. Sentence-ending punctuation wins over plain whitespace; a cut
// lands just after the boundary byte. Returns end when no boundary exists.
func boundaryBefore(text string, end, span int) int {
	low := end - span
	if low < 1 {
		low = 1
	}

	whitespace := -1
	for i := end - 1; i >= low; i-- {
		switch text[i] {
		case '.', '!', '?', '\n':
			return i + 1
		case ' ', '\t', '\r':
			if whitespace < 0 {
				whitespace = i + 1
			}
		}
	}
	if whitespace >= 0 {
		return whitespace
	}
	return end
}
