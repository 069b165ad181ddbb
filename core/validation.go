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


package core

import "fmt"

// Validate checks the span against its own invariants. docLen is the length
// of the document the offsets refer to; pass a negative docLen to skip the
// upper-bound check when the document text is not at hand.
func (s Span) Validate(docLen int) error {
	if len(s.Labels) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSpan, ErrEmptyLabels)
	}
	if s.Start < 0 || s.Start >= s.End {
		return fmt.Errorf("%w: %w: start=%d end=%d", ErrInvalidSpan, ErrInvalidOffsets, s.Start, s.End)
	}
	if docLen >= 0 && s.End > docLen {
		return fmt.Errorf("%w: %w: end=%d docLen=%d", ErrInvalidSpan, ErrInvalidOffsets, s.End, docLen)
	}
	if s.Confidence != ConfidenceUnknown && (s.Confidence < 0 || s.Confidence > 1) {
		return fmt.Errorf("%w: %w: %f", ErrInvalidSpan, ErrInvalidConfidence, s.Confidence)
	}
	return nil
}

// Validate checks that the chunk's document anchors agree with its text.
func (c Chunk) Validate() error {
	if c.DocEnd-c.DocStart != len(c.Text) {
		return fmt.Errorf("%w: [%d,%d) vs %d bytes", ErrInvalidChunk, c.DocStart, c.DocEnd, len(c.Text))
	}
	if c.DocStart < 0 {
		return fmt.Errorf("%w: negative start %d", ErrInvalidChunk, c.DocStart)
	}
	return nil
}

// Validate checks the record's document ID and every span it carries.
func (r *AnnotationRecord) Validate() error {
	if r.DocID == "" {
		return ErrEmptyDocID
	}
	for i, span := range r.Spans {
		if err := span.Validate(-1); err != nil {
			return fmt.Errorf("span %d: %w", i, err)
		}
	}
	return nil
}
