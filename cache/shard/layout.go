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


package shard

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/markit/cache"
	"github.com/poiesic/markit/core"
)

// defaultRecord is the LayoutDefault line form: one object per document
// with a nested annotation list.
type defaultRecord struct {
	ID         string      `json:"id"`
	Annotation []core.Span `json:"annotation"`
}

// legacyRecord covers shards written with the short annotation key.
type legacyRecord struct {
	ID         string      `json:"id"`
	Annotation []core.Span `json:"a"`
}

// flatRecord is the LayoutFlat line form: parallel arrays, one element per
// span, with the document ID in a single-element list. Only the first label
// of each span survives flattening.
type flatRecord struct {
	DocID []string  `json:"doc_id"`
	T     []string  `json:"t"`
	L     []string  `json:"l"`
	S     []int     `json:"s"`
	E     []int     `json:"e"`
	C     []float64 `json:"c"`
}

// encodeRecord renders one document's record as a JSONL line body.
func encodeRecord(record core.AnnotationRecord, layout cache.Layout, compact bool) ([]byte, error) {
	spans := record.Spans
	if compact {
		compacted := make([]core.Span, len(spans))
		for i, span := range spans {
			span.Labels = cache.CompactLabels(span.Labels)
			compacted[i] = span
		}
		spans = compacted
	}

	switch layout {
	case cache.LayoutFlat:
		flat := flatRecord{
			DocID: []string{record.DocID},
			T:     make([]string, len(spans)),
			L:     make([]string, len(spans)),
			S:     make([]int, len(spans)),
			E:     make([]int, len(spans)),
			C:     make([]float64, len(spans)),
		}
		for i, span := range spans {
			flat.T[i] = span.Text
			if len(span.Labels) > 0 {
				flat.L[i] = span.Labels[0]
			}
			flat.S[i] = span.Start
			flat.E[i] = span.End
			flat.C[i] = span.Confidence
		}
		return json.Marshal(flat)
	case cache.LayoutDefault, "":
		if spans == nil {
			spans = []core.Span{}
		}
		return json.Marshal(defaultRecord{ID: record.DocID, Annotation: spans})
	default:
		return nil, fmt.Errorf("unknown layout %q", layout)
	}
}

// decodeRecord reconstitutes a span list from a shard line, accepting any
// of the physical sub-formats: nested under "annotation" or "a", or flat
// parallel arrays.
func decodeRecord(line []byte) ([]core.Span, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, fmt.Errorf("malformed record: %w", err)
	}

	if _, ok := probe["annotation"]; ok {
		var rec defaultRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("malformed annotation record: %w", err)
		}
		return rec.Annotation, nil
	}
	if _, ok := probe["a"]; ok {
		var rec legacyRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("malformed annotation record: %w", err)
		}
		return rec.Annotation, nil
	}
	if _, ok := probe["t"]; ok {
		var rec flatRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("malformed flat record: %w", err)
		}
		return expandFlat(rec)
	}
	return nil, fmt.Errorf("record matches no known layout")
}

func expandFlat(rec flatRecord) ([]core.Span, error) {
	n := len(rec.T)
	if len(rec.S) != n || len(rec.E) != n || len(rec.L) != n {
		return nil, fmt.Errorf("flat record arrays disagree in length")
	}

	spans := make([]core.Span, n)
	for i := 0; i < n; i++ {
		confidence := core.ConfidenceUnknown
		if i < len(rec.C) {
			confidence = rec.C[i]
		}
		spans[i] = core.Span{
			Text:       rec.T[i],
			Labels:     []string{rec.L[i]},
			Start:      rec.S[i],
			End:        rec.E[i],
			Confidence: confidence,
		}
	}
	return spans, nil
}
