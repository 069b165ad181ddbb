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
	"slices"
	"strings"

	"github.com/poiesic/markit/core"
)

const (
	// OverlapThreshold is the overlap ratio above which two spans are
	// considered duplicates. The comparison is strict: a ratio exactly at
	// the threshold does not merge.
	OverlapThreshold = 0.7

	// sameTextMaxDistance bounds how far apart two spans with identical
	// text may start and still be treated as the same occurrence seen from
	// two adjacent windows.
	sameTextMaxDistance = 100
)

// Dedupe collapses duplicate spans produced by overlapping chunks. The
// result is sorted ascending by start and contains no pair whose overlap
// ratio exceeds OverlapThreshold. When two spans duplicate each other the
// higher-confidence one survives. Idempotent.
func Dedupe(spans []core.Span) []core.Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]core.Span, len(spans))
	copy(sorted, spans)
	slices.SortStableFunc(sorted, cmpSpan)

	var accepted []core.Span
	for _, candidate := range sorted {
		lost := false
		for i := range accepted {
			if isDuplicate(candidate, accepted[i]) && accepted[i].Confidence >= candidate.Confidence {
				lost = true
				break
			}
		}
		if lost {
			continue
		}
		// The candidate outranks every accepted span it duplicates;
		// those must all go, or the pairwise guarantee breaks.
		kept := accepted[:0]
		for _, existing := range accepted {
			if !isDuplicate(candidate, existing) {
				kept = append(kept, existing)
			}
		}
		accepted = append(kept, candidate)
	}

	// A same-text winner can start later than spans accepted after its
	// loser, so the admission order is not the output order.
	slices.SortStableFunc(accepted, cmpSpan)
	return accepted
}

func cmpSpan(a, b core.Span) int {
	if a.Start != b.Start {
		return a.Start - b.Start
	}
	return a.End - b.End
}

// isDuplicate reports whether two spans describe the same occurrence: either
// their overlap dominates one of them, or they carry the same text at nearly
// the same position.
func isDuplicate(a, b core.Span) bool {
	overlap := min(a.End, b.End) - max(a.Start, b.Start)
	if overlap > 0 {
		if float64(overlap)/float64(a.Len()) > OverlapThreshold {
			return true
		}
		if float64(overlap)/float64(b.Len()) > OverlapThreshold {
			return true
		}
	}

	if strings.EqualFold(a.Text, b.Text) && abs(a.Start-b.Start) < sameTextMaxDistance {
		return true
	}

	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
