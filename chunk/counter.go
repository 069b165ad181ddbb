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
	"github.com/pkoukk/tiktoken-go"
)

// UnitCounter reports how many extractor input units a text consumes.
// The unit is whatever the extractor's budget is denominated in: tokens
// for transformer models, characters when no tokenizer is available.
type UnitCounter func(text string) int

// DefaultCharsPerUnit is the conservative chars-per-token ratio used when
// estimating token counts without a tokenizer. English text averages around
// 3.5-4 chars per token; using a lower ratio over-counts units, which keeps
// chunks small enough that the extractor never truncates them.
const DefaultCharsPerUnit = 2.5

// CharCounter counts one unit per byte of text. Use it when the extractor's
// budget is expressed directly in characters.
func CharCounter() UnitCounter {
	return func(text string) int {
		return len(text)
	}
}

// CharEstimateCounter estimates token counts from character length using a
// fixed chars-per-unit ratio. Ratios at or below zero fall back to
// DefaultCharsPerUnit.
func CharEstimateCounter(charsPerUnit float64) UnitCounter {
	if charsPerUnit <= 0 {
		charsPerUnit = DefaultCharsPerUnit
	}
	return func(text string) int {
		if len(text) == 0 {
			return 0
		}
		units := int(float64(len(text)) / charsPerUnit)
		if units < 1 {
			units = 1
		}
		return units
	}
}

// TiktokenCounter counts exact token usage under the named tiktoken
// encoding, e.g. "cl100k_base". The encoding is loaded once and the
// returned counter is safe for concurrent use.
func TiktokenCounter(encoding string) (UnitCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}
