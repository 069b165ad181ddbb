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

import "errors"

// Domain validation errors
var (
	// ErrInvalidSpan indicates a Span failed validation.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrEmptyLabels indicates a Span carries no labels.
	ErrEmptyLabels = errors.New("span must have at least one label")

	// ErrInvalidOffsets indicates span offsets that are negative, inverted,
	// or out of bounds for the document.
	ErrInvalidOffsets = errors.New("invalid span offsets")

	// ErrInvalidConfidence indicates a confidence outside [0,1] that is not
	// the unknown sentinel.
	ErrInvalidConfidence = errors.New("confidence must be in [0,1] or the unknown sentinel")

	// ErrInvalidChunk indicates a Chunk whose anchors disagree with its text.
	ErrInvalidChunk = errors.New("chunk anchors do not match text length")

	// ErrEmptyDocID indicates an annotation record without a document ID.
	ErrEmptyDocID = errors.New("document id cannot be empty")
)
