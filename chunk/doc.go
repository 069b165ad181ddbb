// Package chunk splits oversized documents into overlapping windows that fit
// an extractor's input budget, and merges per-window results back into
// globally consistent annotations.
//
// The three stages compose: Chunker produces windows anchored to document
// offsets, Remap translates window-local span offsets to document-global
// ones, and Dedupe collapses the duplicate spans that overlapping windows
// inevitably produce at their seams.
package chunk
