// Package source defines where document text comes from. A DocumentSource
// serves stable pages of (id, text) pairs so the annotation pipeline can
// walk an entire collection by offset without holding it in memory.
package source
