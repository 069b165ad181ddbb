package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"PERSON", "P"},
		{"PER", "P"},
		{"ORGANIZATION", "O"},
		{"ORG", "O"},
		{"LOCATION", "L"},
		{"CUSTOM_LABEL", "CUSTOM_LABEL"}, // unknown labels pass through
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CompactLabel(tt.label))
	}
}

func TestCompactLabels(t *testing.T) {
	got := CompactLabels([]string{"PERSON", "ORG", "OTHER"})
	assert.Equal(t, []string{"P", "O", "OTHER"}, got)
}

func TestCompactionMapping(t *testing.T) {
	mapping := CompactionMapping()

	assert.Equal(t, []string{"PER", "PERSON"}, mapping["P"], "sources are sorted")
	assert.Equal(t, []string{"ORG", "ORGANIZATION"}, mapping["O"])
	assert.Contains(t, mapping["L"], "GPE")

	// Every table entry must be expandable from the sidecar mapping.
	for code, sources := range mapping {
		for _, source := range sources {
			assert.Equal(t, code, CompactLabel(source))
		}
	}
}
