package cache

import "sort"

// compactTable is the fixed many-to-one label compaction mapping. Spelling
// variants of the same class share a code; unknown labels pass through
// unchanged.
var compactTable = map[string]string{
	"PERSON":       "P",
	"PER":          "P",
	"ORGANIZATION": "O",
	"ORG":          "O",
	"LOCATION":     "L",
	"LOC":          "L",
	"GPE":          "L",
	"DATE":         "D",
	"TIME":         "D",
	"MONEY":        "M",
	"EMAIL":        "E",
	"URL":          "U",
	"PHONE":        "T",
	"IP":           "I",
	"MISC":         "X",
}

// CompactLabel maps a label through the compaction table. Labels without a
// table entry are returned unchanged.
func CompactLabel(label string) string {
	if code, ok := compactTable[label]; ok {
		return code
	}
	return label
}

// CompactLabels maps every label of a list through the compaction table.
func CompactLabels(labels []string) []string {
	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = CompactLabel(label)
	}
	return out
}

// CompactionMapping returns code -> source labels, the content of the
// sidecar file that must accompany compacted shards so downstream
// consumers can expand codes again. Source lists are sorted for stable
// output.
func CompactionMapping() map[string][]string {
	mapping := make(map[string][]string)
	for label, code := range compactTable {
		mapping[code] = append(mapping[code], label)
	}
	for code := range mapping {
		sort.Strings(mapping[code])
	}
	return mapping
}
