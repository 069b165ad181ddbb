package chunk

import "github.com/poiesic/markit/core"

// Remap translates chunk-local span offsets into document-global offsets by
// shifting every span by the chunk's document start. Pure function: the
// input slice is not modified and no spans are filtered.
func Remap(spans []core.Span, chunkDocStart int) []core.Span {
	if len(spans) == 0 {
		return nil
	}
	out := make([]core.Span, len(spans))
	for i, span := range spans {
		out[i] = span.Shifted(chunkDocStart)
	}
	return out
}
