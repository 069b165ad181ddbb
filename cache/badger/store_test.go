package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/markit/cache"
	"github.com/poiesic/markit/core"
)

func memoryStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := memoryStore(t)
	records := []core.AnnotationRecord{
		{DocID: "doc1", Spans: []core.Span{
			{Text: "Paris", Labels: []string{"LOCATION"}, Start: 10, End: 15, Confidence: 0.9},
		}},
		{DocID: "doc2", Spans: []core.Span{
			{Text: "CERN", Labels: []string{"ORG"}, Start: 0, End: 4, Confidence: core.ConfidenceUnknown},
		}},
	}

	require.NoError(t, store.SaveAnnotations("ner", "news", "body", records, cache.SaveOptions{}))

	for _, record := range records {
		spans, err := store.GetAnnotation("ner", "news", "body", record.DocID)
		require.NoError(t, err)
		assert.Equal(t, record.Spans, spans)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := memoryStore(t)
	_, err := store.GetAnnotation("ner", "news", "body", "missing")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestSave_EmptyBatch(t *testing.T) {
	store := memoryStore(t)
	err := store.SaveAnnotations("ner", "news", "body", nil, cache.SaveOptions{})
	assert.ErrorIs(t, err, cache.ErrNoRecords)
}

func TestSave_Compact(t *testing.T) {
	store := memoryStore(t)
	records := []core.AnnotationRecord{
		{DocID: "doc1", Spans: []core.Span{
			{Text: "Curie", Labels: []string{"PERSON"}, Start: 0, End: 5, Confidence: 0.8},
		}},
	}

	require.NoError(t, store.SaveAnnotations("ner", "news", "body", records, cache.SaveOptions{Compact: true}))

	spans, err := store.GetAnnotation("ner", "news", "body", "doc1")
	require.NoError(t, err)
	assert.Equal(t, []string{"P"}, spans[0].Labels)

	// The caller's slice is never mutated by compaction.
	assert.Equal(t, []string{"PERSON"}, records[0].Spans[0].Labels)
}

func TestNamespaceIsolation(t *testing.T) {
	store := memoryStore(t)
	records := []core.AnnotationRecord{
		{DocID: "doc1", Spans: []core.Span{
			{Text: "x", Labels: []string{"X"}, Start: 0, End: 1, Confidence: 1},
		}},
	}

	require.NoError(t, store.SaveAnnotations("model-a", "news", "body", records, cache.SaveOptions{}))

	_, err := store.GetAnnotation("model-b", "news", "body", "doc1")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	_, err = store.GetAnnotation("model-a", "news", "title", "doc1")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestOverwriteReplacesSpans(t *testing.T) {
	store := memoryStore(t)
	first := []core.AnnotationRecord{
		{DocID: "doc1", Spans: []core.Span{
			{Text: "old", Labels: []string{"X"}, Start: 0, End: 3, Confidence: 0.5},
		}},
	}
	second := []core.AnnotationRecord{
		{DocID: "doc1", Spans: []core.Span{
			{Text: "new", Labels: []string{"Y"}, Start: 4, End: 7, Confidence: 0.9},
		}},
	}

	require.NoError(t, store.SaveAnnotations("m", "c", "f", first, cache.SaveOptions{}))
	require.NoError(t, store.SaveAnnotations("m", "c", "f", second, cache.SaveOptions{}))

	spans, err := store.GetAnnotation("m", "c", "f", "doc1")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "new", spans[0].Text)
}

func TestClosedStore(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.SaveAnnotations("m", "c", "f", []core.AnnotationRecord{
		{DocID: "d", Spans: []core.Span{{Text: "x", Labels: []string{"X"}, Start: 0, End: 1, Confidence: 1}}},
	}, cache.SaveOptions{})
	assert.ErrorIs(t, err, cache.ErrStoreClosed)

	_, err = store.GetAnnotation("m", "c", "f", "d")
	assert.ErrorIs(t, err, cache.ErrStoreClosed)
}
