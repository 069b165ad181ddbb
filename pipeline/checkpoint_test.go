package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/markit/core"
)

func TestCheckpointManager_RoundTrip(t *testing.T) {
	sig := core.CheckpointSignature("ner", "news", "body")
	mgr := NewCheckpointManager(filepath.Join(t.TempDir(), "out.jsonl"), sig)

	require.Nil(t, mgr.Load(), "no checkpoint yet")

	cp := &core.Checkpoint{
		Offset:       100,
		BatchIndex:   2,
		Processed:    95,
		Skipped:      3,
		Errored:      2,
		ProcessedIDs: []string{"doc1", "doc2"},
	}
	require.NoError(t, mgr.Save(cp))
	assert.Equal(t, sig, cp.Signature, "save stamps the signature")
	assert.False(t, cp.UpdatedAt.IsZero())

	loaded := mgr.Load()
	require.NotNil(t, loaded)
	assert.Equal(t, 100, loaded.Offset)
	assert.Equal(t, 2, loaded.BatchIndex)
	assert.Equal(t, 95, loaded.Processed)
	assert.ElementsMatch(t, []string{"doc1", "doc2"}, loaded.ProcessedIDs)
}

func TestCheckpointManager_SignatureMismatch(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.jsonl")

	first := NewCheckpointManager(output, core.CheckpointSignature("ner", "news", "body"))
	require.NoError(t, first.Save(&core.Checkpoint{Offset: 50}))

	// Same file, different namespace: the checkpoint must not resume.
	other := NewCheckpointManager(output, core.CheckpointSignature("ner", "news", "title"))
	assert.Nil(t, other.Load())
}

func TestCheckpointManager_CorruptFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.jsonl")
	mgr := NewCheckpointManager(output, core.CheckpointSignature("m", "c", "f"))

	require.NoError(t, os.WriteFile(mgr.Path(), []byte("{not json"), 0644))
	assert.Nil(t, mgr.Load(), "corrupt checkpoint reads as absent")
}

func TestCheckpointManager_Clear(t *testing.T) {
	mgr := NewCheckpointManager(filepath.Join(t.TempDir(), "out.jsonl"),
		core.CheckpointSignature("m", "c", "f"))

	require.NoError(t, mgr.Clear(), "clearing a missing checkpoint is fine")

	require.NoError(t, mgr.Save(&core.Checkpoint{Offset: 10}))
	require.NoError(t, mgr.Clear())
	assert.Nil(t, mgr.Load())

	_, err := os.Stat(mgr.Path())
	assert.True(t, os.IsNotExist(err))
}
