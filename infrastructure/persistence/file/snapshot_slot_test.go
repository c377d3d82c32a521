package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/file"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/slottest"
)

func TestSnapshotSlot(t *testing.T) {
	slot, err := file.NewSnapshotSlot(filepath.Join(t.TempDir(), "nested", "mindmap.json"))
	require.NoError(t, err)
	slottest.Run(t, slot)
}

func TestSnapshotSlot_Layout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mindmap.json")
	slot, err := file.NewSnapshotSlot(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, slot.Save(ctx, ports.SlotKeyGraph, []byte(`{"version":"1"}`)))
	require.NoError(t, slot.Save(ctx, ports.SlotKeyViewport, []byte(`{}`)))

	data, err := os.ReadFile(filepath.Join(dir, "mindmap.graph.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"version":"1"}`, string(data))
	assert.Equal(t, filepath.Join(dir, "mindmap.graph.json"), slot.Path(ports.SlotKeyGraph))
	assert.FileExists(t, filepath.Join(dir, "mindmap.viewport.json"))
	assert.NoFileExists(t, path)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNewSnapshotSlot_RequiresPath(t *testing.T) {
	_, err := file.NewSnapshotSlot("")
	assert.Error(t, err)
}
