// Package slottest holds the behaviour every snapshot slot backend must share.
package slottest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// Run exercises slot against the SnapshotSlot contract
func Run(t *testing.T, slot ports.SnapshotSlot) {
	ctx := context.Background()

	t.Run("missing key is not found", func(t *testing.T) {
		_, err := slot.Load(ctx, "absent")
		assert.True(t, pkgerrors.IsNotFound(err), "got %v", err)
	})

	t.Run("save then load", func(t *testing.T) {
		doc := []byte(`{"version":"1","nodes":[],"edges":[]}`)
		require.NoError(t, slot.Save(ctx, ports.SlotKeyGraph, doc))

		got, err := slot.Load(ctx, ports.SlotKeyGraph)
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		require.NoError(t, slot.Save(ctx, ports.SlotKeyViewport, []byte(`{"scale":1}`)))
		require.NoError(t, slot.Save(ctx, ports.SlotKeyViewport, []byte(`{"scale":2}`)))

		got, err := slot.Load(ctx, ports.SlotKeyViewport)
		require.NoError(t, err)
		assert.Equal(t, `{"scale":2}`, string(got))
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, slot.Save(ctx, "a", []byte("A")))
		require.NoError(t, slot.Save(ctx, "b", []byte("B")))

		got, err := slot.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "A", string(got))
	})

	t.Run("loaded data is a copy", func(t *testing.T) {
		require.NoError(t, slot.Save(ctx, "copy", []byte("original")))
		got, err := slot.Load(ctx, "copy")
		require.NoError(t, err)
		got[0] = 'X'

		again, err := slot.Load(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, "original", string(again))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, slot.Save(ctx, "gone", []byte("x")))
		require.NoError(t, slot.Delete(ctx, "gone"))

		_, err := slot.Load(ctx, "gone")
		assert.True(t, pkgerrors.IsNotFound(err))

		// deleting twice is fine
		assert.NoError(t, slot.Delete(ctx, "gone"))
	})

	t.Run("invalid keys are rejected", func(t *testing.T) {
		for _, key := range []string{"", "../escape", "UPPER", "a/b"} {
			err := slot.Save(ctx, key, []byte("x"))
			assert.True(t, pkgerrors.IsValidation(err), "key %q: got %v", key, err)
		}
	})
}
