package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/memory"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/persistence/slottest"
)

func TestSnapshotSlot(t *testing.T) {
	slot := memory.NewSnapshotSlot()
	slottest.Run(t, slot)
	assert.Equal(t, 5, slot.Keys())
}
