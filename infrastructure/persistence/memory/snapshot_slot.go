package memory

import (
	"context"
	"sync"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// SnapshotSlot keeps snapshots in process memory. Used by tests and by
// canvasd when persistence is switched off.
type SnapshotSlot struct {
	mu    sync.RWMutex
	items map[string][]byte
}

var _ ports.SnapshotSlot = (*SnapshotSlot)(nil)

// NewSnapshotSlot creates an empty in-memory slot
func NewSnapshotSlot() *SnapshotSlot {
	return &SnapshotSlot{items: make(map[string][]byte)}
}

// Save stores a copy of data under key
func (s *SnapshotSlot) Save(ctx context.Context, key string, data []byte) error {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = append([]byte(nil), data...)
	return nil
}

// Load returns a copy of the data under key
func (s *SnapshotSlot) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.items[key]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("snapshot", key)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes key; deleting a missing key is not an error
func (s *SnapshotSlot) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Keys returns the number of stored snapshots
func (s *SnapshotSlot) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
