// Package file stores snapshots as JSON files on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// SnapshotSlot keeps every key in a file next to path: for data/mindmap.json
// "graph" lives in data/mindmap.graph.json and "viewport" in
// data/mindmap.viewport.json. The graph file is a plain export document.
type SnapshotSlot struct {
	dir  string
	stem string
	ext  string
}

var _ ports.SnapshotSlot = (*SnapshotSlot)(nil)

// NewSnapshotSlot creates the slot, making the parent directory if needed
func NewSnapshotSlot(path string) (*SnapshotSlot, error) {
	if path == "" {
		return nil, pkgerrors.NewValidationError("snapshot path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".json"
	}
	return &SnapshotSlot{
		dir:  dir,
		stem: strings.TrimSuffix(base, filepath.Ext(base)),
		ext:  ext,
	}, nil
}

// Path returns the file holding key
func (s *SnapshotSlot) Path(key string) string {
	return filepath.Join(s.dir, s.stem+"."+key+s.ext)
}

// Save writes data atomically through a temp file and rename
func (s *SnapshotSlot) Save(ctx context.Context, key string, data []byte) error {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return err
	}
	target := s.Path(key)

	tempFile, err := os.CreateTemp(s.dir, "."+s.stem+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempName, target); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to rename temp file to %s: %w", target, err)
	}
	return nil
}

// Load reads the file for key
func (s *SnapshotSlot) Load(ctx context.Context, key string) ([]byte, error) {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pkgerrors.NewNotFoundError("snapshot", key)
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the file for key; a missing file is not an error
func (s *SnapshotSlot) Delete(ctx context.Context, key string) error {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}
