// Package redis stores snapshots as redis string values.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
	"github.com/Steiynbrodt/Osint-Mindmap/pkg/utils"
)

// DefaultKeyPrefix namespaces the snapshot keys
const DefaultKeyPrefix = "osint-mindmap:"

// SnapshotSlot keeps each snapshot under prefix+"snapshot:"+key
type SnapshotSlot struct {
	client *redis.Client
	prefix string
}

var _ ports.SnapshotSlot = (*SnapshotSlot)(nil)

// NewSnapshotSlot wraps an existing client
func NewSnapshotSlot(client *redis.Client, prefix string) *SnapshotSlot {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SnapshotSlot{client: client, prefix: prefix}
}

// Dial connects to addr and checks the connection
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *SnapshotSlot) makeKey(key string) string {
	return fmt.Sprintf("%ssnapshot:%s", s.prefix, key)
}

// Save stores data under key without expiry
func (s *SnapshotSlot) Save(ctx context.Context, key string, data []byte) error {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.makeKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	return nil
}

// Load returns the data under key
func (s *SnapshotSlot) Load(ctx context.Context, key string) ([]byte, error) {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.makeKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pkgerrors.NewNotFoundError("snapshot", key)
		}
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	return data, nil
}

// Delete removes key
func (s *SnapshotSlot) Delete(ctx context.Context, key string) error {
	if err := utils.ValidateSnapshotKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.makeKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

// Close closes the client
func (s *SnapshotSlot) Close() error {
	return s.client.Close()
}
