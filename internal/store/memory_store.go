package store

import (
	"context"
	"sync"

	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/model"
)

// MemoryStore keeps the committed set in memory only.
type MemoryStore struct {
	mu     sync.Mutex
	hub    *broadcaster
	closed bool
}

// NewMemoryStore creates a store seeded with initial.
func NewMemoryStore(initial []model.StoredItem) (*MemoryStore, error) {
	items, err := normalize(initial)
	if err != nil {
		return nil, &model.StorageError{Op: "memory seed", Err: err}
	}
	return &MemoryStore{hub: newBroadcaster(items)}, nil
}

// ReplaceAll swaps the committed set.
func (s *MemoryStore) ReplaceAll(_ context.Context, items []model.StoredItem) error {
	next, err := normalize(items)
	if err != nil {
		return &model.StorageError{Op: "memory replace", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &model.StorageError{Op: "memory replace", Err: ErrClosed}
	}
	s.hub.publish(next)
	logger.WithComponent("memory-store").Debugf("committed %d items", len(next))
	return nil
}

func (s *MemoryStore) Observe(ctx context.Context) <-chan []model.StoredItem {
	return s.hub.subscribe(ctx)
}

func (s *MemoryStore) Snapshot() []model.StoredItem {
	return s.hub.snapshot()
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.hub.close()
	return nil
}
