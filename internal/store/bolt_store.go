package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/model"
	bolt "go.etcd.io/bbolt"
)

var bucketItems = []byte("items")

// BoltStore persists the playlist in a BoltDB file.
// The items bucket is dropped and rebuilt inside a single write transaction,
// so a failed commit rolls back to the previous set.
type BoltStore struct {
	db     *bolt.DB
	mu     sync.Mutex
	hub    *broadcaster
	closed bool
}

// NewBoltStore opens (or creates) the database at path and loads the committed set.
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &model.StorageError{Op: "bolt mkdir", Err: err}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, &model.StorageError{Op: "bolt open", Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketItems)
		return err
	})
	if err != nil {
		db.Close()
		return nil, &model.StorageError{Op: "bolt init", Err: err}
	}

	items, err := loadBolt(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.WithComponent("bolt-store").Infof("opened %s with %d items", path, len(items))
	return &BoltStore{db: db, hub: newBroadcaster(items)}, nil
}

func loadBolt(db *bolt.DB) ([]model.StoredItem, error) {
	var items []model.StoredItem
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketItems)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var it model.StoredItem
			if err := json.Unmarshal(v, &it); err != nil {
				return fmt.Errorf("decode item %s: %w", string(k), err)
			}
			items = append(items, it)
			return nil
		})
	})
	if err != nil {
		return nil, &model.StorageError{Op: "bolt load", Err: err}
	}
	out, err := normalize(items)
	if err != nil {
		return nil, &model.StorageError{Op: "bolt load", Err: err}
	}
	return out, nil
}

// ReplaceAll commits items in one bbolt transaction and notifies subscribers.
func (s *BoltStore) ReplaceAll(_ context.Context, items []model.StoredItem) error {
	next, err := normalize(items)
	if err != nil {
		return &model.StorageError{Op: "bolt replace", Err: err}
	}

	payloads := make([][]byte, len(next))
	for i, it := range next {
		data, err := json.Marshal(it)
		if err != nil {
			return &model.StorageError{Op: "bolt encode", Err: err}
		}
		payloads[i] = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &model.StorageError{Op: "bolt replace", Err: ErrClosed}
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketItems) != nil {
			if err := tx.DeleteBucket(bucketItems); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(bucketItems)
		if err != nil {
			return err
		}
		for i, it := range next {
			if err := b.Put([]byte(it.ID), payloads[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &model.StorageError{Op: "bolt replace", Err: err}
	}

	s.hub.publish(next)
	logger.WithComponent("bolt-store").Debugf("committed %d items", len(next))
	return nil
}

func (s *BoltStore) Observe(ctx context.Context) <-chan []model.StoredItem {
	return s.hub.subscribe(ctx)
}

func (s *BoltStore) Snapshot() []model.StoredItem {
	return s.hub.snapshot()
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.hub.close()
	return s.db.Close()
}
