// Package store holds the local durable copy of the playlist.
//
// Every implementation commits a whole set atomically and pushes each committed set
// to its subscribers, ordered by UpdatedAt descending then ID ascending.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/bassista/go_devbytes/internal/model"
)

// ErrDuplicateID is returned when a replacement set contains the same id twice.
var ErrDuplicateID = errors.New("duplicate item id")

// ErrEmptyID is returned when a replacement set contains an item without id.
var ErrEmptyID = errors.New("empty item id")

// ErrClosed is returned by writes on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is the local store contract used by the cache repository.
type Store interface {
	// ReplaceAll discards the previous set and commits items as one transaction.
	// On failure the previous set stays committed and observable.
	ReplaceAll(ctx context.Context, items []model.StoredItem) error
	// Observe emits the current set on subscribe and again after every commit.
	// The channel is closed when ctx is done or the store is closed.
	Observe(ctx context.Context) <-chan []model.StoredItem
	// Snapshot returns the current committed set.
	Snapshot() []model.StoredItem
	Close() error
}

// normalize copies items, rejects empty and duplicate ids and applies the store ordering.
func normalize(items []model.StoredItem) ([]model.StoredItem, error) {
	out := slices.Clone(items)
	if out == nil {
		out = []model.StoredItem{}
	}
	seen := make(map[string]struct{}, len(out))
	for _, it := range out {
		if it.ID == "" {
			return nil, ErrEmptyID
		}
		if _, dup := seen[it.ID]; dup {
			return nil, ErrDuplicateID
		}
		seen[it.ID] = struct{}{}
	}
	sortItems(out)
	return out, nil
}

func sortItems(items []model.StoredItem) {
	slices.SortFunc(items, func(a, b model.StoredItem) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// sameItems compares two ordered sets field by field, using time equality for UpdatedAt.
func sameItems(a, b []model.StoredItem) bool {
	return slices.EqualFunc(a, b, func(x, y model.StoredItem) bool {
		return x.ID == y.ID &&
			x.Title == y.Title &&
			x.Description == y.Description &&
			x.URL == y.URL &&
			x.ThumbnailURL == y.ThumbnailURL &&
			x.UpdatedAt.Equal(y.UpdatedAt)
	})
}
