package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bassista/go_devbytes/internal/model"
	"github.com/bassista/go_devbytes/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSource is a mock implementation of remote.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchPlaylist(ctx context.Context) ([]model.WireItem, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.WireItem)
	return items, args.Error(1)
}

// blockingSource answers the first `passes` fetches at once and parks the rest until release is closed or ctx ends.
type blockingSource struct {
	calls   atomic.Int32
	passes  int32
	started chan struct{}
	release chan struct{}
	items   []model.WireItem
}

func newBlockingSource(items []model.WireItem) *blockingSource {
	return &blockingSource{started: make(chan struct{}, 8), release: make(chan struct{}), items: items}
}

func (b *blockingSource) FetchPlaylist(ctx context.Context) ([]model.WireItem, error) {
	n := b.calls.Add(1)
	b.started <- struct{}{}
	if n <= b.passes {
		return b.items, nil
	}
	select {
	case <-b.release:
		return b.items, nil
	case <-ctx.Done():
		return nil, &model.NetworkError{URL: "test://playlist", Err: ctx.Err()}
	}
}

// flakyStore fails commits while fail is set.
type flakyStore struct {
	*store.MemoryStore
	fail atomic.Bool
}

func (f *flakyStore) ReplaceAll(ctx context.Context, items []model.StoredItem) error {
	if f.fail.Load() {
		return &model.StorageError{Op: "test replace", Err: errors.New("disk full")}
	}
	return f.MemoryStore.ReplaceAll(ctx, items)
}

// gatedStore holds commits until release is closed.
type gatedStore struct {
	*store.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ReplaceAll(ctx context.Context, items []model.StoredItem) error {
	g.entered <- struct{}{}
	<-g.release
	return g.MemoryStore.ReplaceAll(ctx, items)
}

func newMemoryStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s, err := store.NewMemoryStore(nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func wire(id, title string, updated int) model.WireItem {
	return model.WireItem{ID: model.Scalar(id), Title: title, Updated: model.Scalar(stamp(updated))}
}

func stamp(n int) string {
	return time.Unix(int64(n), 0).UTC().Format(time.RFC3339)
}

func titles(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func next(t *testing.T, ch <-chan []model.Item) []model.Item {
	t.Helper()
	select {
	case items, ok := <-ch:
		require.True(t, ok, "view closed unexpectedly")
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for view emission")
		return nil
	}
}

func noEmission(t *testing.T, ch <-chan []model.Item) {
	t.Helper()
	select {
	case items := <-ch:
		t.Fatalf("unexpected emission %v", titles(items))
	case <-time.After(50 * time.Millisecond):
	}
}

func waitStarted(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not start")
	}
}

func result(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not finish")
		return nil
	}
}
