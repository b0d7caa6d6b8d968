package store

import (
	"context"
	"testing"
	"time"

	"github.com/bassista/go_devbytes/internal/model"
	"github.com/stretchr/testify/require"
)

func item(id, title string, updated int64) model.StoredItem {
	return model.StoredItem{ID: id, Title: title, UpdatedAt: time.Unix(updated, 0).UTC()}
}

func ids(items []model.StoredItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func receive(t *testing.T, ch <-chan []model.StoredItem) []model.StoredItem {
	t.Helper()
	select {
	case items, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
		return nil
	}
}

func expectNoEmission(t *testing.T, ch <-chan []model.StoredItem) {
	t.Helper()
	select {
	case items := <-ch:
		t.Fatalf("unexpected emission: %v", ids(items))
	case <-time.After(50 * time.Millisecond):
	}
}

// storeContract runs the behavior every Store must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := s.Observe(ctx)
	initial := receive(t, sub)
	require.Empty(t, initial)

	require.NoError(t, s.ReplaceAll(ctx, []model.StoredItem{item("a", "A", 3), item("b", "B", 1), item("c", "C", 2)}))
	require.Equal(t, []string{"a", "c", "b"}, ids(receive(t, sub)))

	require.NoError(t, s.ReplaceAll(ctx, []model.StoredItem{item("z", "Z", 5), item("y", "Y", 5)}))
	require.Equal(t, []string{"y", "z"}, ids(receive(t, sub)), "ties break on id ascending")
	require.Equal(t, []string{"y", "z"}, ids(s.Snapshot()))

	err := s.ReplaceAll(ctx, []model.StoredItem{item("d", "D", 1), item("d", "D2", 2)})
	require.Error(t, err)
	var sErr *model.StorageError
	require.ErrorAs(t, err, &sErr)
	require.ErrorIs(t, err, ErrDuplicateID)
	expectNoEmission(t, sub)
	require.Equal(t, []string{"y", "z"}, ids(s.Snapshot()))

	late := s.Observe(ctx)
	require.Equal(t, []string{"y", "z"}, ids(receive(t, late)), "late subscribers get the committed set first")
}
