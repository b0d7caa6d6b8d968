package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/model"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
)

const watchDebounce = 200 * time.Millisecond

// jsonDocument is the on-disk layout of a JSONStore file.
type jsonDocument struct {
	Metadata jsonMetadata       `json:"metadata"`
	Items    []model.StoredItem `json:"items" validate:"dive"`
}

type jsonMetadata struct {
	LastUpdate int64 `json:"lastUpdate"` // Unix timestamp in milliseconds
}

// JSONStore keeps the playlist in a single JSON file.
// Commits are written to a temp file and renamed over the target, so readers of the file
// see either the old or the new set. The parent directory is watched so edits made by
// another process are pushed to subscribers as well.
type JSONStore struct {
	path      string
	dir       string
	base      string
	validator *validator.Validate
	hub       *broadcaster
	mu        sync.Mutex
	closed    bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewJSONStore loads path (a missing file means an empty set) and starts watching it.
func NewJSONStore(path string) (*JSONStore, error) {
	if path == "" {
		return nil, errors.New("data file path is required")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "" || dir == "." {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &model.StorageError{Op: "json mkdir", Err: err}
	}

	s := &JSONStore{path: path, dir: dir, base: base, validator: validator.New()}

	items, err := s.load()
	if err != nil {
		return nil, err
	}
	s.hub = newBroadcaster(items)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if err := s.startWatcher(ctx); err != nil {
		cancel()
		return nil, &model.StorageError{Op: "json watch", Err: err}
	}
	return s, nil
}

// load reads and validates the data file. The caller must hold s.mu once the store is live.
func (s *JSONStore) load() ([]model.StoredItem, error) {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.StoredItem{}, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "json open", Err: err}
	}
	defer file.Close()

	var doc jsonDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, &model.StorageError{Op: "json decode", Err: err}
	}
	if err := s.validator.Struct(&doc); err != nil {
		return nil, &model.StorageError{Op: "json validate", Err: err}
	}

	items, err := normalize(doc.Items)
	if err != nil {
		return nil, &model.StorageError{Op: "json load", Err: err}
	}
	return items, nil
}

// ReplaceAll writes the new set atomically and notifies subscribers.
func (s *JSONStore) ReplaceAll(_ context.Context, items []model.StoredItem) error {
	next, err := normalize(items)
	if err != nil {
		return &model.StorageError{Op: "json replace", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &model.StorageError{Op: "json replace", Err: ErrClosed}
	}

	doc := jsonDocument{Metadata: jsonMetadata{LastUpdate: time.Now().UnixMilli()}, Items: next}
	if err := s.save(&doc); err != nil {
		return &model.StorageError{Op: "json replace", Err: err}
	}

	s.hub.publish(next)
	logger.WithComponent("json-store").Debugf("committed %d items to %s", len(next), s.path)
	return nil
}

// save writes the document without acquiring the lock (caller must hold it).
func (s *JSONStore) save(doc *jsonDocument) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.dir, s.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

// startWatcher watches the parent directory (not the file) so temp+rename replacements
// are still observed. Events are filtered by basename and debounced.
func (s *JSONStore) startWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		defer watcher.Close()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, s.reloadFromDisk)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != s.base {
					continue
				}
				// Create covers rename-over; removals keep the committed set until a new file appears.
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithComponent("json-store").Warnf("watcher error: %v", err)
			}
		}
	}()
	return nil
}

// reloadFromDisk publishes the file content when it differs from the committed set.
// Our own commits land here too and are skipped by the comparison.
func (s *JSONStore) reloadFromDisk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	items, err := s.load()
	if err != nil {
		logger.WithComponent("json-store").Warnf("watch reload failed, keeping committed set: %v", err)
		return
	}
	if sameItems(items, s.hub.snapshot()) {
		logger.WithComponent("json-store").Tracef("disk content matches committed set, skipping reload")
		return
	}

	s.hub.publish(items)
	logger.WithComponent("json-store").Infof("reloaded %d items after external change to %s", len(items), s.path)
}

func (s *JSONStore) Observe(ctx context.Context) <-chan []model.StoredItem {
	return s.hub.subscribe(ctx)
}

func (s *JSONStore) Snapshot() []model.StoredItem {
	return s.hub.snapshot()
}

func (s *JSONStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.hub.close()
	s.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}
