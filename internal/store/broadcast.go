package store

import (
	"context"
	"slices"
	"sync"

	"github.com/bassista/go_devbytes/internal/model"
)

// broadcaster fans committed sets out to subscribers.
// Each subscriber has its own unbounded queue so a slow reader never blocks a commit
// and never misses an emission; delivery order equals publish order.
type broadcaster struct {
	mu      sync.Mutex
	current []model.StoredItem
	subs    map[uint64]*subscriber
	nextID  uint64
	closed  bool
}

type subscriber struct {
	queue  [][]model.StoredItem
	notify chan struct{}
	stop   chan struct{}
	out    chan []model.StoredItem
}

func newBroadcaster(initial []model.StoredItem) *broadcaster {
	if initial == nil {
		initial = []model.StoredItem{}
	}
	return &broadcaster{current: initial, subs: make(map[uint64]*subscriber)}
}

func (b *broadcaster) subscribe(ctx context.Context) <-chan []model.StoredItem {
	sub := &subscriber{
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		out:    make(chan []model.StoredItem),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.out)
		return sub.out
	}
	id := b.nextID
	b.nextID++
	sub.queue = append(sub.queue, slices.Clone(b.current))
	b.subs[id] = sub
	b.mu.Unlock()

	sub.wake()
	go b.pump(ctx, id, sub)
	return sub.out
}

func (b *broadcaster) pump(ctx context.Context, id uint64, sub *subscriber) {
	defer close(sub.out)
	defer b.remove(id)

	for {
		b.mu.Lock()
		if len(sub.queue) == 0 {
			b.mu.Unlock()
			select {
			case <-sub.notify:
				continue
			case <-sub.stop:
				return
			case <-ctx.Done():
				return
			}
		}
		next := sub.queue[0]
		sub.queue[0] = nil
		sub.queue = sub.queue[1:]
		b.mu.Unlock()

		select {
		case sub.out <- next:
		case <-sub.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// publish records items as the committed set and queues a copy for every subscriber.
// Callers must hold their own write lock so publish order matches commit order.
func (b *broadcaster) publish(items []model.StoredItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.current = items
	for _, sub := range b.subs {
		sub.queue = append(sub.queue, slices.Clone(items))
		sub.wake()
	}
}

func (b *broadcaster) snapshot() []model.StoredItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.current)
}

func (b *broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.stop)
		delete(b.subs, id)
	}
}

func (s *subscriber) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
