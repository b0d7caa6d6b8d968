// Package cache implements the offline playlist cache: a local store kept in sync with a
// remote source on demand, and a live domain view of whatever the store last committed.
package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bassista/go_devbytes/internal/logger"
	"github.com/bassista/go_devbytes/internal/mapper"
	"github.com/bassista/go_devbytes/internal/model"
	"github.com/bassista/go_devbytes/internal/remote"
	"github.com/bassista/go_devbytes/internal/store"
	"golang.org/x/sync/singleflight"
)

// Options tunes a Repository.
type Options struct {
	Policy Policy
	// Timeout bounds fetching and mapping. The commit itself is never cut short.
	Timeout time.Duration
	// OnFailure is called once per failed refresh (joined callers do not repeat it).
	OnFailure func(*RefreshError)
}

// Repository refreshes the local store from the remote source and exposes the committed
// set as domain Items.
type Repository struct {
	source    remote.Source
	store     store.Store
	policy    Policy
	timeout   time.Duration
	onFailure func(*RefreshError)

	// mu guards state and flight so the last cancellation check and the move to Committing are atomic.
	mu     sync.Mutex
	state  State
	flight *flight
	gen    uint64

	inFlight    atomic.Bool
	group       singleflight.Group
	lastSuccess atomic.Int64
}

// flight is one shared refresh under the join policy. Its ctx is detached from every
// caller and cancelled only when the last waiter gives up before the commit starts.
type flight struct {
	key        string
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	waiters    int
	committing bool
}

// NewRepository wires a repository. Source and store are required.
func NewRepository(source remote.Source, st store.Store, opts Options) (*Repository, error) {
	if source == nil {
		return nil, errors.New("remote source is nil")
	}
	if st == nil {
		return nil, errors.New("store is nil")
	}
	return &Repository{
		source:    source,
		store:     st,
		policy:    opts.Policy,
		timeout:   opts.Timeout,
		onFailure: opts.OnFailure,
	}, nil
}

// ObserveAll emits the committed set as domain Items: once on subscribe and after every commit.
// The channel closes when ctx is done; callers must cancel ctx when they stop reading.
func (r *Repository) ObserveAll(ctx context.Context) <-chan []model.Item {
	out := make(chan []model.Item)
	src := r.store.Observe(ctx)

	go func() {
		defer close(out)
		for stored := range src {
			items, err := mapper.ToDomainAll(stored)
			if err != nil {
				logger.WithComponent("cache").Errorf("committed set does not map to domain, emission dropped: %v", err)
				continue
			}
			select {
			case out <- items:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Items returns the committed set as domain Items.
func (r *Repository) Items() ([]model.Item, error) {
	return mapper.ToDomainAll(r.store.Snapshot())
}

// State reports the current refresh stage.
func (r *Repository) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Policy reports the concurrency policy in use.
func (r *Repository) Policy() Policy {
	return r.policy
}

// Waiters reports how many callers are waiting on the in-flight refresh.
func (r *Repository) Waiters() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flight == nil {
		return 0
	}
	return r.flight.waiters
}

// LastSuccess returns when the last refresh committed, or the zero time.
func (r *Repository) LastSuccess() time.Time {
	ms := r.lastSuccess.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Refresh runs one fetch-map-commit cycle, or joins/rejects per the policy when one is
// already running. It returns nil, ErrRefreshInProgress, or a *RefreshError.
func (r *Repository) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &RefreshError{Stage: Idle, Cause: err}
	}

	if r.policy == PolicyReject {
		if !r.inFlight.CompareAndSwap(false, true) {
			logger.WithComponent("cache").Debugf("refresh rejected: another refresh is in flight")
			return ErrRefreshInProgress
		}
		defer r.inFlight.Store(false)
		return r.refresh(ctx, nil)
	}

	return r.join(ctx)
}

// join waits on the shared flight, starting one when none is running. A flight that every
// waiter abandoned is left to wind down and a fresh one is started after it.
func (r *Repository) join(ctx context.Context) error {
	for {
		r.mu.Lock()
		f := r.flight
		if f != nil && f.ctx.Err() != nil {
			r.mu.Unlock()
			select {
			case <-f.done:
				continue
			case <-ctx.Done():
				return &RefreshError{Stage: Idle, Cause: ctx.Err()}
			}
		}
		if f == nil {
			f = r.startFlight(ctx)
		} else {
			logger.WithComponent("cache").Debugf("joined in-flight refresh")
		}
		f.waiters++
		// DoChan runs under mu so a flight found here is still registered in the group.
		ch := r.group.DoChan(f.key, func() (interface{}, error) {
			defer r.endFlight(f)
			return nil, r.refresh(f.ctx, f)
		})
		r.mu.Unlock()

		select {
		case res := <-ch:
			r.leave(f)
			return res.Err
		case <-ctx.Done():
			r.mu.Lock()
			committing := f.committing
			f.waiters--
			r.mu.Unlock()
			// A refresh that already started committing finishes; report its outcome.
			if committing {
				res := <-ch
				return res.Err
			}
			select {
			case res := <-ch:
				return res.Err
			default:
			}
			r.abandon(f)
			return &RefreshError{Stage: r.State(), Cause: ctx.Err()}
		}
	}
}

// startFlight must be called with mu held.
func (r *Repository) startFlight(ctx context.Context) *flight {
	r.gen++
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{
		key:    strconv.FormatUint(r.gen, 10),
		ctx:    fctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.flight = f
	return f
}

func (r *Repository) endFlight(f *flight) {
	r.mu.Lock()
	if r.flight == f {
		r.flight = nil
	}
	r.mu.Unlock()
	f.cancel()
	close(f.done)
}

func (r *Repository) leave(f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.waiters--
}

// abandon cancels f once nobody waits for it, unless its commit already started.
func (r *Repository) abandon(f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.waiters == 0 && !f.committing {
		logger.WithComponent("cache").Debugf("all callers left, cancelling refresh")
		f.cancel()
	}
}

// RefreshAsync runs Refresh on its own goroutine and delivers the result once.
func (r *Repository) RefreshAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- r.Refresh(ctx)
	}()
	return done
}

// refresh runs one cycle. f is the join flight, nil under the reject policy.
func (r *Repository) refresh(ctx context.Context, f *flight) error {
	log := logger.WithComponent("cache")
	start := time.Now()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer r.setState(Idle)

	r.setState(Fetching)
	log.Debugf("refresh started")
	wire, err := r.source.FetchPlaylist(ctx)
	if err != nil {
		return r.fail(Fetching, err)
	}
	if err := ctx.Err(); err != nil {
		return r.fail(Fetching, err)
	}

	r.setState(Mapping)
	stored, err := mapper.ToStoredAll(wire)
	if err != nil {
		return r.fail(Mapping, err)
	}

	if err := r.beginCommit(ctx, f); err != nil {
		return r.fail(Mapping, err)
	}
	if err := r.store.ReplaceAll(context.WithoutCancel(ctx), stored); err != nil {
		return r.fail(Committing, err)
	}

	r.lastSuccess.Store(time.Now().UnixMilli())
	log.Infof("refresh committed %d items in %v", len(stored), time.Since(start).Round(time.Millisecond))
	return nil
}

// beginCommit is the last point where cancellation is honored.
func (r *Repository) beginCommit(ctx context.Context, f *flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	r.state = Committing
	if f != nil {
		f.committing = true
	}
	return nil
}

func (r *Repository) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *Repository) fail(stage State, cause error) error {
	rerr := &RefreshError{Stage: stage, Cause: cause}
	logger.WithComponent("cache").WithField("kind", Kind(rerr)).Warnf("%v", rerr)
	if r.onFailure != nil {
		r.onFailure(rerr)
	}
	return rerr
}
