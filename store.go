package hxstate

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pthm/hxstate/lib/keyed"
)

// Store is the shared container: a single State reduced by operations and
// observed by subscribers.
//
// Operations are applied strictly one at a time. For each operation every
// subscriber is notified with the resulting snapshot before the next
// operation is reduced, so all subscribers observe snapshots in dispatch
// order with no coalescing.
//
// Dispatch is synchronous: concurrent callers wait their turn and each gets
// its own operation's error. A listener must not call Dispatch, since the
// store is still notifying on that goroutine; it calls Enqueue instead.
type Store struct {
	// dispatchMu is held for the whole reduce-and-notify cycle.
	dispatchMu sync.Mutex

	mu        sync.Mutex
	state     State
	listeners []*subscription
	queue     []Op
	draining  bool

	logger  *slog.Logger
	metrics *Metrics

	// OnError is called when an enqueued operation fails to reduce.
	// The default logs the failure at error level.
	OnError func(op Op, err error)
}

type subscription struct {
	fn     Listener
	active atomic.Bool
}

// NewStore creates an empty shared container.
func NewStore(opts ...Option) *Store {
	o := applyOptions(opts)
	s := &Store{
		state:   keyed.Empty(),
		logger:  o.logger,
		metrics: o.metrics,
	}
	s.OnError = func(op Op, err error) {
		s.logger.Error("hxstate: queued dispatch failed",
			slog.String("op", op.Kind.String()),
			slog.String("key", op.Key),
			slog.Any("error", err),
		)
	}
	return s
}

// GetState returns the current snapshot.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces op into the shared state and notifies subscribers before
// returning. Invariant violations (unmount or apply on a key that is not
// mounted) are returned as errors wrapping ErrNotMounted.
//
// Operations enqueued by listeners during the cycle are applied before
// Dispatch returns.
func (s *Store) Dispatch(op Op) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.draining = false
			s.queue = nil
			s.mu.Unlock()
			panic(r)
		}
	}()

	err := s.apply(op)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return err
		}
		next := s.queue[0]
		s.queue[0] = Op{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if qerr := s.apply(next); qerr != nil {
			s.OnError(next, qerr)
		}
	}
}

// Enqueue schedules op behind the cycle in progress and returns without
// waiting for it. Listeners use it to dispatch from inside a notification.
// With no cycle in progress the operation is dispatched immediately. Either
// way a reduction error goes to OnError.
func (s *Store) Enqueue(op Op) {
	s.mu.Lock()
	if s.draining {
		s.queue = append(s.queue, op)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.Dispatch(op); err != nil {
		s.OnError(op, err)
	}
}

// apply reduces a single operation and notifies the active listeners.
// The caller holds dispatchMu.
func (s *Store) apply(op Op) error {
	s.mu.Lock()
	next, err := keyed.Reduce(s.state, op)
	if err == nil {
		s.state = next
	}
	listeners := make([]*subscription, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	s.metrics.observeDispatch(op, next, err)
	if err != nil {
		return err
	}

	for _, sub := range listeners {
		if sub.active.Load() {
			sub.fn(next)
			s.metrics.observeNotification()
		}
	}
	return nil
}

// Subscribe registers fn for every subsequent snapshot. The returned
// function is idempotent.
func (s *Store) Subscribe(fn Listener) func() {
	sub := &subscription{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.listeners = append(s.listeners, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l == sub {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers returns the number of registered listeners.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
