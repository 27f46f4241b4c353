package services

import (
	"sync"

	"streamlink/internal/core/domain"

	"go.uber.org/zap"
)

// StateSubscriber receives streaming state snapshots.
type StateSubscriber func(state domain.StreamingState)

// publication is one installed snapshot awaiting fan-out to the subscribers
// registered at the time of the mutation.
type publication struct {
	snapshot    domain.StreamingState
	subscribers []StateSubscriber
}

// StateStore holds the immutable StreamingState snapshot and fans updates out
// to subscribers. Publications reach subscribers in mutation order, and
// callbacks run outside the store's lock, so a subscriber may itself call
// Update (or any facade method that does) without deadlocking.
type StateStore struct {
	mu          sync.RWMutex
	state       domain.StreamingState
	subscribers map[int]StateSubscriber
	nextID      int

	// queue holds publications not yet delivered; delivering marks that one
	// goroutine is draining it.
	queue      []publication
	delivering bool

	logger *zap.SugaredLogger
}

// NewStateStore creates an empty store.
func NewStateStore(log *zap.Logger) *StateStore {
	return &StateStore{
		subscribers: make(map[int]StateSubscriber),
		logger:      log.Named("state").Sugar(),
	}
}

// Snapshot returns a copy of the current state, safe for the caller to hold
// or mutate.
func (s *StateStore) Snapshot() domain.StreamingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update applies a mutation to a fresh snapshot, installs it, and publishes
// it to all subscribers before returning. The previous snapshot is never
// altered. When a subscriber callback re-enters Update, the nested
// publication is queued and delivered by the outer call after the current
// one, preserving mutation order.
func (s *StateStore) Update(mutate func(state *domain.StreamingState)) {
	s.mu.Lock()
	next := s.state.Clone()
	mutate(&next)
	s.state = next

	subscribers := make([]StateSubscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.queue = append(s.queue, publication{snapshot: next, subscribers: subscribers})

	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	s.mu.Unlock()

	s.drainQueue()
}

// drainQueue delivers queued publications in order. Exactly one goroutine
// drains at a time; callbacks run with no lock held.
func (s *StateStore) drainQueue() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.delivering = false
			s.mu.Unlock()
			return
		}
		pub := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		for _, fn := range pub.subscribers {
			s.deliver(fn, pub.snapshot.Clone())
		}
	}
}

// deliver invokes one subscriber with panic isolation: a misbehaving handler
// is logged and never breaks the publish loop.
func (s *StateStore) deliver(fn StateSubscriber, snapshot domain.StreamingState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("state subscriber panicked", "panic", r)
		}
	}()
	fn(snapshot)
}

// Subscribe registers a subscriber and immediately delivers the current
// snapshot. The returned function unsubscribes.
func (s *StateStore) Subscribe(fn StateSubscriber) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	current := s.state.Clone()
	s.mu.Unlock()

	s.deliver(fn, current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// SubscriberCount returns the number of registered subscribers.
func (s *StateStore) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Clear removes all subscribers.
func (s *StateStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = make(map[int]StateSubscriber)
}
