package board

import (
	"sync"

	"github.com/support1122/flashfire-dashboard/internal/models"
)

// Listener observes committed transitions. Listeners run in dispatch order
// and must not call Dispatch themselves.
type Listener func(prev, next State, a Action)

// Store owns a board's state. Dispatch is the only way to change it.
type Store struct {
	mu    sync.Mutex
	state State

	// notify serializes whole dispatches so listeners see transitions in
	// commit order. State never takes it.
	notify    sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store seeded with jobs.
func NewStore(jobs []models.Job) *Store {
	return &Store{
		state:     NewState(jobs),
		listeners: map[int]Listener{},
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces a into the current state and notifies listeners when the
// state changed. It returns the resulting snapshot.
func (s *Store) Dispatch(a Action) State {
	next, _ := s.Apply(a)
	return next
}

// Apply is Dispatch that also reports whether a changed the state. The
// check and the commit happen under one lock, so of several racing actions
// only one sees true.
func (s *Store) Apply(a Action) (State, bool) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	prev := s.state
	next, changed := Reduce(prev, a)
	if !changed {
		s.mu.Unlock()
		return prev, false
	}
	next.Version = prev.Version + 1
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if l, ok := s.listeners[i]; ok {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(prev, next, a)
	}
	return next, true
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
