package dashboard

import "sync"

// Listener is called after every dispatch, outside the store lock.
type Listener func(prev, next State, a Action)

// Store serializes dispatches and hands out snapshots.
type Store struct {
	mu        sync.Mutex
	state     State
	nextSub   int
	listeners map[int]Listener
}

func NewStore(initial State) *Store {
	return &Store{state: initial, listeners: map[int]Listener{}}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	prev := s.state
	next := Reduce(prev, a)
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(prev, next, a)
	}
	return next
}

func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
