// Package uistate holds shared open/closed state for app-wide panels such as the
// search palette and the settings dialog.
package uistate

import "sync"

// Store is an open/closed flag with change notification. The zero value is not usable;
// create stores with NewStore and pass them to whoever needs them.
type Store struct {
	name string

	mu     sync.Mutex
	open   bool
	nextID int
	subs   map[int]chan bool
}

// NewStore creates a closed store.
func NewStore(name string) *Store {
	return &Store{
		name: name,
		subs: make(map[int]chan bool),
	}
}

// Name identifies the panel the store controls.
func (s *Store) Name() string {
	return s.name
}

// Open opens the panel.
func (s *Store) Open() {
	s.set(true)
}

// Close closes the panel.
func (s *Store) Close() {
	s.set(false)
}

// Toggle flips the panel and returns the new state.
func (s *Store) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = !s.open
	s.notify()
	return s.open
}

// IsOpen reports the current state.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Subscribe returns a channel receiving the state after every change, starting with the
// current one. Only the latest state is buffered. The returned func unsubscribes and
// closes the channel.
func (s *Store) Subscribe() (<-chan bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan bool, 1)
	ch <- s.open
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) set(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open == open {
		return
	}
	s.open = open
	s.notify()
}

// notify must be called with mu held.
func (s *Store) notify() {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.open
	}
}

// Registry keeps one Store per user for a named panel. A user's stores are created
// on first use and live as long as the registry.
type Registry struct {
	name string

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates an empty registry for the named panel.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:   name,
		stores: make(map[string]*Store),
	}
}

// For returns the user's store, creating it if needed.
func (r *Registry) For(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[userID]
	if !ok {
		store = NewStore(r.name)
		r.stores[userID] = store
	}
	return store
}
