package livequery

import "sync"

// Subscription receives snapshots of one query. Only the latest undelivered
// snapshot is kept; a slow reader skips intermediate states.
type Subscription struct {
	query Query
	ch    chan Snapshot
	hub   *Hub

	mu      sync.Mutex
	lastSeq uint64
	closed  bool
	once    sync.Once
}

func newSubscription(hub *Hub, q Query) *Subscription {
	return &Subscription{
		query: q,
		ch:    make(chan Snapshot, 1),
		hub:   hub,
	}
}

// C delivers snapshots. It is closed by Close.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Query returns the subscribed query.
func (s *Subscription) Query() Query {
	return s.query
}

// Close unsubscribes. Safe to call multiple times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// deliver drops snapshots older than the last one delivered.
func (s *Subscription) deliver(seq uint64, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq < s.lastSeq {
		return
	}
	s.lastSeq = seq

	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}
