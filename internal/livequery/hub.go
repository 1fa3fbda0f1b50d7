package livequery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"zotion/internal/domain/models"
)

// Hub tracks subscriptions and refreshes them when the broker reports a change.
type Hub struct {
	source Source
	broker Broker
	logger *slog.Logger

	seq atomic.Uint64

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates a hub. Call Run to start consuming changes.
func NewHub(source Source, broker Broker, logger *slog.Logger) *Hub {
	return &Hub{
		source: source,
		broker: broker,
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers q and resolves its first snapshot in the background.
// A failed first fetch leaves the subscription unresolved until the next change.
func (h *Hub) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if q.UserID == "" {
		return nil, errors.New("live query requires a user")
	}

	sub := newSubscription(h, q)
	key := q.key()

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*Subscription]struct{})
	}
	h.subs[key][sub] = struct{}{}
	h.mu.Unlock()
	liveSubscriptions.Inc()

	go func() {
		seq := h.seq.Add(1)
		snap, err := h.fetch(ctx, q)
		if err != nil {
			h.logger.Warn("initial live query failed", "query", key, "error", err)
			return
		}
		sub.deliver(seq, snap)
	}()

	return sub, nil
}

// Publish sends change to every hub sharing the broker, including this one.
func (h *Hub) Publish(ctx context.Context, change models.DocumentChange) error {
	if err := h.broker.Publish(ctx, change); err != nil {
		return fmt.Errorf("publish document change: %w", err)
	}
	return nil
}

// Run consumes broker changes until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	changes, err := h.broker.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to changes: %w", err)
	}

	h.logger.Info("live query hub started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			h.refresh(ctx, change)
		}
	}
}

// refresh re-runs every subscribed query the change may affect.
func (h *Hub) refresh(ctx context.Context, change models.DocumentChange) {
	queries := []Query{Search(change.UserID)}
	for _, parent := range change.Parents {
		queries = append(queries, Children(change.UserID, parent))
	}

	for _, q := range queries {
		subs := h.subscribers(q.key())
		if len(subs) == 0 {
			continue
		}

		seq := h.seq.Add(1)
		snap, err := h.fetch(ctx, q)
		if err != nil {
			h.logger.Warn("live query refresh failed", "query", q.key(), "error", err)
			continue
		}
		for _, sub := range subs {
			sub.deliver(seq, snap)
		}
	}
}

func (h *Hub) fetch(ctx context.Context, q Query) (Snapshot, error) {
	snap := Snapshot{Query: q}
	switch q.Kind {
	case KindChildren:
		children, err := h.source.ListChildren(ctx, q.UserID, q.ParentID)
		if err != nil {
			return snap, err
		}
		snap.Children = children
	case KindSearch:
		docs, err := h.source.ListSearchable(ctx, q.UserID)
		if err != nil {
			return snap, err
		}
		snap.Documents = docs
	default:
		return snap, fmt.Errorf("unknown query kind %q", q.Kind)
	}
	return snap, nil
}

func (h *Hub) subscribers(key string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := make([]*Subscription, 0, len(h.subs[key]))
	for sub := range h.subs[key] {
		subs = append(subs, sub)
	}
	return subs
}

func (h *Hub) remove(sub *Subscription) {
	key := sub.query.key()

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[key][sub]; !ok {
		return
	}
	delete(h.subs[key], sub)
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
	liveSubscriptions.Dec()
}

// SubscriptionCount returns the number of open subscriptions.
func (h *Hub) SubscriptionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, subs := range h.subs {
		n += len(subs)
	}
	return n
}
