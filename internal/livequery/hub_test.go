package livequery

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zotion/internal/domain/models"
)

type fakeSource struct {
	mu       sync.Mutex
	children map[string][]models.SidebarDocument
	docs     []models.Document
	calls    map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		children: make(map[string][]models.SidebarDocument),
		calls:    make(map[string]int),
	}
}

func parentKey(parentID *string) string {
	if parentID == nil {
		return "root"
	}
	return *parentID
}

func (f *fakeSource) set(parentID *string, children ...models.SidebarDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children[parentKey(parentID)] = children
}

func (f *fakeSource) ListChildren(_ context.Context, _ string, parentID *string) ([]models.SidebarDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[parentKey(parentID)]++
	return append([]models.SidebarDocument{}, f.children[parentKey(parentID)]...), nil
}

func (f *fakeSource) ListSearchable(context.Context, string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["search"]++
	return append([]models.Document{}, f.docs...), nil
}

func (f *fakeSource) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func next(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func startHub(t *testing.T, source Source, broker Broker) *Hub {
	t.Helper()
	hub := NewHub(source, broker, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	started := make(chan struct{})
	go func() {
		close(started)
		_ = hub.Run(ctx)
	}()
	<-started
	// Give Run a moment to register with the broker.
	require.Eventually(t, func() bool { return brokerReady(broker) }, time.Second, 5*time.Millisecond)
	return hub
}

func brokerReady(b Broker) bool {
	mb, ok := b.(*MemoryBroker)
	if !ok {
		return true
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.subs) > 0
}

func TestSubscribe_DeliversInitialSnapshot(t *testing.T) {
	source := newFakeSource()
	source.set(nil, models.SidebarDocument{ID: "a", Title: "A"})
	hub := startHub(t, source, NewMemoryBroker())

	sub, err := hub.Subscribe(context.Background(), Children("user-1", nil))
	require.NoError(t, err)
	defer sub.Close()

	snap := next(t, sub)
	require.Len(t, snap.Children, 1)
	assert.Equal(t, "a", snap.Children[0].ID)
}

func TestSubscribe_RequiresUser(t *testing.T) {
	hub := NewHub(newFakeSource(), NewMemoryBroker(), discardLogger())
	_, err := hub.Subscribe(context.Background(), Children("", nil))
	assert.Error(t, err)
}

func TestPublish_RefreshesAffectedQueriesOnly(t *testing.T) {
	source := newFakeSource()
	hub := startHub(t, source, NewMemoryBroker())
	ctx := context.Background()

	root, err := hub.Subscribe(ctx, Children("user-1", nil))
	require.NoError(t, err)
	defer root.Close()
	other, err := hub.Subscribe(ctx, Children("user-1", strPtr("p1")))
	require.NoError(t, err)
	defer other.Close()

	next(t, root)
	next(t, other)

	source.set(nil, models.SidebarDocument{ID: "new", Title: "New"})
	require.NoError(t, hub.Publish(ctx, models.DocumentChange{
		UserID:     "user-1",
		DocumentID: "new",
		Parents:    []*string{nil},
	}))

	snap := next(t, root)
	require.Len(t, snap.Children, 1)
	assert.Equal(t, "new", snap.Children[0].ID)

	select {
	case <-other.C():
		t.Fatal("sibling query must not be refreshed")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, source.callCount("p1"))
}

func TestPublish_RefreshesSearch(t *testing.T) {
	source := newFakeSource()
	hub := startHub(t, source, NewMemoryBroker())
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx, Search("user-1"))
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, next(t, sub).Documents)

	source.mu.Lock()
	source.docs = []models.Document{{ID: "d1", Title: "Doc"}}
	source.mu.Unlock()

	require.NoError(t, hub.Publish(ctx, models.DocumentChange{UserID: "user-1", DocumentID: "d1"}))
	snap := next(t, sub)
	require.Len(t, snap.Documents, 1)
	assert.Equal(t, "d1", snap.Documents[0].ID)
}

func TestPublish_OtherUserUnaffected(t *testing.T) {
	source := newFakeSource()
	hub := startHub(t, source, NewMemoryBroker())
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx, Children("user-1", nil))
	require.NoError(t, err)
	defer sub.Close()
	next(t, sub)

	require.NoError(t, hub.Publish(ctx, models.DocumentChange{UserID: "user-2", Parents: []*string{nil}}))

	select {
	case <-sub.C():
		t.Fatal("change of another user must not refresh")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscription_CloseUnsubscribes(t *testing.T) {
	hub := NewHub(newFakeSource(), NewMemoryBroker(), discardLogger())

	sub, err := hub.Subscribe(context.Background(), Children("user-1", nil))
	require.NoError(t, err)
	assert.Equal(t, 1, hub.SubscriptionCount())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.SubscriptionCount())

	// Drain until closed; the initial snapshot may or may not have landed.
	for range sub.C() {
	}
}

func TestSubscription_DeliverKeepsLatest(t *testing.T) {
	hub := NewHub(newFakeSource(), NewMemoryBroker(), discardLogger())
	sub := newSubscription(hub, Search("u"))

	sub.deliver(2, Snapshot{Documents: []models.Document{{ID: "second"}}})
	sub.deliver(1, Snapshot{Documents: []models.Document{{ID: "stale"}}})
	sub.deliver(3, Snapshot{Documents: []models.Document{{ID: "third"}}})

	snap := <-sub.C()
	assert.Equal(t, "third", snap.Documents[0].ID)
}
