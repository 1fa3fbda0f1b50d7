package palette

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the state of a notification.
type Level string

const (
	LevelPending Level = "pending"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a transient message. A pending notification is later replaced by a
// success or error notification carrying the same ID.
type Notification struct {
	ID         string    `json:"id"`
	Level      Level     `json:"level"`
	Message    string    `json:"message"`
	DocumentID string    `json:"document_id,omitempty"`
	At         time.Time `json:"at"`
}

const notificationBuffer = 16

// Notifier fans notifications out to subscribers. A subscriber that falls behind
// loses its oldest notifications.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Notification
}

// NewNotifier creates a notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Notification)}
}

// Notify delivers n to every subscriber. An empty ID gets a fresh one.
func (n *Notifier) Notify(note Notification) Notification {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.At.IsZero() {
		note.At = time.Now()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- note:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- note
		}
	}
	return note
}

// Subscribe returns a channel of notifications and a func that ends the subscription.
func (n *Notifier) Subscribe() (<-chan Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Notification, notificationBuffer)
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
}
