// Package keymap dispatches keyboard shortcuts to registered handlers.
package keymap

import "sync"

// Event is a key press as reported by the client.
type Event struct {
	Key   string `json:"key"`
	Meta  bool   `json:"meta"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
}

// Binding matches an event. Key is compared case-sensitively, so Shift+K (reported
// as "K") does not trigger a "k" binding. Mod accepts either Meta (macOS) or Ctrl
// (elsewhere).
type Binding struct {
	Key string
	Mod bool
}

// ModK is the platform-modifier+K shortcut.
var ModK = Binding{Key: "k", Mod: true}

// Matches reports whether ev triggers b.
func (b Binding) Matches(ev Event) bool {
	if ev.Key != b.Key {
		return false
	}
	if b.Mod {
		return ev.Meta || ev.Ctrl
	}
	return !ev.Meta && !ev.Ctrl
}

type handler struct {
	binding Binding
	fn      func()
}

// Keymap holds registered shortcuts.
type Keymap struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]handler
}

// New creates an empty keymap.
func New() *Keymap {
	return &Keymap{handlers: make(map[int]handler)}
}

// Register binds fn to b. The returned func unregisters it.
func (k *Keymap) Register(b Binding, fn func()) func() {
	k.mu.Lock()
	id := k.nextID
	k.nextID++
	k.handlers[id] = handler{binding: b, fn: fn}
	k.mu.Unlock()

	return func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		delete(k.handlers, id)
	}
}

// Dispatch runs every handler matching ev and reports whether any did.
// Handlers run outside the keymap's lock.
func (k *Keymap) Dispatch(ev Event) bool {
	k.mu.Lock()
	var matched []func()
	for _, h := range k.handlers {
		if h.binding.Matches(ev) {
			matched = append(matched, h.fn)
		}
	}
	k.mu.Unlock()

	for _, fn := range matched {
		fn()
	}
	return len(matched) > 0
}

// Len returns the number of registered handlers.
func (k *Keymap) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.handlers)
}
