// Package sidebar renders the document tree shown in the navigation sidebar.
//
// A Tree is a stack of levels. Each level owns its own expansion map and its own
// "children of parent" subscription, so levels resolve independently of each other.
// All state changes (toggles, navigations, snapshot deliveries) are applied one at a
// time on the tree's event loop.
package sidebar

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"zotion/internal/domain/models"
	"zotion/internal/livequery"
)

// EmptyText is shown under an expanded document that has no children.
const EmptyText = "No pages inside"

var (
	// ErrClosed is returned by operations on a closed tree.
	ErrClosed = errors.New("sidebar tree closed")
	// ErrNotVisible is returned when toggling a document that is not on screen.
	ErrNotVisible = errors.New("document is not visible in the sidebar")
)

// Source opens live queries.
type Source interface {
	Subscribe(ctx context.Context, q livequery.Query) (*livequery.Subscription, error)
}

// LineKind tells what a rendered line is.
type LineKind string

const (
	LineItem     LineKind = "item"
	LineSkeleton LineKind = "skeleton"
	LineEmpty    LineKind = "empty"
)

// Line is one rendered line of the sidebar, in display order.
type Line struct {
	Kind        LineKind `json:"kind"`
	Level       int      `json:"level"`
	Row         *Row     `json:"row,omitempty"`
	Text        string   `json:"text,omitempty"`
	PaddingLeft int      `json:"padding_left"`
}

// View is a full render of the tree.
type View struct {
	Version  uint64 `json:"version"`
	ActiveID string `json:"active_document_id,omitempty"`
	Lines    []Line `json:"lines"`
}

// Options configure a Tree.
type Options struct {
	// ParentID is the root of the rendered tree; nil renders the user's top level.
	ParentID *string
	// Level is the nesting level of the root.
	Level int
	// ActiveID is the document currently open in the editor.
	ActiveID string
	// OnNavigate receives the route of a row the user clicked.
	OnNavigate func(route string)
	Logger     *slog.Logger
}

// Tree is a live, navigable sidebar for one user.
type Tree struct {
	source     Source
	userID     string
	onNavigate func(route string)
	logger     *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	events  chan func()
	updates chan View
	done    chan struct{}
	once    sync.Once

	// Owned by the event loop.
	root    *level
	active  string
	version uint64
}

type level struct {
	parentID *string
	depth    int
	sub      *livequery.Subscription

	resolved bool
	docs     []models.SidebarDocument
	expanded map[string]bool
	children map[string]*level
	closed   bool
}

// New mounts the root level and starts the event loop. Close releases it.
func New(source Source, userID string, opts Options) *Tree {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Tree{
		source:     source,
		userID:     userID,
		onNavigate: opts.OnNavigate,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		events:     make(chan func(), 16),
		updates:    make(chan View, 1),
		done:       make(chan struct{}),
		active:     opts.ActiveID,
	}

	t.root = t.mount(opts.ParentID, opts.Level)
	go t.run()
	t.post(t.publish)

	return t
}

// Toggle flips the expansion flag of a visible document and returns its new value.
// Expanding mounts the document's child level; collapsing unmounts it.
func (t *Tree) Toggle(id string) (bool, error) {
	var expanded bool
	var err error

	doErr := t.do(func() {
		l := t.root.find(id)
		if l == nil {
			err = ErrNotVisible
			return
		}
		expanded = !l.expanded[id]
		l.expanded[id] = expanded
		t.reconcile(l)
		t.publish()
	})
	if doErr != nil {
		return false, doErr
	}
	return expanded, err
}

// Navigate marks id as the active document and returns its editing route.
// Expansion state is untouched.
func (t *Tree) Navigate(id string) (string, error) {
	err := t.do(func() {
		if t.active == id {
			return
		}
		t.active = id
		t.publish()
	})
	if err != nil {
		return "", err
	}
	return DocumentRoute(id), nil
}

// View renders the current state.
func (t *Tree) View() (View, error) {
	var view View
	err := t.do(func() {
		view = t.render()
	})
	return view, err
}

// Updates delivers a fresh View after every change. Only the latest view is kept.
// The channel is closed when the tree is closed.
func (t *Tree) Updates() <-chan View {
	return t.updates
}

// Close unmounts every level and stops the event loop.
func (t *Tree) Close() {
	t.once.Do(func() {
		t.cancel()
		<-t.done
	})
}

// DocumentRoute is the editing route of a document.
func DocumentRoute(id string) string {
	return "/documents/" + id
}

func (t *Tree) run() {
	defer close(t.done)
	defer close(t.updates)

	for {
		select {
		case <-t.ctx.Done():
			t.unmount(t.root)
			return
		case fn := <-t.events:
			fn()
		}
	}
}

// post queues fn on the event loop. It reports false if the tree is closed.
func (t *Tree) post(fn func()) bool {
	select {
	case t.events <- fn:
		return true
	case <-t.ctx.Done():
		return false
	}
}

// do runs fn on the event loop and waits for it.
func (t *Tree) do(fn func()) error {
	finished := make(chan struct{})
	if !t.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-t.done:
		return ErrClosed
	}
}

// mount subscribes a new level. A failed subscription leaves the level unresolved.
func (t *Tree) mount(parentID *string, depth int) *level {
	l := &level{
		parentID: parentID,
		depth:    depth,
		expanded: make(map[string]bool),
		children: make(map[string]*level),
	}

	sub, err := t.source.Subscribe(t.ctx, livequery.Children(t.userID, parentID))
	if err != nil {
		t.logger.Warn("sidebar subscription failed", "parent", parentID, "error", err)
		return l
	}
	l.sub = sub

	go func() {
		for snap := range sub.C() {
			children := snap.Children
			if !t.post(func() { t.apply(l, children) }) {
				return
			}
		}
	}()

	return l
}

func (t *Tree) unmount(l *level) {
	if l == nil || l.closed {
		return
	}
	l.closed = true
	if l.sub != nil {
		l.sub.Close()
	}
	for id, child := range l.children {
		t.unmount(child)
		delete(l.children, id)
	}
}

func (t *Tree) apply(l *level, docs []models.SidebarDocument) {
	if l.closed {
		return
	}
	if docs == nil {
		docs = []models.SidebarDocument{}
	}
	l.resolved = true
	l.docs = docs
	t.reconcile(l)
	t.publish()
}

// reconcile mounts a child level for every expanded document present in l and
// unmounts the rest. Expansion flags survive a document leaving and re-entering the list.
func (t *Tree) reconcile(l *level) {
	present := make(map[string]bool, len(l.docs))
	for _, doc := range l.docs {
		present[doc.ID] = true
	}

	for id, child := range l.children {
		if !l.expanded[id] || !present[id] {
			t.unmount(child)
			delete(l.children, id)
		}
	}

	for _, doc := range l.docs {
		if l.expanded[doc.ID] && l.children[doc.ID] == nil {
			id := doc.ID
			l.children[id] = t.mount(&id, l.depth+1)
		}
	}
}

func (t *Tree) publish() {
	t.version++
	view := t.render()

	select {
	case <-t.updates:
	default:
	}
	t.updates <- view
}

func (t *Tree) render() View {
	view := View{
		Version:  t.version,
		ActiveID: t.active,
		Lines:    []Line{},
	}
	t.renderLevel(t.root, &view.Lines)
	return view
}

func (t *Tree) renderLevel(l *level, lines *[]Line) {
	if !l.resolved {
		n := 1
		if l.depth == 0 {
			n = 3
		}
		for i := 0; i < n; i++ {
			*lines = append(*lines, Line{
				Kind:        LineSkeleton,
				Level:       l.depth,
				PaddingLeft: skeletonPadding(l.depth),
			})
		}
		return
	}

	if len(l.docs) == 0 && l.depth > 0 && l.expandedOnce() {
		*lines = append(*lines, Line{
			Kind:        LineEmpty,
			Level:       l.depth,
			Text:        EmptyText,
			PaddingLeft: indicatorPadding(l.depth),
		})
		return
	}

	for _, doc := range l.docs {
		id := doc.ID
		row := NewRow(ItemProps{
			ID:           id,
			Label:        doc.Title,
			DocumentIcon: doc.Icon,
			Active:       t.active == id,
			Expanded:     l.expanded[id],
			Level:        l.depth,
			OnClick:      func() { t.clickRow(id) },
			OnExpand:     func() { t.expandRow(id) },
		})
		*lines = append(*lines, Line{
			Kind:        LineItem,
			Level:       l.depth,
			Row:         &row,
			PaddingLeft: row.PaddingLeft,
		})

		if child := l.children[id]; child != nil {
			t.renderLevel(child, lines)
		}
	}
}

// clickRow and expandRow run on the caller's goroutine, never on the event loop.
func (t *Tree) clickRow(id string) {
	route, err := t.Navigate(id)
	if err != nil {
		t.logger.Debug("sidebar row click ignored", "document_id", id, "error", err)
		return
	}
	if t.onNavigate != nil {
		t.onNavigate(route)
	}
}

func (t *Tree) expandRow(id string) {
	if _, err := t.Toggle(id); err != nil {
		t.logger.Debug("sidebar row expand ignored", "document_id", id, "error", err)
	}
}

// expandedOnce reports whether this level was opened by the user. Nested levels
// only exist because their parent row was expanded.
func (l *level) expandedOnce() bool {
	if l.depth > 0 {
		return true
	}
	for _, v := range l.expanded {
		if v {
			return true
		}
	}
	return false
}

// find returns the mounted, resolved level listing id.
func (l *level) find(id string) *level {
	for _, doc := range l.docs {
		if doc.ID == id {
			return l
		}
	}
	for _, child := range l.children {
		if found := child.find(id); found != nil {
			return found
		}
	}
	return nil
}

func skeletonPadding(level int) int {
	if level > 0 {
		return level*12 + 25
	}
	return 12
}
