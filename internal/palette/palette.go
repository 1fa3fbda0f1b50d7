// Package palette implements the search palette: a flat, filterable list of the user's
// documents with navigation and an inline AI rewrite action.
package palette

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"zotion/internal/client"
	"zotion/internal/domain"
	"zotion/internal/domain/models"
	"zotion/internal/domain/services"
	"zotion/internal/keymap"
	"zotion/internal/sidebar"
	"zotion/internal/uistate"
)

// Notification texts.
const (
	MsgRewriting     = "Rewriting note..."
	MsgRewritten     = "Note rewritten"
	MsgRewriteFailed = "Failed to rewrite"
	MsgAIActions     = "AI features available in document toolbar"
	MsgNoResults     = "No results found."
)

var (
	// ErrRewriteBusy is returned when a rewrite is requested while one is running.
	ErrRewriteBusy = errors.New("a rewrite is already in progress")
	// ErrNoContent is returned when rewriting a document without content.
	ErrNoContent = errors.New("document has no content to rewrite")
)

// Documents is the document API the palette uses.
type Documents interface {
	GetDocument(ctx context.Context, userID, documentID string) (*models.Document, error)
	UpdateDocument(ctx context.Context, userID, documentID string, req *services.UpdateDocumentRequest) (*models.Document, error)
	ListSearchable(ctx context.Context, userID string) ([]models.Document, error)
}

// Searcher narrows a document list to the ones matching query.
type Searcher interface {
	Filter(userID, query string, docs []models.Document) []models.Document
}

// Rewriter is the rewrite hook.
type Rewriter interface {
	Rewrite(ctx context.Context, content json.RawMessage, opts client.RewriteOptions) (json.RawMessage, error)
	IsLoading() bool
	Subscribe() (<-chan client.RewriteState, func())
}

// Item is one row of the palette.
type Item struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Icon       *string `json:"icon,omitempty"`
	CanRewrite bool    `json:"can_rewrite"`
}

// State is what the palette shows.
type State struct {
	Open      bool   `json:"open"`
	Query     string `json:"query"`
	Items     []Item `json:"items"`
	Empty     string `json:"empty,omitempty"`
	Rewriting bool   `json:"rewriting"`
}

// Config holds a palette's dependencies.
type Config struct {
	UserID    string
	Documents Documents
	Search    Searcher
	Rewriter  Rewriter
	Store     *uistate.Store
	Notifier  *Notifier
	Logger    *slog.Logger
}

// Palette is one user's search palette.
type Palette struct {
	userID   string
	docs     Documents
	search   Searcher
	rewriter Rewriter
	store    *uistate.Store
	notifier *Notifier
	logger   *slog.Logger
}

// New creates a palette.
func New(cfg Config) *Palette {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewNotifier()
	}

	return &Palette{
		userID:   cfg.UserID,
		docs:     cfg.Documents,
		search:   cfg.Search,
		rewriter: cfg.Rewriter,
		store:    cfg.Store,
		notifier: notifier,
		logger:   logger.With("user_id", cfg.UserID),
	}
}

// Store returns the palette's visibility store.
func (p *Palette) Store() *uistate.Store {
	return p.store
}

// Notifier returns the palette's notifier.
func (p *Palette) Notifier() *Notifier {
	return p.notifier
}

// WatchRewrite streams the rewrite hook's state. ok is false when the palette has no
// rewriter.
func (p *Palette) WatchRewrite() (states <-chan client.RewriteState, stop func(), ok bool) {
	if p.rewriter == nil {
		return nil, nil, false
	}
	states, stop = p.rewriter.Subscribe()
	return states, stop, true
}

// Mount binds platform-modifier+K to toggling the palette. The returned func unbinds it.
func (p *Palette) Mount(km *keymap.Keymap) func() {
	return km.Register(keymap.ModK, func() {
		p.store.Toggle()
	})
}

// List returns the palette state with documents filtered by query.
func (p *Palette) List(ctx context.Context, query string) (State, error) {
	docs, err := p.docs.ListSearchable(ctx, p.userID)
	if err != nil {
		return State{}, fmt.Errorf("list searchable documents: %w", err)
	}

	matched := docs
	if p.search != nil {
		matched = p.search.Filter(p.userID, query, docs)
	}

	state := State{
		Open:      p.store.IsOpen(),
		Query:     query,
		Items:     make([]Item, 0, len(matched)),
		Rewriting: p.rewriter != nil && p.rewriter.IsLoading(),
	}
	for i := range matched {
		doc := &matched[i]
		state.Items = append(state.Items, Item{
			ID:         doc.ID,
			Title:      doc.Title,
			Icon:       doc.Icon,
			CanRewrite: doc.HasContent(),
		})
	}
	if len(state.Items) == 0 {
		state.Empty = MsgNoResults
	}

	return state, nil
}

// Select closes the palette and returns the route of the chosen document.
func (p *Palette) Select(id string) string {
	p.store.Close()
	return sidebar.DocumentRoute(id)
}

// AIAction points the user at the editor toolbar and closes the palette.
func (p *Palette) AIAction() Notification {
	note := p.notifier.Notify(Notification{Level: LevelInfo, Message: MsgAIActions})
	p.store.Close()
	return note
}

// Rewrite rewrites a document's content with the AI and saves the result.
// Progress is reported as a pending notification followed by a success or error
// notification with the same ID.
func (p *Palette) Rewrite(ctx context.Context, id string) (*models.Document, error) {
	doc, err := p.docs.GetDocument(ctx, p.userID, id)
	if err != nil {
		return nil, err
	}
	if !doc.HasContent() {
		return nil, ErrNoContent
	}
	if p.rewriter == nil {
		return nil, &domain.NotConfiguredError{Message: "rewrite is not available"}
	}
	if p.rewriter.IsLoading() {
		return nil, ErrRewriteBusy
	}

	toastID := uuid.NewString()
	p.notifier.Notify(Notification{ID: toastID, Level: LevelPending, Message: MsgRewriting, DocumentID: id})

	updated, err := p.rewrite(ctx, id, *doc.Content)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = MsgRewriteFailed
		}
		p.logger.Warn("palette rewrite failed", "document_id", id, "error", err)
		p.notifier.Notify(Notification{ID: toastID, Level: LevelError, Message: msg, DocumentID: id})
		return nil, err
	}

	p.notifier.Notify(Notification{ID: toastID, Level: LevelSuccess, Message: MsgRewritten, DocumentID: id})
	return updated, nil
}

func (p *Palette) rewrite(ctx context.Context, id, content string) (*models.Document, error) {
	// Stored content is serialized JSON; it goes out as a string and the route parses it.
	payload, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	rewritten, err := p.rewriter.Rewrite(ctx, payload, client.RewriteOptions{})
	if err != nil {
		return nil, err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, rewritten, "", "  "); err != nil {
		return nil, fmt.Errorf("format rewritten content: %w", err)
	}
	formatted := pretty.String()

	return p.docs.UpdateDocument(ctx, p.userID, id, &services.UpdateDocumentRequest{Content: &formatted})
}
