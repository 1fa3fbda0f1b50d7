package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"zotion/internal/client"
	"zotion/internal/domain"
	"zotion/internal/handler/sse"
	"zotion/internal/httputil"
	"zotion/internal/keymap"
	"zotion/internal/palette"
	"zotion/internal/uistate"
)

// RewriterFactory builds the rewrite hook for one user's palette.
type RewriterFactory func(userID string) palette.Rewriter

type paletteSession struct {
	palette *palette.Palette
	keys    *keymap.Keymap
	unmount func()
}

// PaletteHandler serves the search palette and the settings panel state.
// Each user gets one palette, mounted on that user's keymap.
type PaletteHandler struct {
	docs        palette.Documents
	searcher    palette.Searcher
	newRewriter RewriterFactory
	search      *uistate.Registry
	settings    *uistate.Registry
	sseConfig   *sse.Config
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*paletteSession
}

// NewPaletteHandler creates a new palette handler
func NewPaletteHandler(
	docs palette.Documents,
	searcher palette.Searcher,
	newRewriter RewriterFactory,
	search *uistate.Registry,
	settings *uistate.Registry,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *PaletteHandler {
	return &PaletteHandler{
		docs:        docs,
		searcher:    searcher,
		newRewriter: newRewriter,
		search:      search,
		settings:    settings,
		sseConfig:   sseConfig,
		logger:      logger,
		sessions:    make(map[string]*paletteSession),
	}
}

type openResponse struct {
	Open bool `json:"open"`
}

// GetPalette returns the palette state and the documents matching q
// GET /api/palette?q=
func (h *PaletteHandler) GetPalette(w http.ResponseWriter, r *http.Request) {
	p := h.session(httputil.GetUserID(r)).palette

	state, err := p.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, state)
}

// Open opens the palette
// POST /api/palette/open
func (h *PaletteHandler) Open(w http.ResponseWriter, r *http.Request) {
	store := h.search.For(httputil.GetUserID(r))
	store.Open()
	httputil.RespondJSON(w, http.StatusOK, openResponse{Open: store.IsOpen()})
}

// Close closes the palette
// POST /api/palette/close
func (h *PaletteHandler) Close(w http.ResponseWriter, r *http.Request) {
	store := h.search.For(httputil.GetUserID(r))
	store.Close()
	httputil.RespondJSON(w, http.StatusOK, openResponse{Open: store.IsOpen()})
}

// Toggle flips the palette
// POST /api/palette/toggle
func (h *PaletteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	open := h.search.For(httputil.GetUserID(r)).Toggle()
	httputil.RespondJSON(w, http.StatusOK, openResponse{Open: open})
}

// DispatchKey runs the shortcuts bound to a key press
// POST /api/palette/keys
func (h *PaletteHandler) DispatchKey(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var ev keymap.Event
	if err := httputil.ParseJSON(w, r, &ev); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session := h.session(userID)
	handled := session.keys.Dispatch(ev)
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{
		"handled": handled,
		"open":    session.palette.Store().IsOpen(),
	})
}

// Select closes the palette and returns the chosen document's route
// POST /api/palette/select
func (h *PaletteHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil || req.DocumentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	route := h.session(httputil.GetUserID(r)).palette.Select(req.DocumentID)
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"route": route})
}

// AIAction reports where AI actions live and closes the palette
// POST /api/palette/ai-action
func (h *PaletteHandler) AIAction(w http.ResponseWriter, r *http.Request) {
	note := h.session(httputil.GetUserID(r)).palette.AIAction()
	httputil.RespondJSON(w, http.StatusOK, note)
}

// RewriteDocument rewrites a document's content and saves it
// POST /api/palette/documents/{id}/rewrite
func (h *PaletteHandler) RewriteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	ctx := client.ContextWithToken(r.Context(), httputil.GetBearerToken(r))
	doc, err := h.session(httputil.GetUserID(r)).palette.Rewrite(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, palette.ErrRewriteBusy):
			paletteRewrites.WithLabelValues("ignored").Inc()
			httputil.RespondErrorMessage(w, http.StatusConflict, err.Error())
		case errors.Is(err, palette.ErrNoContent):
			paletteRewrites.WithLabelValues("ignored").Inc()
			httputil.RespondErrorMessage(w, http.StatusBadRequest, err.Error())
		default:
			paletteRewrites.WithLabelValues("failed").Inc()
			status := domain.StatusOf(err, http.StatusInternalServerError)
			msg := err.Error()
			if status == http.StatusInternalServerError || msg == "" {
				h.logger.Error("palette rewrite failed", "document_id", id, "error", err)
				msg = palette.MsgRewriteFailed
			}
			httputil.RespondErrorMessage(w, status, msg)
		}
		return
	}

	paletteRewrites.WithLabelValues("rewritten").Inc()
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// StreamNotifications streams the palette's notifications
// GET /api/palette/notifications
func (h *PaletteHandler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	notes, stop := h.session(httputil.GetUserID(r)).palette.Notifier().Subscribe()
	defer stop()

	stream, err := sse.NewStream(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sse.Forward(r, stream, notes, "notification", h.sseConfig, h.logger)
}

// StreamPalette streams the palette's open state as "search" events
// GET /api/palette/stream
func (h *PaletteHandler) StreamPalette(w http.ResponseWriter, r *http.Request) {
	h.streamStore(w, r, h.search.For(httputil.GetUserID(r)))
}

// StreamRewrite streams the palette's rewrite hook state
// GET /api/palette/rewrite/stream
func (h *PaletteHandler) StreamRewrite(w http.ResponseWriter, r *http.Request) {
	states, stop, ok := h.session(httputil.GetUserID(r)).palette.WatchRewrite()
	if !ok {
		handleError(w, &domain.NotConfiguredError{Message: "rewrite is not available"})
		return
	}
	defer stop()

	stream, err := sse.NewStream(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sse.Forward(r, stream, states, "rewrite", h.sseConfig, h.logger)
}

// GetSettings returns the settings panel state
// GET /api/settings
func (h *PaletteHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, openResponse{Open: h.settings.For(httputil.GetUserID(r)).IsOpen()})
}

// OpenSettings opens the settings panel
// POST /api/settings/open
func (h *PaletteHandler) OpenSettings(w http.ResponseWriter, r *http.Request) {
	store := h.settings.For(httputil.GetUserID(r))
	store.Open()
	httputil.RespondJSON(w, http.StatusOK, openResponse{Open: store.IsOpen()})
}

// CloseSettings closes the settings panel
// POST /api/settings/close
func (h *PaletteHandler) CloseSettings(w http.ResponseWriter, r *http.Request) {
	store := h.settings.For(httputil.GetUserID(r))
	store.Close()
	httputil.RespondJSON(w, http.StatusOK, openResponse{Open: store.IsOpen()})
}

// StreamSettings streams the settings panel's open state as "settings" events
// GET /api/settings/stream
func (h *PaletteHandler) StreamSettings(w http.ResponseWriter, r *http.Request) {
	h.streamStore(w, r, h.settings.For(httputil.GetUserID(r)))
}

// streamStore forwards every state of store, starting with the current one, as an
// event named after the store.
func (h *PaletteHandler) streamStore(w http.ResponseWriter, r *http.Request, store *uistate.Store) {
	states, stop := store.Subscribe()
	defer stop()

	stream, err := sse.NewStream(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sse.Forward(r, stream, states, store.Name(), h.sseConfig, h.logger)
}

// session returns the user's palette, mounting it on first use.
func (h *PaletteHandler) session(userID string) *paletteSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.sessions[userID]; ok {
		return s
	}

	var rewriter palette.Rewriter
	if h.newRewriter != nil {
		rewriter = h.newRewriter(userID)
	}
	p := palette.New(palette.Config{
		UserID:    userID,
		Documents: h.docs,
		Search:    h.searcher,
		Rewriter:  rewriter,
		Store:     h.search.For(userID),
		Logger:    h.logger,
	})
	keys := keymap.New()

	s := &paletteSession{
		palette: p,
		keys:    keys,
		unmount: p.Mount(keys),
	}
	h.sessions[userID] = s
	return s
}

// Unmount unbinds every palette's shortcut.
func (h *PaletteHandler) Unmount() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, s := range h.sessions {
		s.unmount()
		delete(h.sessions, userID)
	}
}
