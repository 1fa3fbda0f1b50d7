package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"zotion/internal/handler/sse"
	"zotion/internal/httputil"
	"zotion/internal/sidebar"
)

// DefaultSessionIdle is how long a sidebar session without a stream is kept.
const DefaultSessionIdle = 30 * time.Minute

type sidebarSession struct {
	id        string
	userID    string
	tree      *sidebar.Tree
	streaming int
	lastSeen  time.Time
}

// SidebarHandler serves sidebar tree sessions. Each session owns a sidebar.Tree whose
// levels hold live subscriptions; the rendered tree is pushed over SSE.
type SidebarHandler struct {
	source    sidebar.Source
	sseConfig *sse.Config
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sidebarSession
}

// NewSidebarHandler creates a new sidebar session handler
func NewSidebarHandler(source sidebar.Source, sseConfig *sse.Config, logger *slog.Logger) *SidebarHandler {
	return &SidebarHandler{
		source:    source,
		sseConfig: sseConfig,
		logger:    logger,
		sessions:  make(map[string]*sidebarSession),
	}
}

type createSessionRequest struct {
	ParentDocumentID *string `json:"parent_document_id,omitempty"`
	ActiveDocumentID string  `json:"active_document_id,omitempty"`
}

type sessionResponse struct {
	ID   string       `json:"id"`
	View sidebar.View `json:"view"`
}

type documentRequest struct {
	DocumentID string `json:"document_id"`
}

// CreateSession mounts a new sidebar tree for the caller
// POST /api/sidebar/sessions
func (h *SidebarHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	session := &sidebarSession{
		id:     uuid.NewString(),
		userID: userID,
		tree: sidebar.New(h.source, userID, sidebar.Options{
			ParentID: req.ParentDocumentID,
			ActiveID: req.ActiveDocumentID,
			Logger:   h.logger,
		}),
		lastSeen: time.Now(),
	}

	h.mu.Lock()
	h.sessions[session.id] = session
	h.mu.Unlock()
	sidebarSessions.Inc()

	h.logger.Debug("sidebar session created", "session_id", session.id, "user_id", userID)

	view, err := session.tree.View()
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, sessionResponse{ID: session.id, View: view})
}

// GetSession returns the current rendering of a session's tree
// GET /api/sidebar/sessions/{id}
func (h *SidebarHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	view, err := session.tree.View()
	if err != nil {
		h.respondTreeError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sessionResponse{ID: session.id, View: view})
}

// StreamSession pushes a fresh view after every change. Disconnecting closes the session.
// GET /api/sidebar/sessions/{id}/stream
func (h *SidebarHandler) StreamSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	stream, err := sse.NewStream(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.mu.Lock()
	session.streaming++
	h.mu.Unlock()
	defer h.remove(session.id)

	if view, err := session.tree.View(); err == nil {
		if err := stream.Send("view", view); err != nil {
			return
		}
	}

	sse.Forward(r, stream, session.tree.Updates(), "view", h.sseConfig, h.logger)
}

// Toggle flips the expansion of a visible document
// POST /api/sidebar/sessions/{id}/toggle
func (h *SidebarHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req documentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil || req.DocumentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	expanded, err := session.tree.Toggle(req.DocumentID)
	if err != nil {
		h.respondTreeError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"expanded": expanded})
}

// Navigate marks a document active and returns its route
// POST /api/sidebar/sessions/{id}/navigate
func (h *SidebarHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req documentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil || req.DocumentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	route, err := session.tree.Navigate(req.DocumentID)
	if err != nil {
		h.respondTreeError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"route": route})
}

// DeleteSession unmounts a session's tree
// DELETE /api/sidebar/sessions/{id}
func (h *SidebarHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.remove(session.id)
	w.WriteHeader(http.StatusNoContent)
}

// Run closes sessions that have been idle without a stream for longer than maxIdle.
func (h *SidebarHandler) Run(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		maxIdle = DefaultSessionIdle
	}
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.sweep(time.Now().Add(-maxIdle))
		}
	}
}

// SessionCount returns the number of open sessions.
func (h *SidebarHandler) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *SidebarHandler) lookup(w http.ResponseWriter, r *http.Request) (*sidebarSession, bool) {
	id, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return nil, false
	}

	h.mu.Lock()
	session, found := h.sessions[id]
	if found && session.userID == httputil.GetUserID(r) {
		session.lastSeen = time.Now()
	}
	h.mu.Unlock()

	if !found || session.userID != httputil.GetUserID(r) {
		httputil.RespondError(w, http.StatusNotFound, "sidebar session not found")
		return nil, false
	}
	return session, true
}

func (h *SidebarHandler) remove(id string) {
	h.mu.Lock()
	session, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	if ok {
		session.tree.Close()
		sidebarSessions.Dec()
		h.logger.Debug("sidebar session closed", "session_id", id)
	}
}

func (h *SidebarHandler) sweep(cutoff time.Time) {
	h.mu.Lock()
	var stale []string
	for id, session := range h.sessions {
		if session.streaming == 0 && session.lastSeen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()

	for _, id := range stale {
		h.remove(id)
	}
}

func (h *SidebarHandler) closeAll() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.remove(id)
	}
}

func (h *SidebarHandler) respondTreeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sidebar.ErrNotVisible):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sidebar.ErrClosed):
		httputil.RespondError(w, http.StatusNotFound, "sidebar session not found")
	default:
		handleError(w, err)
	}
}
