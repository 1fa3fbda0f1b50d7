package handler

import (
	"context"
	"log/slog"
	"net/http"

	"zotion/internal/domain/models"
	"zotion/internal/handler/sse"
	"zotion/internal/httputil"
	"zotion/internal/livequery"
)

// LiveSubscriber opens live queries.
type LiveSubscriber interface {
	Subscribe(ctx context.Context, q livequery.Query) (*livequery.Subscription, error)
}

// LiveHandler streams live query snapshots over SSE
type LiveHandler struct {
	hub       LiveSubscriber
	sseConfig *sse.Config
	logger    *slog.Logger
}

// NewLiveHandler creates a new live query handler
func NewLiveHandler(hub LiveSubscriber, sseConfig *sse.Config, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		hub:       hub,
		sseConfig: sseConfig,
		logger:    logger,
	}
}

type childrenEvent struct {
	ParentDocument *string                  `json:"parent_document"`
	Children       []models.SidebarDocument `json:"children"`
}

type searchEvent struct {
	Documents []models.Document `json:"documents"`
}

// StreamSidebar streams the children of a parent document
// GET /api/live/sidebar?parent_document=
func (h *LiveHandler) StreamSidebar(w http.ResponseWriter, r *http.Request) {
	parentID := httputil.OptionalQuery(r, "parent_document")
	q := livequery.Children(httputil.GetUserID(r), parentID)

	h.stream(w, r, q, "children", func(snap livequery.Snapshot) interface{} {
		children := snap.Children
		if children == nil {
			children = []models.SidebarDocument{}
		}
		return childrenEvent{ParentDocument: parentID, Children: children}
	})
}

// StreamSearch streams the user's searchable documents
// GET /api/live/search
func (h *LiveHandler) StreamSearch(w http.ResponseWriter, r *http.Request) {
	q := livequery.Search(httputil.GetUserID(r))

	h.stream(w, r, q, "documents", func(snap livequery.Snapshot) interface{} {
		docs := snap.Documents
		if docs == nil {
			docs = []models.Document{}
		}
		return searchEvent{Documents: docs}
	})
}

func (h *LiveHandler) stream(w http.ResponseWriter, r *http.Request, q livequery.Query, event string, render func(livequery.Snapshot) interface{}) {
	sub, err := h.hub.Subscribe(r.Context(), q)
	if err != nil {
		handleError(w, err)
		return
	}
	defer sub.Close()

	stream, err := sse.NewStream(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Debug("live stream opened", "kind", q.Kind, "user_id", q.UserID)

	events := make(chan interface{})
	go func() {
		defer close(events)
		for snap := range sub.C() {
			select {
			case events <- render(snap):
			case <-r.Context().Done():
				return
			}
		}
	}()

	sse.Forward(r, stream, events, event, h.sseConfig, h.logger)
	h.logger.Debug("live stream closed", "kind", q.Kind, "user_id", q.UserID)
}
