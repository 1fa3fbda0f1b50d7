package handler

import (
	"log/slog"
	"net/http"

	"zotion/internal/domain"
	"zotion/internal/httputil"
	"zotion/internal/service/rewrite"
)

// RewriteHandler serves the AI rewrite route
type RewriteHandler struct {
	service *rewrite.Service
	logger  *slog.Logger
}

// NewRewriteHandler creates a new rewrite handler
func NewRewriteHandler(service *rewrite.Service, logger *slog.Logger) *RewriteHandler {
	return &RewriteHandler{
		service: service,
		logger:  logger,
	}
}

// Rewrite polishes a block-tree with the LLM
// POST /api/ai/rewrite
// Success: {"content": <rewritten>}; failure: {"error": <message>} with 400/408/501/502/500
func (h *RewriteHandler) Rewrite(w http.ResponseWriter, r *http.Request) {
	var req rewrite.Request
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	content, err := h.service.Rewrite(r.Context(), &req)
	if err != nil {
		status := domain.StatusOf(err, http.StatusInternalServerError)
		if status == http.StatusInternalServerError {
			h.logger.Error("rewrite failed", "error", err)
		}
		httputil.RespondErrorMessage(w, status, rewrite.Message(err))
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rewrite.Response{Content: content})
}
