package handler

import (
	"log/slog"
	"net/http"

	"zotion/internal/domain/models"
	"zotion/internal/domain/services"
	"zotion/internal/httputil"
)

// DocumentSearcher narrows a document list to those matching a query.
type DocumentSearcher interface {
	Filter(userID, query string, docs []models.Document) []models.Document
}

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	docService services.DocumentService
	searcher   DocumentSearcher
	logger     *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService services.DocumentService, searcher DocumentSearcher, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		searcher:   searcher,
		logger:     logger,
	}
}

// HealthCheck reports liveness
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateDocument creates a new document
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req services.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.docService.CreateDocument(r.Context(), userID, &req)
	if err != nil {
		h.logError("create document", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// GetDocument retrieves a document
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	doc, err := h.docService.GetDocument(r.Context(), httputil.GetUserID(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateDocument applies a partial update
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	var req services.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.docService.UpdateDocument(r.Context(), httputil.GetUserID(r), id, &req)
	if err != nil {
		h.logError("update document", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ArchiveDocument archives a document and its descendants
// DELETE /api/documents/{id}
func (h *DocumentHandler) ArchiveDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	doc, err := h.docService.ArchiveDocument(r.Context(), httputil.GetUserID(r), id)
	if err != nil {
		h.logError("archive document", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// RestoreDocument un-archives a document and its descendants
// POST /api/documents/{id}/restore
func (h *DocumentHandler) RestoreDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	doc, err := h.docService.RestoreDocument(r.Context(), httputil.GetUserID(r), id)
	if err != nil {
		h.logError("restore document", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ListSidebar returns one level of the sidebar tree
// GET /api/documents/sidebar?parent_document=
func (h *DocumentHandler) ListSidebar(w http.ResponseWriter, r *http.Request) {
	parentID := httputil.OptionalQuery(r, "parent_document")

	children, err := h.docService.ListChildren(r.Context(), httputil.GetUserID(r), parentID)
	if err != nil {
		h.logError("list children", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, children)
}

// SearchDocuments returns the user's searchable documents, filtered by q
// GET /api/documents/search?q=
func (h *DocumentHandler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	docs, err := h.docService.ListSearchable(r.Context(), userID)
	if err != nil {
		h.logError("list searchable", err)
		handleError(w, err)
		return
	}

	if query := r.URL.Query().Get("q"); query != "" && h.searcher != nil {
		docs = h.searcher.Filter(userID, query, docs)
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) logError(op string, err error) {
	h.logger.Debug(op+" failed", "error", err)
}
