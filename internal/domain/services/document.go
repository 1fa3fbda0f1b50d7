package services

import (
	"context"

	"zotion/internal/domain/models"
	"zotion/internal/httputil"
)

// DocumentService handles document business logic.
// userID identifies the caller; every operation is restricted to the caller's documents.
type DocumentService interface {
	// CreateDocument creates a new document, optionally under a parent
	CreateDocument(ctx context.Context, userID string, req *CreateDocumentRequest) (*models.Document, error)

	// GetDocument retrieves a document by ID
	GetDocument(ctx context.Context, userID, documentID string) (*models.Document, error)

	// UpdateDocument applies a partial update (the backend's "update document" mutation)
	UpdateDocument(ctx context.Context, userID, documentID string, req *UpdateDocumentRequest) (*models.Document, error)

	// ArchiveDocument archives a document and all of its descendants
	ArchiveDocument(ctx context.Context, userID, documentID string) (*models.Document, error)

	// RestoreDocument un-archives a document and its descendants. If the parent is
	// still archived, the document is detached to the root level.
	RestoreDocument(ctx context.Context, userID, documentID string) (*models.Document, error)

	// ListChildren is the "children of parent document" query
	ListChildren(ctx context.Context, userID string, parentID *string) ([]models.SidebarDocument, error)

	// ListSearchable is the "all searchable documents for current user" query
	ListSearchable(ctx context.Context, userID string) ([]models.Document, error)
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	Title          string  `json:"title"`
	ParentDocument *string `json:"parent_document,omitempty"`
	Icon           *string `json:"icon,omitempty"`
	Content        *string `json:"content,omitempty"`
}

// UpdateDocumentRequest represents a partial document update.
// Icon and CoverImage are tri-state: absent keeps, null clears, value sets.
type UpdateDocumentRequest struct {
	Title       *string                 `json:"title,omitempty"`
	Content     *string                 `json:"content,omitempty"`
	Icon        httputil.OptionalString `json:"icon"`
	CoverImage  httputil.OptionalString `json:"cover_image"`
	IsPublished *bool                   `json:"is_published,omitempty"`
	// ParentDocument moves the document: null moves it to the root level
	ParentDocument httputil.OptionalString `json:"parent_document"`
}
