package repositories

import (
	"context"

	"zotion/internal/domain/models"
)

// DocumentRepository defines data access operations for documents.
// Every method is scoped to the owning user; documents of other users behave as not found.
type DocumentRepository interface {
	// Create inserts a new document and fills ID, CreatedAt and UpdatedAt
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document (archived or not)
	GetByID(ctx context.Context, userID, id string) (*models.Document, error)

	// Update persists every mutable field of doc
	Update(ctx context.Context, doc *models.Document) error

	// SetArchived flips the archived flag on a single document
	SetArchived(ctx context.Context, userID, id string, archived bool) error

	// ListDescendantIDs returns the ids of every document below id (any depth)
	ListDescendantIDs(ctx context.Context, userID, id string) ([]string, error)

	// ListChildren lists non-archived children of parentID (nil = root), newest first
	ListChildren(ctx context.Context, userID string, parentID *string) ([]models.Document, error)

	// ListSearchable lists all non-archived documents of the user, newest first
	ListSearchable(ctx context.Context, userID string) ([]models.Document, error)
}
