package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"zotion/internal/config"
	"zotion/internal/domain"
	"zotion/internal/domain/models"
	"zotion/internal/domain/repositories"
	"zotion/internal/domain/services"
)

// ChangePublisher is notified after every committed mutation.
type ChangePublisher interface {
	Publish(ctx context.Context, change models.DocumentChange) error
}

// SearchIndexer mirrors documents into the search index.
type SearchIndexer interface {
	IndexDocument(doc *models.Document)
	DeleteDocuments(ids ...string)
}

// documentService implements the DocumentService interface
type documentService struct {
	docRepo   repositories.DocumentRepository
	txManager repositories.TransactionManager
	publisher ChangePublisher
	indexer   SearchIndexer
	logger    *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	txManager repositories.TransactionManager,
	publisher ChangePublisher,
	indexer SearchIndexer,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		docRepo:   docRepo,
		txManager: txManager,
		publisher: publisher,
		indexer:   indexer,
		logger:    logger,
	}
}

// CreateDocument creates a new document, optionally under a parent
func (s *documentService) CreateDocument(ctx context.Context, userID string, req *services.CreateDocumentRequest) (*models.Document, error) {
	if req.ParentDocument != nil && *req.ParentDocument == "" {
		req.ParentDocument = nil
	}

	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if req.ParentDocument != nil {
		if _, err := s.docRepo.GetByID(ctx, userID, *req.ParentDocument); err != nil {
			return nil, fmt.Errorf("invalid parent document: %w", err)
		}
	}

	doc := &models.Document{
		UserID:         userID,
		Title:          strings.TrimSpace(req.Title),
		Icon:           req.Icon,
		Content:        req.Content,
		ParentDocument: req.ParentDocument,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"user_id", userID,
		"parent_document", doc.ParentDocument,
	)

	s.notify(ctx, doc, doc.ParentDocument)
	s.indexer.IndexDocument(doc)

	return doc, nil
}

// GetDocument retrieves a document by ID
func (s *documentService) GetDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	return s.docRepo.GetByID(ctx, userID, documentID)
}

// UpdateDocument applies a partial update
func (s *documentService) UpdateDocument(ctx context.Context, userID, documentID string, req *services.UpdateDocumentRequest) (*models.Document, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc, err := s.docRepo.GetByID(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	previousParent := doc.ParentDocument

	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		doc.Content = req.Content
	}
	if req.IsPublished != nil {
		doc.IsPublished = *req.IsPublished
	}
	req.Icon.Apply(&doc.Icon)
	req.CoverImage.Apply(&doc.CoverImage)

	if req.ParentDocument.Present {
		if err := s.moveTo(ctx, doc, req.ParentDocument.Value); err != nil {
			return nil, err
		}
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"id", doc.ID,
		"user_id", userID,
	)

	s.notify(ctx, doc, previousParent, doc.ParentDocument)
	if !doc.IsArchived {
		s.indexer.IndexDocument(doc)
	}

	return doc, nil
}

// moveTo re-parents doc. The new parent may not be doc itself or one of its descendants.
func (s *documentService) moveTo(ctx context.Context, doc *models.Document, parentID *string) error {
	if parentID == nil || *parentID == "" {
		doc.ParentDocument = nil
		return nil
	}

	if *parentID == doc.ID {
		return &domain.ValidationError{Message: "a document cannot be its own parent"}
	}

	descendants, err := s.docRepo.ListDescendantIDs(ctx, doc.UserID, doc.ID)
	if err != nil {
		return err
	}
	for _, id := range descendants {
		if id == *parentID {
			return &domain.ValidationError{Message: "a document cannot be moved below its own descendant"}
		}
	}

	if _, err := s.docRepo.GetByID(ctx, doc.UserID, *parentID); err != nil {
		return fmt.Errorf("invalid parent document: %w", err)
	}

	parent := *parentID
	doc.ParentDocument = &parent
	return nil
}

// ArchiveDocument archives a document and all of its descendants
func (s *documentService) ArchiveDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	var doc *models.Document
	var descendants []string

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		doc, err = s.docRepo.GetByID(txCtx, userID, documentID)
		if err != nil {
			return err
		}

		descendants, err = s.docRepo.ListDescendantIDs(txCtx, userID, documentID)
		if err != nil {
			return err
		}

		for _, id := range append([]string{documentID}, descendants...) {
			if err := s.docRepo.SetArchived(txCtx, userID, id, true); err != nil {
				return fmt.Errorf("archive %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	doc.IsArchived = true

	s.logger.Info("document archived",
		"id", documentID,
		"user_id", userID,
		"descendants", len(descendants),
	)

	s.notify(ctx, doc, subtreeParents(doc, descendants)...)
	s.indexer.DeleteDocuments(append([]string{documentID}, descendants...)...)

	return doc, nil
}

// RestoreDocument un-archives a document and its descendants.
// A document whose parent is still archived is detached to the root level.
func (s *documentService) RestoreDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	var doc *models.Document
	var descendants []string

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		doc, err = s.docRepo.GetByID(txCtx, userID, documentID)
		if err != nil {
			return err
		}
		if !doc.IsArchived {
			return &domain.ValidationError{Message: "document is not archived"}
		}

		if doc.ParentDocument != nil {
			parent, err := s.docRepo.GetByID(txCtx, userID, *doc.ParentDocument)
			if err != nil || parent.IsArchived {
				doc.ParentDocument = nil
			}
		}

		doc.IsArchived = false
		if err := s.docRepo.Update(txCtx, doc); err != nil {
			return err
		}

		descendants, err = s.docRepo.ListDescendantIDs(txCtx, userID, documentID)
		if err != nil {
			return err
		}
		for _, id := range descendants {
			if err := s.docRepo.SetArchived(txCtx, userID, id, false); err != nil {
				return fmt.Errorf("restore %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document restored",
		"id", documentID,
		"user_id", userID,
		"descendants", len(descendants),
		"detached", doc.ParentDocument == nil,
	)

	s.notify(ctx, doc, subtreeParents(doc, descendants)...)
	s.indexer.IndexDocument(doc)

	return doc, nil
}

// ListChildren lists the sidebar projection of parentID's children
func (s *documentService) ListChildren(ctx context.Context, userID string, parentID *string) ([]models.SidebarDocument, error) {
	if parentID != nil && uuid.Validate(*parentID) != nil {
		return []models.SidebarDocument{}, nil
	}

	docs, err := s.docRepo.ListChildren(ctx, userID, parentID)
	if err != nil {
		return nil, err
	}

	children := make([]models.SidebarDocument, 0, len(docs))
	for i := range docs {
		children = append(children, docs[i].ToSidebar())
	}
	return children, nil
}

// ListSearchable lists every non-archived document of the user
func (s *documentService) ListSearchable(ctx context.Context, userID string) ([]models.Document, error) {
	return s.docRepo.ListSearchable(ctx, userID)
}

// notify publishes a change for doc. Publish failures are logged; the mutation is already committed.
func (s *documentService) notify(ctx context.Context, doc *models.Document, parents ...*string) {
	change := models.DocumentChange{
		UserID:     doc.UserID,
		DocumentID: doc.ID,
		Parents:    dedupeParents(parents),
	}
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.logger.Warn("failed to publish document change", "id", doc.ID, "error", err)
	}
}

// subtreeParents lists every children query an archive or restore of doc touches.
func subtreeParents(doc *models.Document, descendants []string) []*string {
	parents := []*string{doc.ParentDocument, &doc.ID}
	for i := range descendants {
		parents = append(parents, &descendants[i])
	}
	return parents
}

func dedupeParents(parents []*string) []*string {
	seen := make(map[string]bool, len(parents))
	out := make([]*string, 0, len(parents))
	for _, p := range parents {
		key := ""
		if p != nil {
			key = "id:" + *p
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// validateCreateRequest validates a document creation request
func (s *documentService) validateCreateRequest(req *services.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxDocumentTitleLength),
		),
		validation.Field(&req.ParentDocument, validation.By(isUUID)),
		validation.Field(&req.Icon, validation.Length(0, config.MaxDocumentIconLength)),
	)
}

// validateUpdateRequest validates a partial update
func (s *documentService) validateUpdateRequest(req *services.UpdateDocumentRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxDocumentTitleLength)),
	); err != nil {
		return err
	}

	if req.Icon.Present && req.Icon.Value != nil {
		if err := validation.Validate(*req.Icon.Value, validation.Length(0, config.MaxDocumentIconLength)); err != nil {
			return fmt.Errorf("icon: %v", err)
		}
	}
	if req.ParentDocument.Present && req.ParentDocument.Value != nil && *req.ParentDocument.Value != "" {
		if err := isUUID(req.ParentDocument.Value); err != nil {
			return fmt.Errorf("parent_document: %v", err)
		}
	}
	return nil
}

func isUUID(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return nil
	}
	if err := uuid.Validate(s); err != nil {
		return errors.New("must be a valid UUID")
	}
	return nil
}
