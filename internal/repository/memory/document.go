// Package memory provides in-process repositories for tests and local runs without Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"zotion/internal/domain"
	"zotion/internal/domain/models"
	"zotion/internal/domain/repositories"
)

// DocumentRepository implements repositories.DocumentRepository on a map.
type DocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]models.Document
	now  func() time.Time
}

// NewDocumentRepository creates an empty repository.
func NewDocumentRepository() *DocumentRepository {
	var tick int64
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &DocumentRepository{
		docs: make(map[string]models.Document),
		// Strictly increasing timestamps keep "newest first" deterministic.
		now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Millisecond)
		},
	}
}

var _ repositories.DocumentRepository = (*DocumentRepository)(nil)

func (r *DocumentRepository) Create(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.ParentDocument != nil {
		parent, ok := r.docs[*doc.ParentDocument]
		if !ok || parent.UserID != doc.UserID {
			return &domain.NotFoundError{Message: "parent document not found"}
		}
	}

	doc.ID = uuid.NewString()
	doc.CreatedAt = r.now()
	doc.UpdatedAt = doc.CreatedAt
	r.docs[doc.ID] = clone(*doc)
	return nil
}

func (r *DocumentRepository) GetByID(_ context.Context, userID, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok || doc.UserID != userID {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	out := clone(doc)
	return &out, nil
}

func (r *DocumentRepository) Update(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.docs[doc.ID]
	if !ok || existing.UserID != doc.UserID {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	doc.CreatedAt = existing.CreatedAt
	doc.UpdatedAt = r.now()
	r.docs[doc.ID] = clone(*doc)
	return nil
}

func (r *DocumentRepository) SetArchived(_ context.Context, userID, id string, archived bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok || doc.UserID != userID {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.IsArchived = archived
	doc.UpdatedAt = r.now()
	r.docs[id] = doc
	return nil
}

func (r *DocumentRepository) ListDescendantIDs(_ context.Context, userID, id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := []string{}
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, doc := range r.docs {
			if doc.UserID != userID || doc.ParentDocument == nil || *doc.ParentDocument != current || seen[doc.ID] {
				continue
			}
			seen[doc.ID] = true
			ids = append(ids, doc.ID)
			queue = append(queue, doc.ID)
		}
	}
	return ids, nil
}

func (r *DocumentRepository) ListChildren(_ context.Context, userID string, parentID *string) ([]models.Document, error) {
	return r.list(func(doc models.Document) bool {
		if doc.UserID != userID || doc.IsArchived {
			return false
		}
		if parentID == nil {
			return doc.ParentDocument == nil
		}
		return doc.ParentDocument != nil && *doc.ParentDocument == *parentID
	}), nil
}

func (r *DocumentRepository) ListSearchable(_ context.Context, userID string) ([]models.Document, error) {
	return r.list(func(doc models.Document) bool {
		return doc.UserID == userID && !doc.IsArchived
	}), nil
}

func (r *DocumentRepository) list(keep func(models.Document) bool) []models.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Document{}
	for _, doc := range r.docs {
		if keep(doc) {
			out = append(out, clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func clone(doc models.Document) models.Document {
	doc.Icon = clonePtr(doc.Icon)
	doc.CoverImage = clonePtr(doc.CoverImage)
	doc.Content = clonePtr(doc.Content)
	doc.ParentDocument = clonePtr(doc.ParentDocument)
	return doc
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// TransactionManager runs fn directly. Used with DocumentRepository, which has no rollback.
type TransactionManager struct{}

func (TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
