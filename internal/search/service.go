package search

import (
	"log/slog"

	"zotion/internal/domain/models"
)

// Index is the part of Meili the service depends on.
type Index interface {
	Healthy() bool
	SearchIDs(userID, query string, limit int) ([]string, error)
	IndexDocuments(records []DocumentRecord) error
	DeleteDocument(id string) error
}

// Service tries Meilisearch first and falls back to in-memory fuzzy matching.
type Service struct {
	index  Index
	logger *slog.Logger
}

// NewService creates a search service. index may be nil if Meilisearch is not configured.
func NewService(index Index, logger *slog.Logger) *Service {
	return &Service{index: index, logger: logger}
}

// Filter narrows docs (the caller's live, non-archived list) to those matching query.
// Ids returned by the index but missing from docs are dropped, so a stale index
// can never surface archived or foreign documents.
func (s *Service) Filter(userID, query string, docs []models.Document) []models.Document {
	if query == "" {
		return docs
	}

	if s.available() {
		ids, err := s.index.SearchIDs(userID, query, len(docs))
		if err == nil {
			byID := make(map[string]models.Document, len(docs))
			for _, doc := range docs {
				byID[doc.ID] = doc
			}
			result := make([]models.Document, 0, len(ids))
			for _, id := range ids {
				if doc, ok := byID[id]; ok {
					result = append(result, doc)
				}
			}
			return result
		}
		s.logger.Warn("meilisearch error, falling back to fuzzy filter", "error", err)
	}

	return FuzzyFilter(docs, query)
}

// IndexDocument indexes a document (fire-and-forget).
func (s *Service) IndexDocument(doc *models.Document) {
	if !s.available() {
		return
	}
	record := NewDocumentRecord(doc)
	go func() {
		if err := s.index.IndexDocuments([]DocumentRecord{record}); err != nil {
			s.logger.Warn("index document", "id", record.ID, "error", err)
		}
	}()
}

// DeleteDocuments removes documents from the index (fire-and-forget).
func (s *Service) DeleteDocuments(ids ...string) {
	if !s.available() || len(ids) == 0 {
		return
	}
	go func() {
		for _, id := range ids {
			if err := s.index.DeleteDocument(id); err != nil {
				s.logger.Warn("delete document from index", "id", id, "error", err)
			}
		}
	}()
}

// Reindex pushes docs to the index in one batch.
func (s *Service) Reindex(docs []models.Document) {
	if !s.available() {
		return
	}
	records := make([]DocumentRecord, 0, len(docs))
	for i := range docs {
		records = append(records, NewDocumentRecord(&docs[i]))
	}
	if err := s.index.IndexDocuments(records); err != nil {
		s.logger.Warn("reindex documents", "count", len(records), "error", err)
	}
}

func (s *Service) available() bool {
	return s.index != nil && s.index.Healthy()
}
