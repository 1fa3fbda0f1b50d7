package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"zotion/internal/domain/models"
	"zotion/internal/domain/services"
)

//go:embed documents.yaml
var defaultOutline []byte

// Page is one document in a seed outline.
type Page struct {
	Title   string  `yaml:"title"`
	Icon    *string `yaml:"icon"`
	Content *string `yaml:"content"`
	Pages   []Page  `yaml:"pages"`
}

// Creator is the part of the document service the seeder needs.
type Creator interface {
	CreateDocument(ctx context.Context, userID string, req *services.CreateDocumentRequest) (*models.Document, error)
}

// DocumentSeeder creates a nested workspace for one user through the document service,
// so the search index and live queries see the seeded pages like any other write.
type DocumentSeeder struct {
	docs   Creator
	logger *slog.Logger
}

// NewDocumentSeeder creates a new document seeder
func NewDocumentSeeder(docs Creator, logger *slog.Logger) *DocumentSeeder {
	return &DocumentSeeder{docs: docs, logger: logger}
}

// DefaultOutline returns the bundled sample workspace.
func DefaultOutline() ([]Page, error) {
	return ParseOutline(defaultOutline)
}

// ParseOutline decodes a YAML list of pages.
func ParseOutline(data []byte) ([]Page, error) {
	var pages []Page
	if err := yaml.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("parse seed outline: %w", err)
	}
	return pages, nil
}

// Seed creates pages depth-first and returns how many documents were created.
func (s *DocumentSeeder) Seed(ctx context.Context, userID string, pages []Page) (int, error) {
	return s.seed(ctx, userID, nil, pages, "")
}

func (s *DocumentSeeder) seed(ctx context.Context, userID string, parentID *string, pages []Page, prefix string) (int, error) {
	created := 0
	for _, page := range pages {
		path := prefix + page.Title

		doc, err := s.docs.CreateDocument(ctx, userID, &services.CreateDocumentRequest{
			Title:          page.Title,
			ParentDocument: parentID,
			Icon:           page.Icon,
			Content:        page.Content,
		})
		if err != nil {
			return created, fmt.Errorf("create %q: %w", path, err)
		}
		created++
		s.logger.Info("seeded document", "path", path, "id", doc.ID)

		n, err := s.seed(ctx, userID, &doc.ID, page.Pages, path+"/")
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}
