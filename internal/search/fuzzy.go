package search

import (
	"github.com/sahilm/fuzzy"

	"zotion/internal/domain/models"
)

type titleSource []models.Document

func (s titleSource) String(i int) string { return s[i].Title }
func (s titleSource) Len() int            { return len(s) }

// FuzzyFilter ranks docs by a fuzzy match of query against their titles.
// An empty query keeps docs as they are.
func FuzzyFilter(docs []models.Document, query string) []models.Document {
	if query == "" {
		return docs
	}

	matches := fuzzy.FindFrom(query, titleSource(docs))
	result := make([]models.Document, 0, len(matches))
	for _, m := range matches {
		result = append(result, docs[m.Index])
	}
	return result
}
