// Package search ranks a user's documents for the search palette.
package search

import (
	"strings"

	"github.com/tidwall/gjson"

	"zotion/internal/domain/models"
)

// DocumentRecord is the shape stored in the Meilisearch index.
type DocumentRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Title     string `json:"title"`
	Icon      string `json:"icon,omitempty"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// NewDocumentRecord builds the index record for doc.
func NewDocumentRecord(doc *models.Document) DocumentRecord {
	record := DocumentRecord{
		ID:        doc.ID,
		UserID:    doc.UserID,
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt.Unix(),
	}
	if doc.Icon != nil {
		record.Icon = *doc.Icon
	}
	if doc.Content != nil {
		record.Text = PlainText(*doc.Content)
	}
	return record
}

// PlainText collects every "text" string of a serialized block-tree, in document order.
// Content that is not JSON is returned as is.
func PlainText(content string) string {
	if !gjson.Valid(content) {
		return content
	}

	var parts []string
	var walk func(value gjson.Result)
	walk = func(value gjson.Result) {
		value.ForEach(func(key, child gjson.Result) bool {
			if key.String() == "text" && child.Type == gjson.String {
				if text := strings.TrimSpace(child.String()); text != "" {
					parts = append(parts, text)
				}
				return true
			}
			if child.IsObject() || child.IsArray() {
				walk(child)
			}
			return true
		})
	}
	walk(gjson.Parse(content))

	return strings.Join(parts, " ")
}
