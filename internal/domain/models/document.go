package models

import (
	"time"
)

// Document is one node of a user's note hierarchy.
// Content is the serialized block-tree produced by the editor and is opaque to the backend.
type Document struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	Title          string    `json:"title" db:"title"`
	Icon           *string   `json:"icon,omitempty" db:"icon"`
	CoverImage     *string   `json:"cover_image,omitempty" db:"cover_image"`
	Content        *string   `json:"content,omitempty" db:"content"`
	ParentDocument *string   `json:"parent_document,omitempty" db:"parent_document"` // NULL = root level
	IsArchived     bool      `json:"is_archived" db:"is_archived"`
	IsPublished    bool      `json:"is_published" db:"is_published"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// HasContent reports whether the document carries a non-empty block-tree.
func (d *Document) HasContent() bool {
	return d.Content != nil && *d.Content != ""
}

// SidebarDocument is the metadata-only projection served to the sidebar tree.
type SidebarDocument struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Icon           *string `json:"icon,omitempty"`
	ParentDocument *string `json:"parent_document,omitempty"`
}

// ToSidebar projects a document to its sidebar fields.
func (d *Document) ToSidebar() SidebarDocument {
	return SidebarDocument{
		ID:             d.ID,
		Title:          d.Title,
		Icon:           d.Icon,
		ParentDocument: d.ParentDocument,
	}
}

// DocumentChange describes a mutation that may invalidate live queries.
// Parents lists every parent id whose children list may have changed;
// nil entries mean the root level.
type DocumentChange struct {
	UserID     string    `json:"user_id"`
	DocumentID string    `json:"document_id"`
	Parents    []*string `json:"parents"`
}
