// Package livequery pushes query snapshots to subscribers whenever a document
// mutation may have changed their result.
package livequery

import (
	"context"

	"zotion/internal/domain/models"
)

// Kind names a live query.
type Kind string

const (
	KindChildren Kind = "children"
	KindSearch   Kind = "search"
)

// Query identifies one live query. ParentID is only used by KindChildren; nil is the root level.
type Query struct {
	Kind     Kind
	UserID   string
	ParentID *string
}

// Children is the "children of parent document" query.
func Children(userID string, parentID *string) Query {
	return Query{Kind: KindChildren, UserID: userID, ParentID: parentID}
}

// Search is the "all searchable documents for current user" query.
func Search(userID string) Query {
	return Query{Kind: KindSearch, UserID: userID}
}

func (q Query) key() string {
	switch q.Kind {
	case KindChildren:
		return childrenKey(q.UserID, q.ParentID)
	default:
		return string(q.Kind) + ":" + q.UserID
	}
}

func childrenKey(userID string, parentID *string) string {
	parent := "root"
	if parentID != nil {
		parent = *parentID
	}
	return string(KindChildren) + ":" + userID + ":" + parent
}

// Snapshot is the full result of a query at one point in time.
// Children is set for KindChildren, Documents for KindSearch.
type Snapshot struct {
	Query     Query                    `json:"-"`
	Children  []models.SidebarDocument `json:"children,omitempty"`
	Documents []models.Document        `json:"documents,omitempty"`
}

// Source runs queries against the document store.
type Source interface {
	ListChildren(ctx context.Context, userID string, parentID *string) ([]models.SidebarDocument, error)
	ListSearchable(ctx context.Context, userID string) ([]models.Document, error)
}

// Broker carries document changes between server instances.
type Broker interface {
	Publish(ctx context.Context, change models.DocumentChange) error
	// Subscribe returns a channel of changes that closes when ctx is done.
	Subscribe(ctx context.Context) (<-chan models.DocumentChange, error)
	Close() error
}
