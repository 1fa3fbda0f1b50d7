package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"zotion/internal/domain"
	"zotion/internal/domain/models"
	"zotion/internal/domain/services"
	"zotion/internal/httputil"
	"zotion/internal/repository/memory"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []models.DocumentChange
}

func (p *recordingPublisher) Publish(_ context.Context, change models.DocumentChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}

func (p *recordingPublisher) last() models.DocumentChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changes[len(p.changes)-1]
}

type recordingIndexer struct {
	indexed []string
	deleted []string
}

func (i *recordingIndexer) IndexDocument(doc *models.Document) { i.indexed = append(i.indexed, doc.ID) }
func (i *recordingIndexer) DeleteDocuments(ids ...string)      { i.deleted = append(i.deleted, ids...) }

type fixture struct {
	svc       services.DocumentService
	publisher *recordingPublisher
	indexer   *recordingIndexer
}

func newFixture() *fixture {
	publisher := &recordingPublisher{}
	indexer := &recordingIndexer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewDocumentService(memory.NewDocumentRepository(), memory.TransactionManager{}, publisher, indexer, logger)
	return &fixture{svc: svc, publisher: publisher, indexer: indexer}
}

func (f *fixture) create(t *testing.T, title string, parent *string) *models.Document {
	t.Helper()
	doc, err := f.svc.CreateDocument(context.Background(), "user-1", &services.CreateDocumentRequest{
		Title:          title,
		ParentDocument: parent,
	})
	if err != nil {
		t.Fatalf("CreateDocument(%q) failed: %v", title, err)
	}
	return doc
}

func strPtr(s string) *string { return &s }

func parentIDs(change models.DocumentChange) map[string]bool {
	out := make(map[string]bool)
	for _, p := range change.Parents {
		if p == nil {
			out["root"] = true
		} else {
			out[*p] = true
		}
	}
	return out
}

func TestCreateDocument_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     *services.CreateDocumentRequest
		wantErr error
	}{
		{
			name:    "missing title",
			req:     &services.CreateDocumentRequest{Title: ""},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "title too long",
			req:     &services.CreateDocumentRequest{Title: string(make([]byte, 256))},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "parent is not a uuid",
			req:     &services.CreateDocumentRequest{Title: "ok", ParentDocument: strPtr("nope")},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown parent",
			req:     &services.CreateDocumentRequest{Title: "ok", ParentDocument: strPtr("8b0c5a3e-3f0e-4a53-9d0a-4a8f4f7d9b11")},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.CreateDocument(context.Background(), "user-1", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateDocument_PublishesParent(t *testing.T) {
	f := newFixture()
	root := f.create(t, "Root", nil)
	if got := parentIDs(f.publisher.last()); !got["root"] {
		t.Errorf("expected root refresh, got %v", got)
	}

	child := f.create(t, "Child", &root.ID)
	if got := parentIDs(f.publisher.last()); !got[root.ID] || len(got) != 1 {
		t.Errorf("expected refresh of %s only, got %v", root.ID, got)
	}
	if len(f.indexer.indexed) != 2 || f.indexer.indexed[1] != child.ID {
		t.Errorf("expected both documents indexed, got %v", f.indexer.indexed)
	}
}

func TestListChildren_NewestFirstAndScoped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	parent := f.create(t, "Parent", nil)
	first := f.create(t, "First", &parent.ID)
	second := f.create(t, "Second", &parent.ID)

	if _, err := f.svc.CreateDocument(ctx, "user-2", &services.CreateDocumentRequest{Title: "Other"}); err != nil {
		t.Fatalf("create for user-2: %v", err)
	}

	children, err := f.svc.ListChildren(ctx, "user-1", &parent.ID)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if len(children) != 2 || children[0].ID != second.ID || children[1].ID != first.ID {
		t.Errorf("unexpected children order: %+v", children)
	}

	roots, err := f.svc.ListChildren(ctx, "user-1", nil)
	if err != nil {
		t.Fatalf("ListChildren(root) failed: %v", err)
	}
	if len(roots) != 1 || roots[0].ID != parent.ID {
		t.Errorf("expected only user-1's root, got %+v", roots)
	}

	invalid, err := f.svc.ListChildren(ctx, "user-1", strPtr("not-a-uuid"))
	if err != nil || len(invalid) != 0 {
		t.Errorf("expected empty list for invalid parent, got %v, %v", invalid, err)
	}
}

func TestListSearchable_ReturnsEveryDocument(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	oldest := f.create(t, "Ancient note", nil)
	for i := 0; i < 250; i++ {
		f.create(t, fmt.Sprintf("Note %d", i), &oldest.ID)
	}
	archived := f.create(t, "Archived", nil)
	if _, err := f.svc.ArchiveDocument(ctx, "user-1", archived.ID); err != nil {
		t.Fatalf("ArchiveDocument failed: %v", err)
	}

	docs, err := f.svc.ListSearchable(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSearchable failed: %v", err)
	}
	if len(docs) != 251 {
		t.Fatalf("expected 251 documents, got %d", len(docs))
	}

	found := false
	for _, doc := range docs {
		if doc.ID == archived.ID {
			t.Errorf("archived document %s listed", doc.ID)
		}
		if doc.ID == oldest.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("oldest document %s missing from list", oldest.ID)
	}
}

func TestArchiveDocument_Recursive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	root := f.create(t, "Root", nil)
	child := f.create(t, "Child", &root.ID)
	grandchild := f.create(t, "Grandchild", &child.ID)

	if _, err := f.svc.ArchiveDocument(ctx, "user-1", root.ID); err != nil {
		t.Fatalf("ArchiveDocument failed: %v", err)
	}

	for _, id := range []string{root.ID, child.ID, grandchild.ID} {
		doc, err := f.svc.GetDocument(ctx, "user-1", id)
		if err != nil {
			t.Fatalf("GetDocument(%s) failed: %v", id, err)
		}
		if !doc.IsArchived {
			t.Errorf("expected %s to be archived", doc.Title)
		}
	}

	searchable, _ := f.svc.ListSearchable(ctx, "user-1")
	if len(searchable) != 0 {
		t.Errorf("archived documents must not be searchable, got %d", len(searchable))
	}

	got := parentIDs(f.publisher.last())
	for _, key := range []string{"root", root.ID, child.ID, grandchild.ID} {
		if !got[key] {
			t.Errorf("expected refresh of %s, got %v", key, got)
		}
	}
	if len(f.indexer.deleted) != 3 {
		t.Errorf("expected 3 index deletions, got %v", f.indexer.deleted)
	}
}

func TestRestoreDocument_DetachesFromArchivedParent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	root := f.create(t, "Root", nil)
	child := f.create(t, "Child", &root.ID)

	if _, err := f.svc.ArchiveDocument(ctx, "user-1", root.ID); err != nil {
		t.Fatalf("ArchiveDocument failed: %v", err)
	}

	restored, err := f.svc.RestoreDocument(ctx, "user-1", child.ID)
	if err != nil {
		t.Fatalf("RestoreDocument failed: %v", err)
	}
	if restored.ParentDocument != nil {
		t.Errorf("expected child to be detached to root, parent=%v", *restored.ParentDocument)
	}
	if restored.IsArchived {
		t.Error("expected child to be restored")
	}

	if _, err := f.svc.RestoreDocument(ctx, "user-1", child.ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("restoring a live document should fail validation, got %v", err)
	}
}

func TestUpdateDocument_PartialAndTriState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc := f.create(t, "Doc", nil)

	icon := "📄"
	updated, err := f.svc.UpdateDocument(ctx, "user-1", doc.ID, &services.UpdateDocumentRequest{
		Content: strPtr(`[{"text":"hi"}]`),
		Icon:    httputil.OptionalString{Present: true, Value: &icon},
	})
	if err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}
	if updated.Title != "Doc" || updated.Icon == nil || *updated.Icon != icon || !updated.HasContent() {
		t.Errorf("unexpected document after update: %+v", updated)
	}

	cleared, err := f.svc.UpdateDocument(ctx, "user-1", doc.ID, &services.UpdateDocumentRequest{
		Icon: httputil.OptionalString{Present: true},
	})
	if err != nil {
		t.Fatalf("UpdateDocument (clear icon) failed: %v", err)
	}
	if cleared.Icon != nil {
		t.Errorf("expected icon cleared, got %q", *cleared.Icon)
	}
	if !cleared.HasContent() {
		t.Error("absent content must be kept")
	}
}

func TestUpdateDocument_MoveRejectsCycles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	root := f.create(t, "Root", nil)
	child := f.create(t, "Child", &root.ID)

	tests := []struct {
		name   string
		target string
	}{
		{"self", root.ID},
		{"descendant", child.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := tt.target
			_, err := f.svc.UpdateDocument(ctx, "user-1", root.ID, &services.UpdateDocumentRequest{
				ParentDocument: httputil.OptionalString{Present: true, Value: &target},
			})
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	moved, err := f.svc.UpdateDocument(ctx, "user-1", child.ID, &services.UpdateDocumentRequest{
		ParentDocument: httputil.OptionalString{Present: true},
	})
	if err != nil {
		t.Fatalf("move to root failed: %v", err)
	}
	if moved.ParentDocument != nil {
		t.Error("expected child at root level")
	}
	got := parentIDs(f.publisher.last())
	if !got["root"] || !got[root.ID] {
		t.Errorf("move must refresh old and new parent, got %v", got)
	}
}
