package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"zotion/internal/domain/models"
	"zotion/internal/domain/services"
	"zotion/internal/handler/sse"
	"zotion/internal/httputil"
	"zotion/internal/livequery"
	"zotion/internal/repository/memory"
	"zotion/internal/search"
	"zotion/internal/service"
)

const testUser = "user-1"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	docs     services.DocumentService
	hub      *livequery.Hub
	searcher *search.Service
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := discardLogger()
	searcher := search.NewService(nil, logger)

	broker := livequery.NewMemoryBroker()
	docs := service.NewDocumentService(memory.NewDocumentRepository(), memory.TransactionManager{}, broker, searcher, logger)
	hub := livequery.NewHub(docs, broker, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		broker.Close()
	})

	env := &testEnv{docs: docs, hub: hub, searcher: searcher, logger: logger}
	return env
}

// asUser wraps h so every request is authenticated as userID.
func asUser(userID string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = httputil.WithUserID(r, userID)
		r = httputil.WithBearerToken(r, "token-"+userID)
		h.ServeHTTP(w, r)
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
}

func (e *testEnv) create(t *testing.T, title string, parent *string, content *string) *models.Document {
	t.Helper()
	doc, err := e.docs.CreateDocument(context.Background(), testUser, &services.CreateDocumentRequest{
		Title:          title,
		ParentDocument: parent,
		Content:        content,
	})
	require.NoError(t, err)
	return doc
}

func sseConfig() *sse.Config {
	return sse.DefaultConfig()
}
