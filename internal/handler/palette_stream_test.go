package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zotion/internal/client"
	"zotion/internal/palette"
)

func openStream(t *testing.T, ctx context.Context, url string) *bufio.Reader {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

func TestPaletteHandler_StreamStores(t *testing.T) {
	env := newTestEnv(t)
	f := newPaletteFixture(env, nil)
	defer f.handler.Unmount()

	srv := httptest.NewServer(f.api)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("palette follows the shortcut", func(t *testing.T) {
		reader := openStream(t, ctx, srv.URL+"/api/palette/stream")
		event, data := readEvent(t, reader)
		assert.Equal(t, "search", event)
		assert.Equal(t, "false", data)

		rec := doJSON(t, f.api, http.MethodPost, "/api/palette/keys", `{"key":"k","meta":true}`)
		require.Equal(t, http.StatusOK, rec.Code)

		event, data = readEvent(t, reader)
		assert.Equal(t, "search", event)
		assert.Equal(t, "true", data)
	})

	t.Run("settings", func(t *testing.T) {
		reader := openStream(t, ctx, srv.URL+"/api/settings/stream")
		event, data := readEvent(t, reader)
		assert.Equal(t, "settings", event)
		assert.Equal(t, "false", data)

		rec := doJSON(t, f.api, http.MethodPost, "/api/settings/open", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		event, data = readEvent(t, reader)
		assert.Equal(t, "settings", event)
		assert.Equal(t, "true", data)
	})
}

func TestPaletteHandler_StreamRewrite(t *testing.T) {
	env := newTestEnv(t)

	upstream, _ := rewriteServer(t, &stubCompleter{reply: "no json here"})
	api := client.New(upstream.URL)
	f := newPaletteFixture(env, func(string) palette.Rewriter {
		return client.NewRewriteHook(api)
	})
	defer f.handler.Unmount()

	content := `[{"text":"rough"}]`
	doc := env.create(t, "Draft", nil, &content)

	srv := httptest.NewServer(f.api)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reader := openStream(t, ctx, srv.URL+"/api/palette/rewrite/stream")
	event, data := readEvent(t, reader)
	assert.Equal(t, "rewrite", event)
	assert.JSONEq(t, `{"loading":false}`, data)

	rec := doJSON(t, f.api, http.MethodPost, "/api/palette/documents/"+doc.ID+"/rewrite", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	// Only the latest state is buffered, so the loading state may be skipped.
	var state client.RewriteState
	for !strings.Contains(data, `"error"`) {
		event, data = readEvent(t, reader)
		assert.Equal(t, "rewrite", event)
	}
	require.NoError(t, json.Unmarshal([]byte(data), &state))
	assert.False(t, state.Loading)
	assert.NotEmpty(t, state.Err)
}

func TestPaletteHandler_StreamRewriteUnavailable(t *testing.T) {
	env := newTestEnv(t)
	f := newPaletteFixture(env, nil)
	defer f.handler.Unmount()

	rec := doJSON(t, f.api, http.MethodGet, "/api/palette/rewrite/stream", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
