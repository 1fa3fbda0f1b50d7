package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRewriteBody(t *testing.T) {
	body, err := rewriteBody(json.RawMessage(`{"type":"doc"}`), RewriteOptions{Tone: "formal"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":{"type":"doc"},"tone":"formal"}`, string(body))

	body, err = rewriteBody(json.RawMessage(`"[{\"a\":1}]"`), RewriteOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"[{\"a\":1}]"}`, string(body))

	body, err = rewriteBody(nil, RewriteOptions{Length: "short"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":null,"length":"short"}`, string(body))
}

func TestRewriteHook_Success(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RewritePath, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"paragraph","text":"Polished"}]}`))
	}))
	defer server.Close()

	hook := NewRewriteHook(New(server.URL, WithToken("default-token")))
	ctx := ContextWithToken(context.Background(), "caller-token")

	result, err := hook.Rewrite(ctx, json.RawMessage(`[{"type":"paragraph","text":"draft"}]`), RewriteOptions{})
	require.NoError(t, err)

	assert.JSONEq(t, `[{"type":"paragraph","text":"Polished"}]`, string(result))
	assert.Equal(t, "Bearer caller-token", gotAuth)
	assert.Equal(t, "draft", gjson.GetBytes(gotBody, "content.0.text").String())
	assert.False(t, hook.IsLoading())
	assert.Empty(t, hook.Err())
}

func TestRewriteHook_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server message", http.StatusBadRequest, `{"error":"Missing content"}`, "Missing content"},
		{"problem detail only", http.StatusBadGateway, `{"detail":"Empty AI response"}`, "Empty AI response"},
		{"no message", http.StatusInternalServerError, `oops`, "Rewrite failed (500)"},
		{"empty body", http.StatusServiceUnavailable, ``, "Rewrite failed (503)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			hook := NewRewriteHook(New(server.URL))
			_, err := hook.Rewrite(context.Background(), json.RawMessage(`{}`), RewriteOptions{})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, tt.wantMsg, hook.Err())
			assert.False(t, hook.IsLoading())
		})
	}
}

func TestRewriteHook_TransportErrorResetsLoading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	hook := NewRewriteHook(New(url))
	_, err := hook.Rewrite(context.Background(), json.RawMessage(`{}`), RewriteOptions{})
	require.Error(t, err)
	assert.False(t, hook.IsLoading())
	assert.NotEmpty(t, hook.Err())
}

func TestRewriteHook_LoadingState(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"content":{"ok":true}}`))
	}))
	defer server.Close()

	hook := NewRewriteHook(New(server.URL))
	states, unsubscribe := hook.Subscribe()
	defer unsubscribe()
	assert.Equal(t, RewriteState{}, <-states)

	done := make(chan error, 1)
	go func() {
		_, err := hook.Rewrite(context.Background(), json.RawMessage(`{}`), RewriteOptions{})
		done <- err
	}()

	select {
	case state := <-states:
		assert.True(t, state.Loading)
	case <-time.After(2 * time.Second):
		t.Fatal("no loading state")
	}
	assert.True(t, hook.IsLoading())

	close(release)
	require.NoError(t, <-done)

	select {
	case state := <-states:
		assert.False(t, state.Loading)
	case <-time.After(2 * time.Second):
		t.Fatal("no settled state")
	}
}
