package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"zotion/internal/domain"
)

type stubCompleter struct {
	text   string
	err    error
	system string
	user   string
	calls  int
}

func (s *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.calls++
	s.system = system
	s.user = user
	return s.text, s.err
}

// blockingCompleter waits for ctx and records that the call was released.
type blockingCompleter struct {
	released atomic.Bool
}

func (b *blockingCompleter) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	b.released.Store(true)
	return "", ctx.Err()
}

func newTestService(t *testing.T, completer Completer, timeout time.Duration) *Service {
	t.Helper()
	svc, err := NewService(completer, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestRewrite_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		completer  Completer
		content    string
		tone       string
		wantStatus int
		wantMsg    string
	}{
		{"absent content", &stubCompleter{text: `{}`}, ``, "", http.StatusBadRequest, MsgMissingContent},
		{"null content", &stubCompleter{text: `{}`}, `null`, "", http.StatusBadRequest, MsgMissingContent},
		{"empty string content", &stubCompleter{text: `{}`}, `""`, "", http.StatusBadRequest, MsgMissingContent},
		{"zero content", &stubCompleter{text: `{}`}, `0`, "", http.StatusBadRequest, MsgMissingContent},
		{"false content", &stubCompleter{text: `{}`}, `false`, "", http.StatusBadRequest, MsgMissingContent},
		{"missing content wins over missing credential", nil, ``, "", http.StatusBadRequest, MsgMissingContent},
		{"missing credential", nil, `{"type":"doc"}`, "", http.StatusNotImplemented, MsgMissingCredential},
		{"missing credential with unparseable string", nil, `"not json"`, "", http.StatusNotImplemented, MsgMissingCredential},
		{"missing credential with oversized tone", nil, `{}`, strings.Repeat("x", 100), http.StatusNotImplemented, MsgMissingCredential},
		{"string content that is not JSON", &stubCompleter{text: `{}`}, `"not json"`, "", http.StatusBadRequest, MsgInvalidContent},
		{"upstream error", &stubCompleter{err: &domain.UpstreamError{Message: "bad key", Status: 401}}, `{}`, "", http.StatusBadGateway, "bad key"},
		{"empty response", &stubCompleter{text: ""}, `{}`, "", http.StatusBadGateway, MsgEmptyResponse},
		{"no JSON in response", &stubCompleter{text: "Sorry."}, `{}`, "", http.StatusBadGateway, "No JSON found in AI response"},
		{"unbalanced response", &stubCompleter{text: `{"a": {"b": 1}`}, `{}`, "", http.StatusBadGateway, "Could not extract valid JSON from AI response"},
		{"unexpected failure", &stubCompleter{err: errors.New("dial tcp: connection refused")}, `{}`, "", http.StatusInternalServerError, MsgFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.completer, time.Second)

			_, err := svc.Rewrite(context.Background(), &Request{
				Content: json.RawMessage(tt.content),
				Tone:    tt.tone,
			})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if status := domain.StatusOf(err, http.StatusInternalServerError); status != tt.wantStatus {
				t.Errorf("expected status %d, got %d (%v)", tt.wantStatus, status, err)
			}
			if msg := Message(err); msg != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, msg)
			}
		})
	}
}

func TestRewrite_Success(t *testing.T) {
	completer := &stubCompleter{text: "Here is the result:\n```\n{\"a\":1}\n```"}
	svc := newTestService(t, completer, time.Second)

	content, err := svc.Rewrite(context.Background(), &Request{Content: json.RawMessage(`{"a":0}`)})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if string(content) != `{"a":1}` {
		t.Errorf("expected {\"a\":1}, got %s", content)
	}
	if !strings.Contains(completer.system, "Preserve the exact JSON structure") {
		t.Errorf("unexpected system prompt: %s", completer.system)
	}
}

func TestRewrite_StringContentIsParsed(t *testing.T) {
	completer := &stubCompleter{text: `{"ok":true}`}
	svc := newTestService(t, completer, time.Second)

	_, err := svc.Rewrite(context.Background(), &Request{
		Content: json.RawMessage(`"{\"type\":\"paragraph\",\"text\":\"hi\"}"`),
	})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	want := "{\n  \"type\": \"paragraph\",\n  \"text\": \"hi\"\n}"
	if !strings.Contains(completer.user, want) {
		t.Errorf("expected pretty-printed content in prompt, got:\n%s", completer.user)
	}
}

func TestRewrite_TimeoutReleasesProviderCall(t *testing.T) {
	completer := &blockingCompleter{}
	svc := newTestService(t, completer, 50*time.Millisecond)

	start := time.Now()
	_, err := svc.Rewrite(context.Background(), &Request{Content: json.RawMessage(`{"a":1}`)})

	var timeoutErr *domain.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeoutErr.StatusCode() != http.StatusRequestTimeout {
		t.Errorf("expected 408, got %d", timeoutErr.StatusCode())
	}
	if !strings.Contains(Message(err), "timed out") {
		t.Errorf("expected a timed out message, got %q", Message(err))
	}
	if !completer.released.Load() {
		t.Error("provider call was left outstanding")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took too long: %v", elapsed)
	}
}

func TestUserPrompt(t *testing.T) {
	prompts, err := LoadPrompts()
	if err != nil {
		t.Fatalf("LoadPrompts failed: %v", err)
	}

	plain, err := prompts.UserPrompt(json.RawMessage(`{"a":1}`), "", "")
	if err != nil {
		t.Fatalf("UserPrompt failed: %v", err)
	}
	want := "Transform this content into a polished Notion-style document:\n\n{\n  \"a\": 1\n}\n\nInstructions:\n" +
		"- Improve readability and flow\n" +
		"- Add proper headings and structure\n" +
		"- Enhance bullet points and lists\n" +
		"- Make text more engaging and professional\n" +
		"- Keep all formatting, links, and media intact\n" +
		"- Use Notion-style formatting conventions\n" +
		"\nIMPORTANT: Return ONLY the JSON object, no explanations or additional text."
	if plain != want {
		t.Errorf("unexpected prompt:\n%s\nwant:\n%s", plain, want)
	}

	hinted, err := prompts.UserPrompt(json.RawMessage(`{}`), "friendly", "short")
	if err != nil {
		t.Fatalf("UserPrompt failed: %v", err)
	}
	if !strings.Contains(hinted, "- Use a friendly tone\n- Target length: short\n") {
		t.Errorf("expected tone and length hints, got:\n%s", hinted)
	}
}
