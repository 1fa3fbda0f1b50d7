package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RewritePath is the route the hook calls.
const RewritePath = "/api/ai/rewrite"

// RewriteOptions are the optional hints sent with a rewrite.
type RewriteOptions struct {
	Tone   string
	Length string
}

// RewriteState is the observable state of a RewriteHook.
type RewriteState struct {
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
}

// RewriteHook calls the rewrite route and tracks whether a call is in flight.
//
// Calls on one hook are not serialized: overlapping calls share the loading and
// error state, and whichever settles last wins.
type RewriteHook struct {
	client *Client

	mu     sync.Mutex
	state  RewriteState
	nextID int
	subs   map[int]chan RewriteState
}

// NewRewriteHook creates an idle hook.
func NewRewriteHook(c *Client) *RewriteHook {
	return &RewriteHook{
		client: c,
		subs:   make(map[int]chan RewriteState),
	}
}

// Rewrite sends content to the rewrite route and returns the rewritten value.
// content may be any JSON value, including a string holding serialized JSON.
func (h *RewriteHook) Rewrite(ctx context.Context, content json.RawMessage, opts RewriteOptions) (result json.RawMessage, err error) {
	h.set(RewriteState{Loading: true})
	defer func() {
		state := RewriteState{}
		if err != nil {
			state.Err = err.Error()
		}
		h.set(state)
	}()

	body, err := rewriteBody(content, opts)
	if err != nil {
		return nil, err
	}

	respBody, err := h.client.send(ctx, http.MethodPost, RewritePath, body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			return nil, &APIError{Status: apiErr.Status, Message: fmt.Sprintf("Rewrite failed (%d)", apiErr.Status)}
		}
		return nil, err
	}

	rewritten := gjson.GetBytes(respBody, "content")
	if !rewritten.Exists() {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(rewritten.Raw), nil
}

// IsLoading reports whether a call is in flight.
func (h *RewriteHook) IsLoading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Loading
}

// Err returns the message of the last failed call, cleared when a new call starts.
func (h *RewriteHook) Err() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Err
}

// Subscribe delivers the state after every change, starting with the current one.
// Only the latest state is buffered.
func (h *RewriteHook) Subscribe() (<-chan RewriteState, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan RewriteState, 1)
	ch <- h.state
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *RewriteHook) set(state RewriteState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state = state
	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}

// rewriteBody builds {"content": ..., "tone"?: ..., "length"?: ...}.
func rewriteBody(content json.RawMessage, opts RewriteOptions) ([]byte, error) {
	if len(content) == 0 {
		content = json.RawMessage("null")
	}

	body, err := sjson.SetRawBytes([]byte(`{}`), "content", content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	if opts.Tone != "" {
		if body, err = sjson.SetBytes(body, "tone", opts.Tone); err != nil {
			return nil, fmt.Errorf("encode tone: %w", err)
		}
	}
	if opts.Length != "" {
		if body, err = sjson.SetBytes(body, "length", opts.Length); err != nil {
			return nil, fmt.Errorf("encode length: %w", err)
		}
	}
	return body, nil
}
