// Package openrouter is a minimal non-streaming client for the OpenRouter
// chat-completions endpoint.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"zotion/internal/domain"
)

const (
	// DefaultTitle identifies this application in OpenRouter's dashboard.
	DefaultTitle = "Zotion Rewrite"

	defaultTemperature = 0.3
	defaultMaxTokens   = 3000

	// maxResponseBytes bounds how much of a provider response is read.
	maxResponseBytes = 4 << 20
)

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string // e.g. https://openrouter.ai/api/v1
	Model   string
	Referer string // sent as HTTP-Referer
	Title   string // sent as X-Title; DefaultTitle if empty
	// HTTPClient defaults to a client without a timeout; callers bound requests with ctx.
	HTTPClient *http.Client
}

// Client calls the chat-completions endpoint.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	referer    string
	title      string
	httpClient *http.Client
}

// NewClient creates a new OpenRouter client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	title := cfg.Title
	if title == "" {
		title = DefaultTitle
	}

	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		model:      cfg.Model,
		referer:    cfg.Referer,
		title:      title,
		httpClient: httpClient,
	}
}

// Model returns the model requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a system and a user message and returns the first choice's text, trimmed.
// An empty string means the provider answered without content.
//
// A non-2xx status yields *domain.UpstreamError carrying the provider's body.
// Cancellation of ctx aborts the request; the returned error then wraps ctx.Err().
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	payload := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = "OpenRouter error"
		}
		return "", &domain.UpstreamError{Message: message, Status: resp.StatusCode}
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	return strings.TrimSpace(content.String()), nil
}
