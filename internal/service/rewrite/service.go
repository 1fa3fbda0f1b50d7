// Package rewrite turns a document's block-tree into a polished version via an LLM
// and recovers the JSON from whatever the model returns.
package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"

	"zotion/internal/config"
	"zotion/internal/domain"
)

// Messages surfaced to callers.
const (
	MsgMissingContent    = "Missing content"
	MsgMissingCredential = "Missing credential"
	MsgInvalidContent    = "Invalid content"
	MsgTimedOut          = "Rewrite request timed out. Please try again."
	MsgEmptyResponse     = "Empty AI response"
	MsgFailed            = "Failed to rewrite content"
)

// Completer sends one system and one user message and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Request is the rewrite route's body. Content is any JSON value, or a string holding one.
type Request struct {
	Content json.RawMessage `json:"content"`
	Tone    string          `json:"tone,omitempty"`
	Length  string          `json:"length,omitempty"`
}

// Response is the rewrite route's success body.
type Response struct {
	Content json.RawMessage `json:"content"`
}

// Service runs rewrites. A nil Completer means no provider credential is configured.
type Service struct {
	completer Completer
	prompts   *Prompts
	timeout   time.Duration
	logger    *slog.Logger
}

// NewService creates a rewrite service. timeout <= 0 uses config.DefaultRewriteTimeout.
func NewService(completer Completer, timeout time.Duration, logger *slog.Logger) (*Service, error) {
	prompts, err := LoadPrompts()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = config.DefaultRewriteTimeout
	}

	return &Service{
		completer: completer,
		prompts:   prompts,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Rewrite validates req, calls the provider and repairs its output.
// Every error returned carries its HTTP status via domain.HTTPError, except
// unexpected failures, which callers report as 500.
func (s *Service) Rewrite(ctx context.Context, req *Request) (content json.RawMessage, err error) {
	start := time.Now()
	defer func() {
		status := http.StatusOK
		if err != nil {
			status = domain.StatusOf(err, http.StatusInternalServerError)
		}
		rewriteRequests.WithLabelValues(strconv.Itoa(status)).Inc()
		rewriteDuration.Observe(time.Since(start).Seconds())
	}()

	if !hasContent(req.Content) {
		return nil, &domain.ValidationError{Message: MsgMissingContent}
	}

	if s.completer == nil {
		return nil, &domain.NotConfiguredError{Message: MsgMissingCredential}
	}

	if err := validation.ValidateStruct(req,
		validation.Field(&req.Tone, validation.Length(0, config.MaxRewriteToneLength)),
		validation.Field(&req.Length, validation.Length(0, config.MaxRewriteLengthHint)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	parsed, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}

	userPrompt, err := s.prompts.UserPrompt(parsed, req.Tone, req.Length)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.completer.Complete(callCtx, s.prompts.System, userPrompt)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn("rewrite provider call timed out", "timeout", s.timeout)
			return nil, &domain.TimeoutError{Message: MsgTimedOut}
		}
		return nil, err
	}

	if raw == "" {
		return nil, &domain.UpstreamError{Message: MsgEmptyResponse}
	}

	content, strategy, err := Extract(raw)
	if err != nil {
		s.logger.Warn("could not extract JSON from model output",
			"error", err,
			"response_bytes", len(raw),
		)
		return nil, err
	}

	s.logger.Info("rewrite completed",
		"strategy", strategy,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return content, nil
}

// hasContent reports whether content is present and not a falsy JSON value
// (null, false, 0, "").
func hasContent(content json.RawMessage) bool {
	if len(content) == 0 {
		return false
	}
	value := gjson.ParseBytes(content)
	switch value.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.Number:
		return value.Num != 0
	case gjson.String:
		return value.Str != ""
	default:
		return true
	}
}

// normalizeContent parses content that arrived as a JSON string holding serialized JSON.
func normalizeContent(content json.RawMessage) (json.RawMessage, error) {
	value := gjson.ParseBytes(content)
	if value.Type != gjson.String {
		return content, nil
	}
	if !gjson.Valid(value.Str) {
		return nil, &domain.ValidationError{Message: MsgInvalidContent}
	}
	return json.RawMessage(value.Str), nil
}

// Message returns the caller-facing message for an error returned by Rewrite.
func Message(err error) string {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	return MsgFailed
}
