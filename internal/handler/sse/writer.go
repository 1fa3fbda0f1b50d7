package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// Stream writes Server-Sent Events. Writes are serialized so events and
// keep-alives never interleave.
type Stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewStream writes the SSE headers and returns a stream over w.
func NewStream(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, flusher: flusher}, nil
}

// Send writes one event with data encoded as JSON.
func (s *Stream) Send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepAlive writes an SSE comment. Lines starting with ':' are ignored by clients.
func (s *Stream) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// Forward sends every value from src as an event until src closes, the client
// disconnects, or a write fails. Keep-alives are written between events.
func Forward[T any](r *http.Request, stream *Stream, src <-chan T, event string, cfg *Config, logger *slog.Logger) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	keepAlive := NewTickerKeepAlive(cfg.KeepAliveInterval)
	stopped := keepAlive.Start(stream, logger)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-stopped:
			return
		case v, ok := <-src:
			if !ok {
				return
			}
			if err := stream.Send(event, v); err != nil {
				logger.Debug("sse send failed", "event", event, "error", err)
				return
			}
		}
	}
}
