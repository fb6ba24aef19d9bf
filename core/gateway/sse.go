package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// StreamWriter receives the frames a session decides to deliver.
type StreamWriter interface {
	WriteFrame(eventType string, data any) error
}

// SSEWriter writes text/event-stream frames to an HTTP response, flushing
// after every frame. Writes are serialized; the stream never carries a
// partial or interleaved frame.
type SSEWriter struct {
	mu    sync.Mutex
	w     io.Writer
	flush func()
}

// NewSSEWriter wraps w. When w is an http.ResponseWriter supporting
// http.Flusher, frames are flushed as they are written.
func NewSSEWriter(w io.Writer) *SSEWriter {
	sw := &SSEWriter{w: w, flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		sw.flush = f.Flush
	}
	return sw
}

// PrepareHeaders sets the response headers for an event stream. Call before
// the first frame.
func PrepareHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

func (s *SSEWriter) WriteFrame(eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode frame payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.flush()
	return nil
}

var _ StreamWriter = (*SSEWriter)(nil)
