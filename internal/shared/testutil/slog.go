package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log event with its attributes flattened,
// including those added through Logger.With.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recorder is shared by a handler and every handler derived from it.
type recorder struct {
	mu      sync.Mutex
	records []LogRecord
}

// CaptureHandler records every log event for assertions.
type CaptureHandler struct {
	rec   *recorder
	attrs []slog.Attr
	t     *testing.T
}

// NewCaptureHandler creates a handler that also echoes events to t.Log.
func NewCaptureHandler(t *testing.T) *CaptureHandler {
	return &CaptureHandler{rec: &recorder{}, t: t}
}

// NewTestLogger returns a logger backed by a CaptureHandler.
func NewTestLogger(t *testing.T) (*slog.Logger, *CaptureHandler) {
	h := NewCaptureHandler(t)
	return slog.New(h), h
}

func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.rec.mu.Lock()
	h.rec.records = append(h.rec.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.rec.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &CaptureHandler{rec: h.rec, attrs: merged, t: h.t}
}

// WithGroup is ignored; attributes are recorded by their own key.
func (h *CaptureHandler) WithGroup(string) slog.Handler { return h }

// Records returns a copy of the captured events.
func (h *CaptureHandler) Records() []LogRecord {
	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	return append([]LogRecord(nil), h.rec.records...)
}

// Messages returns the messages of the captured events in order.
func (h *CaptureHandler) Messages() []string {
	var out []string
	for _, r := range h.Records() {
		out = append(out, r.Message)
	}
	return out
}

// Find returns the first event whose message contains msg.
func (h *CaptureHandler) Find(msg string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, msg) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// AssertLogAttr fails t unless an event with message msg carries key=want.
func AssertLogAttr(t *testing.T, h *CaptureHandler, msg, key string, want any) {
	t.Helper()
	r, ok := h.Find(msg)
	if !ok {
		t.Errorf("no log event %q; captured %v", msg, h.Messages())
		return
	}
	if got, ok := r.Attrs[key]; !ok || got != want {
		t.Errorf("log event %q: %s = %v, want %v", msg, key, got, want)
	}
}

// AssertNoErrors fails t if any error-level event was captured.
func AssertNoErrors(t *testing.T, h *CaptureHandler) {
	t.Helper()
	for _, r := range h.Records() {
		if r.Level >= slog.LevelError {
			t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
		}
	}
}
