// Package logging configures the process-wide slog logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultHistory = 200

var (
	mu     sync.Mutex
	logger *slog.Logger
	sink   = newSink(defaultHistory)
)

// Entry is a captured log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Logger returns the process logger. Until Setup is called it writes text to
// stderr at the level named by LOG_LEVEL.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
	}
	return logger
}

// Setup replaces the process logger and makes it the slog default.
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	mu.Lock()
	logger = build(w, level)
	l := logger
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// ToFile sends logs to path, creating its directory. The console uses this
// while it owns the terminal.
func ToFile(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return Setup(f, level), f, nil
}

// Entries returns the most recent records at warn level or above.
func Entries() []Entry {
	return sink.entries()
}

func build(w io.Writer, level slog.Level) *slog.Logger {
	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(&capturingHandler{handler: base, sink: sink})
}

type capturingHandler struct {
	handler slog.Handler
	sink    *ring
	attrs   []slog.Attr
}

func (h *capturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *capturingHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	if record.Level >= slog.LevelWarn {
		h.sink.capture(record, h.attrs)
	}
	return err
}

func (h *capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &capturingHandler{handler: h.handler.WithAttrs(attrs), sink: h.sink, attrs: merged}
}

func (h *capturingHandler) WithGroup(name string) slog.Handler {
	return &capturingHandler{handler: h.handler.WithGroup(name), sink: h.sink, attrs: h.attrs}
}

type ring struct {
	mu      sync.RWMutex
	max     int
	history []Entry
}

func newSink(max int) *ring {
	return &ring{max: max}
}

func (s *ring) capture(record slog.Record, preset []slog.Attr) {
	entry := Entry{Time: record.Time, Level: record.Level, Message: record.Message}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	add := func(a slog.Attr) bool {
		if entry.Attrs == nil {
			entry.Attrs = make(map[string]string)
		}
		entry.Attrs[a.Key] = a.Value.String()
		return true
	}
	for _, a := range preset {
		add(a)
	}
	record.Attrs(add)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	if len(s.history) > s.max {
		s.history = s.history[len(s.history)-s.max:]
	}
}

func (s *ring) entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}
