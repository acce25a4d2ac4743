// Package testutil holds test doubles shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecord is a captured record with its attributes flattened to strings.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

type logStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogHandlerSpy is a slog.Handler that captures log records for assertions.
type LogHandlerSpy struct {
	store *logStore
	attrs []slog.Attr
}

func NewLogHandlerSpy() *LogHandlerSpy {
	return &LogHandlerSpy{store: &logStore{}}
}

// Logger returns a logger writing into the spy.
func (s *LogHandlerSpy) Logger() *slog.Logger {
	return slog.New(s)
}

func (s *LogHandlerSpy) Enabled(context.Context, slog.Level) bool { return true }

func (s *LogHandlerSpy) Handle(_ context.Context, r slog.Record) error {
	rec := LogRecord{Level: r.Level, Message: r.Message, Attrs: make(map[string]string)}
	for _, a := range s.attrs {
		rec.Attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.String()
		return true
	})

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.records = append(s.store.records, rec)
	return nil
}

func (s *LogHandlerSpy) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr(nil), s.attrs...), attrs...)
	return &LogHandlerSpy{store: s.store, attrs: merged}
}

// WithGroup is flattened; groups are not relevant for the assertions we make.
func (s *LogHandlerSpy) WithGroup(string) slog.Handler { return s }

// Records returns a copy of all captured records.
func (s *LogHandlerSpy) Records() []LogRecord {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	out := make([]LogRecord, len(s.store.records))
	copy(out, s.store.records)
	return out
}

// ByLevel returns captured records at exactly level.
func (s *LogHandlerSpy) ByLevel(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range s.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// ByMessage returns captured records with the given message.
func (s *LogHandlerSpy) ByMessage(msg string) []LogRecord {
	var out []LogRecord
	for _, r := range s.Records() {
		if r.Message == msg {
			out = append(out, r)
		}
	}
	return out
}
