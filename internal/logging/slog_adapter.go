// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// slogHandler adapts the global zerolog logger to slog.Handler, for
// libraries that speak slog — concretely sutureslog, which reports the
// supervisor tree's service lifecycle events through it.
type slogHandler struct {
	attrs []slog.Attr
	group string
}

// NewSlogLogger returns an *slog.Logger whose records land on the global
// zerolog logger with their attributes preserved as fields.
func NewSlogLogger() *slog.Logger {
	return slog.New(&slogHandler{})
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return zerologLevel(level) >= zerolog.GlobalLevel()
}

func (h *slogHandler) Handle(_ context.Context, record slog.Record) error {
	l := Logger()
	event := l.WithLevel(zerologLevel(record.Level))
	for _, attr := range h.attrs {
		// Stored attrs were qualified by the group in effect when they
		// were added; only the record's own attrs take the current one.
		event = event.Interface(attr.Key, attr.Value.Any())
	}
	record.Attrs(func(attr slog.Attr) bool {
		event = event.Interface(h.qualify(attr.Key), attr.Value.Any())
		return true
	})
	event.Msg(record.Message)
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &slogHandler{group: h.group, attrs: make([]slog.Attr, 0, len(h.attrs)+len(attrs))}
	next.attrs = append(next.attrs, h.attrs...)
	for _, attr := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.qualify(attr.Key), Value: attr.Value})
	}
	return next
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &slogHandler{attrs: h.attrs, group: h.qualify(name)}
}

func (h *slogHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
