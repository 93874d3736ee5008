// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging owns the process-wide zerolog logger and the two field
// conventions every pipeline stage shares: a "component" field naming the
// stage, and the tenant/conversation identity pair on any record-scoped
// line. Keeping both here means a log search for one conversation crosses
// every stage with a single query.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the global logger's level, format, and caller stamping.
// Zero values mean info-level JSON without caller info.
type Config struct {
	// Level is the minimum level emitted: debug, info, warn, error.
	Level string
	// Format is "json" or "console".
	Format string
	// Caller stamps each line with the emitting file and line.
	Caller bool
}

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

func init() {
	configure(Config{}, os.Stderr)
}

// Init reconfigures the global logger. Call once from main before any
// component starts; safe to call again (tests do).
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	configure(cfg, os.Stderr)
}

func configure(cfg Config, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	log = ctx.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the current global logger, for handing to components
// that carry their own tagged child logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug starts a debug-level event on the global logger.
func Debug() *zerolog.Event { l := Logger(); return l.Debug() }

// Info starts an info-level event on the global logger.
func Info() *zerolog.Event { l := Logger(); return l.Info() }

// Warn starts a warn-level event on the global logger.
func Warn() *zerolog.Event { l := Logger(); return l.Warn() }

// Error starts an error-level event on the global logger.
func Error() *zerolog.Event { l := Logger(); return l.Error() }

// Fatal starts a fatal-level event; the terminating Msg exits the
// process.
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }

// Component tags l as belonging to one pipeline stage (processor,
// aggregator, analyzer-sentiment, ...). Every stage constructor runs its
// injected logger through this so the field name never drifts.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// WithConversation tags l with the identity every record in the pipeline
// carries, for record-scoped lines (drops, DLQ routing, merge warnings).
func WithConversation(l zerolog.Logger, tenantID, conversationID string) zerolog.Logger {
	return l.With().Str("tenant_id", tenantID).Str("conversation_id", conversationID).Logger()
}

// NewTestLogger returns a logger writing JSON to w at debug level,
// independent of the global configuration, for asserting on log output
// in tests.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
