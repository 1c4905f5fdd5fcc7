// Package logx wires the engine's structured logging: a log/slog logger,
// in the style jmylchreest-tvarr builds its daemon logging around, with
// github.com/m-mizutani/masq redacting fields that would otherwise dump
// raw binary payloads (fields named CodecPrivate, Bytes, Payload) into
// log output.
package logx

import (
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/masq"
)

// Logger is the narrow slog surface the engine's layers depend on, so
// tests can substitute a discard logger without dragging in slog.Logger's
// full API.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// New builds a JSON slog.Logger at the given level, redacting the named
// binary-bearing field keys via masq so codec blobs and frame payloads
// never land in log output verbatim.
func New(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: masq.New(
			masq.WithFieldName("CodecPrivate"),
			masq.WithFieldName("Bytes"),
			masq.WithFieldName("Payload"),
		),
	})
	return slog.New(handler)
}

// Discard is a Logger that drops every call, used as the default when a
// caller does not wire its own logger (tests, library embedding without a
// host logging facility).
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// Default returns a slog.Logger writing to stderr at Info level, for
// embedding programs (cmd/mkvprobe) that want reasonable output with no
// configuration.
func Default() *slog.Logger {
	return New(os.Stderr, slog.LevelInfo)
}
