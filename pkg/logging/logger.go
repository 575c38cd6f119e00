// Package logging provides a reference-coded structured JSON logger.
//
// Every record carries a log reference (an opaque code such as
// "ENGEXPUTILS001") and the fixed human-readable message registered for it,
// so that log searches can key on the code while humans read the message.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// References maps log reference codes to their fixed messages.
type References map[string]string

// Fields holds the extra key/value arguments attached to a single record.
type Fields map[string]any

const (
	keyTimestamp    = "timestamp"
	keyLevel        = "level"
	keyMessage      = "message"
	keyModule       = "module"
	keyLogReference = "log_reference"
	keyLogEventID   = "log_event_id"
)

// fieldTag marks caller-supplied keys so replaceAttr never mistakes them
// for slog's own time, level and msg attributes.
const fieldTag = "\x00field:"

// MessageNotFound is logged when a reference has no registered message.
const MessageNotFound = "log reference not found"

// ReservedFields are owned by the logger and are stripped from Fields.
var ReservedFields = []string{
	keyLevel,
	keyTimestamp,
	keyModule,
	keyMessage,
	keyLogReference,
	keyLogEventID,
}

type options struct {
	level  slog.Level
	writer io.Writer
}

// Option configures a Logger.
type Option func(*options)

// WithLevel sets the minimum level. Unknown names fall back to info.
func WithLevel(level string) Option {
	return func(o *options) {
		if l, err := ParseLevel(level); err == nil {
			o.level = l
		}
	}
}

// WithWriter sets the destination for JSON records. Defaults to stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// Logger writes one JSON object per record.
type Logger struct {
	module string
	refs   References
	slog   *slog.Logger
}

// New creates a Logger for the named module.
func New(module string, refs References, opts ...Option) *Logger {
	o := options{level: slog.LevelInfo, writer: os.Stdout}
	for _, fn := range opts {
		fn(&o)
	}
	if refs == nil {
		refs = References{}
	}

	handler := slog.NewJSONHandler(o.writer, &slog.HandlerOptions{
		Level:       o.level,
		ReplaceAttr: replaceAttr,
	})

	return &Logger{
		module: module,
		refs:   refs,
		slog:   slog.New(handler).With(keyModule, module),
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return New("", nil, WithWriter(io.Discard))
}

// Module returns the module name stamped on every record.
func (l *Logger) Module() string {
	return l.module
}

func (l *Logger) Debug(ref string, fields Fields) {
	l.log(slog.LevelDebug, ref, fields)
}

func (l *Logger) Info(ref string, fields Fields) {
	l.log(slog.LevelInfo, ref, fields)
}

func (l *Logger) Warn(ref string, fields Fields) {
	l.log(slog.LevelWarn, ref, fields)
}

func (l *Logger) Error(ref string, fields Fields) {
	l.log(slog.LevelError, ref, fields)
}

// Message resolves the registered message for a reference.
func (l *Logger) Message(ref string) string {
	if msg, ok := l.refs[ref]; ok && msg != "" {
		return msg
	}
	return MessageNotFound
}

func (l *Logger) log(level slog.Level, ref string, fields Fields) {
	ctx := context.Background()
	if !l.slog.Enabled(ctx, level) {
		return
	}
	args := []any{keyLogReference, ref, keyLogEventID, uuid.NewString()}
	args = append(args, l.cleanFields(fields)...)
	l.slog.Log(ctx, level, l.Message(ref), args...)
}

// cleanFields drops reserved keys and flattens the rest in key order.
// The caller's map is never modified.
func (l *Logger) cleanFields(fields Fields) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if isReserved(k) {
			l.slog.Warn(fmt.Sprintf("%q cannot be used in log arguments because it is reserved by the logger", k),
				keyLogReference, "LOGGER002",
				keyLogEventID, uuid.NewString())
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, fieldTag+k, fields[k])
	}
	return args
}

func isReserved(key string) bool {
	for _, r := range ReservedFields {
		if key == r {
			return true
		}
	}
	return false
}

// replaceAttr renames slog's built-in keys to the record layout consumers
// index on: epoch-millisecond timestamp, lowercase level, "message".
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	if key, ok := strings.CutPrefix(a.Key, fieldTag); ok {
		a.Key = key
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		if a.Value.Kind() != slog.KindTime {
			return a
		}
		return slog.Int64(keyTimestamp, a.Value.Time().UnixMilli())
	case slog.LevelKey:
		level, _ := a.Value.Any().(slog.Level)
		return slog.String(keyLevel, strings.ToLower(level.String()))
	case slog.MessageKey:
		return slog.String(keyMessage, a.Value.String())
	}
	return a
}

// ParseLevel maps debug, info, warn and error (any case) to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}
