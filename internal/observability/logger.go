package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

type ctxKey string

const ctxKeyView ctxKey = "view"

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
)

// Logger returns the process logger. It discards output until Init or SetOutput runs.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init points the logger at a JSON log file, creating parent directories as needed.
// The returned closer must be called on shutdown.
func Init(path string, level slog.Level) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	SetOutput(file, level)
	return file, nil
}

// SetOutput replaces the logger with a JSON handler writing to w.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return Logger().With(kv...)
}

// WithView stores the active view name in the context.
func WithView(ctx context.Context, view string) context.Context {
	return context.WithValue(ctx, ctxKeyView, view)
}

// LoggerFromContext adds the view name if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	view, _ := ctx.Value(ctxKeyView).(string)
	if view == "" {
		return Logger()
	}
	return Logger().With("view", view)
}
