// Package notify delivers user-facing notices, such as a failed write, to
// whatever surface is showing the log store: a terminal, a log stream or a
// test recorder.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one message for the user.
type Notice struct {
	Level   Level
	Message string
}

// Notifier receives notices. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Errorf builds an error-level notice.
func Errorf(format string, args ...any) Notice {
	return Notice{Level: LevelError, Message: fmt.Sprintf(format, args...)}
}

// Nop discards every notice.
type Nop struct{}

func (Nop) Notify(context.Context, Notice) {}

// Log forwards notices to a structured logger.
type Log struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l Log) Notify(ctx context.Context, n Notice) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch n.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	logger.Log(ctx, level, "notice", "message", n.Message)
}

// Writer prints notices as lines, e.g. to stderr for the CLI.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a notifier printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Notify implements Notifier.
func (w *Writer) Notify(_ context.Context, n Notice) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, "[%s] %s\n", n.Level, n.Message)
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, target := range m {
		target.Notify(ctx, n)
	}
}
