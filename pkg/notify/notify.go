// Package notify carries collaborator failures to the user as transient
// notifications. The chat host renders them as toasts; in this process they
// are logged and kept in a small buffer the HTTP bridge serves.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one transient message for the user.
type Notification struct {
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier delivers notifications. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}

// Buffer logs notifications and keeps the most recent ones in memory.
type Buffer struct {
	mu     sync.Mutex
	items  []Notification
	limit  int
	logger *slog.Logger
}

// NewBuffer returns a Buffer holding at most limit notifications.
func NewBuffer(limit int, logger *slog.Logger) *Buffer {
	if limit <= 0 {
		limit = 50
	}
	return &Buffer{limit: limit, logger: logger}
}

// Notify logs n and appends it, evicting the oldest entry when full.
func (b *Buffer) Notify(ctx context.Context, n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}

	if b.logger != nil {
		b.logger.Log(ctx, slogLevel(n.Level), n.Title, "message", n.Message)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, n)
	if len(b.items) > b.limit {
		b.items = b.items[len(b.items)-b.limit:]
	}
}

// Drain returns the buffered notifications and clears the buffer.
func (b *Buffer) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.items
	b.items = nil
	return out
}

// Len returns the number of buffered notifications.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.items)
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
