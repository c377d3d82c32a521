package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationLevel grades a notice shown to the user
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is a non-fatal notice, typically from a background task
type Notification struct {
	ID        string            `json:"id"`
	Level     NotificationLevel `json:"level"`
	Source    string            `json:"source"`
	NodeID    string            `json:"node_id,omitempty"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}

const defaultNotificationCapacity = 100

// Notifier keeps the most recent notifications in a bounded ring
type Notifier struct {
	mu       sync.Mutex
	items    []Notification
	next     int
	full     bool
	logger   *zap.Logger
	observer func(Notification)
}

// NewNotifier creates a notifier holding up to capacity notices
func NewNotifier(capacity int, logger *zap.Logger) *Notifier {
	if capacity <= 0 {
		capacity = defaultNotificationCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{items: make([]Notification, capacity), logger: logger}
}

// OnNotify installs a callback invoked for every new notification
func (n *Notifier) OnNotify(fn func(Notification)) {
	n.mu.Lock()
	n.observer = fn
	n.mu.Unlock()
}

// Notify records a notice and logs it
func (n *Notifier) Notify(level NotificationLevel, source, nodeID, message string) Notification {
	note := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Source:    source,
		NodeID:    nodeID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	n.mu.Lock()
	n.items[n.next] = note
	n.next = (n.next + 1) % len(n.items)
	if n.next == 0 {
		n.full = true
	}
	observer := n.observer
	n.mu.Unlock()

	fields := []zap.Field{zap.String("source", source), zap.String("message", message)}
	if nodeID != "" {
		fields = append(fields, zap.String("nodeID", nodeID))
	}
	switch level {
	case LevelError:
		n.logger.Error("Notification", fields...)
	case LevelWarning:
		n.logger.Warn("Notification", fields...)
	default:
		n.logger.Info("Notification", fields...)
	}

	if observer != nil {
		observer(note)
	}
	return note
}

// Recent returns up to limit notifications, newest first. limit <= 0 means all.
func (n *Notifier) Recent(limit int) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := n.next
	if n.full {
		count = len(n.items)
	}
	if limit <= 0 || limit > count {
		limit = count
	}
	out := make([]Notification, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (n.next - 1 - i + len(n.items)) % len(n.items)
		out = append(out, n.items[idx])
	}
	return out
}
