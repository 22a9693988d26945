package engine

import (
	"context"
	"log/slog"
)

// Notification is a fire-and-forget message to a team member.
type Notification struct {
	Kind      string `json:"kind"`
	TaskID    string `json:"task_id"`
	Recipient string `json:"recipient"`
	Actor     string `json:"actor"`
	Message   string `json:"message"`
}

// Notifier dispatches notifications. Errors are reported to the caller as
// warnings and never fail the operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogNotifier writes notifications to a structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs n at Info level.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"kind", n.Kind,
		"task", n.TaskID,
		"recipient", n.Recipient,
		"actor", n.Actor,
		"message", n.Message,
	)
	return nil
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(context.Context, Notification) error {
	return nil
}
