// Package notify delivers reminder messages to chat-linked profiles.
package notify

import (
	"context"

	"github.com/vytor/linguatrack/internal/logger"
)

// Notifier sends a text message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// LogNotifier only logs messages. It is used when no webhook is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	logger.FromContext(ctx).WithPrefix("notify").WithField("chat_id", chatID).Info("reminder: %s", text)
	return nil
}

// New returns a WebhookNotifier for url, or a LogNotifier when url is empty.
func New(url string) Notifier {
	if url == "" {
		return LogNotifier{}
	}
	return NewWebhook(url)
}

var (
	_ Notifier = LogNotifier{}
	_ Notifier = (*WebhookNotifier)(nil)
)
