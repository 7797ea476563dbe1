package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/linguatrack/internal/logger"
)

const defaultTimeout = 10 * time.Second

// WebhookNotifier POSTs {"chat_id", "text"} as JSON to a bot gateway.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(n *WebhookNotifier) { n.httpClient = c }
}

func NewWebhook(url string, opts ...WebhookOption) *WebhookNotifier {
	n := &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type message struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	log := logger.FromContext(ctx).WithPrefix("notify").WithField("chat_id", chatID)
	start := time.Now()

	body, err := json.Marshal(message{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		log.Error("failed to create request: %v", err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := n.httpClient.Do(req)
	if err != nil {
		log.Error("failed to deliver message: %v", err)
		return err
	}
	defer resp.Body.Close()

	log.Debug("webhook response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error("webhook request failed: status=%d, body=%s", resp.StatusCode, string(respBody))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, string(respBody))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}
