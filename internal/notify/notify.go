// Package notify delivers outbound messages to a Discord-style
// webhook. Delivery is best effort; the caller logs failures and the
// turn continues.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mirahq/mira-agent/internal/buildinfo"
	"github.com/mirahq/mira-agent/internal/config"
	"github.com/mirahq/mira-agent/internal/httpkit"
)

// Webhook posts messages to a single configured webhook URL.
type Webhook struct {
	url        string
	username   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhook creates a webhook notifier from configuration.
func NewWebhook(cfg config.WebhookConfig, logger *slog.Logger) *Webhook {
	return &Webhook{
		url:      cfg.URL,
		username: cfg.Username,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(15*time.Second),
			httpkit.WithUserAgent(buildinfo.UserAgent()),
			httpkit.WithRetry(2, time.Second),
		),
		logger: logger,
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *Webhook) Enabled() bool {
	return w.url != ""
}

// Send posts one message. Returns an error when no URL is configured
// or the endpoint does not accept the message.
func (w *Webhook) Send(ctx context.Context, message string) error {
	if !w.Enabled() {
		return fmt.Errorf("no webhook URL configured")
	}

	body, err := json.Marshal(map[string]string{
		"content":  message,
		"username": w.username,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	// Discord answers 204 on success; accept any 2xx.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody := httpkit.ReadErrorBody(resp.Body, 256)
		return fmt.Errorf("webhook error %d: %s", resp.StatusCode, errBody)
	}

	w.logger.Debug("webhook delivered", "bytes", len(message))
	return nil
}
