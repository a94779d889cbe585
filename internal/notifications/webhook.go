package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/config"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
)

// WebhookPayload is the JSON document POSTed to the webhook endpoint.
type WebhookPayload struct {
	Event        string        `json:"event"`
	Notification *Notification `json:"decision"`
}

type WebhookProvider struct {
	config *config.WebhookConfig
	client *http.Client
}

func NewWebhookProvider(cfg *config.WebhookConfig) *WebhookProvider {
	return &WebhookProvider{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (wp *WebhookProvider) Name() string {
	return "webhook"
}

func (wp *WebhookProvider) IsEnabled() bool {
	return wp.config.Enabled && wp.config.URL != ""
}

// Send POSTs the notification, retrying up to RetryCount attempts.
func (wp *WebhookProvider) Send(ctx context.Context, notification *Notification) error {
	if !wp.IsEnabled() {
		return nil
	}

	payloadJSON, err := json.Marshal(WebhookPayload{Event: "deception_decision", Notification: notification})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	attempts := wp.config.RetryCount
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(wp.config.RetryDelaySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = wp.sendWebhookRequest(ctx, payloadJSON)
		if lastErr == nil {
			logging.Info("[WEBHOOK] Delivered %s alert for %s", notification.ThreatLevel, notification.SourceIP)
			return nil
		}

		logging.Warn("[WEBHOOK] Attempt %d/%d failed: %v", attempt, attempts, lastErr)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook cancelled after %d attempt(s): %w", attempt, ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", attempts, lastErr)
}

func (wp *WebhookProvider) sendWebhookRequest(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wp.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Honeycomb-Webhook/1.0")
	for k, v := range wp.config.Headers {
		req.Header.Set(k, v)
	}
	if wp.config.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+wp.config.BearerToken)
	}

	resp, err := wp.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}
