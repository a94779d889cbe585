package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/config"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
)

type SlackProvider struct {
	config *config.SlackConfig
	client *http.Client
}

func NewSlackProvider(cfg *config.SlackConfig) *SlackProvider {
	return &SlackProvider{
		config: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (sp *SlackProvider) Name() string {
	return "slack"
}

func (sp *SlackProvider) IsEnabled() bool {
	return sp.config.Enabled && sp.config.WebhookURL != "" && !strings.HasPrefix(sp.config.WebhookURL, "${")
}

// Send posts an incoming-webhook message to Slack.
func (sp *SlackProvider) Send(ctx context.Context, notification *Notification) error {
	if !sp.IsEnabled() {
		return nil
	}

	if err := sp.sendToSlack(ctx, sp.buildSlackPayload(notification)); err != nil {
		return err
	}

	logging.Info("[SLACK] Message sent (threat: %s from %s)", notification.ThreatLevel, notification.SourceIP)
	return nil
}

func (sp *SlackProvider) sendToSlack(ctx context.Context, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sp.config.WebhookURL, bytes.NewReader(payloadJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Honeycomb/1.0")

	resp, err := sp.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}

func (sp *SlackProvider) buildSlackPayload(n *Notification) map[string]interface{} {
	color := "#00aa00"
	emoji := ":green_circle:"
	switch n.ThreatLevel {
	case "CRITICAL":
		color = "#ff0000"
		emoji = ":rotating_light:"
	case "HIGH":
		color = "#ff6600"
		emoji = ":warning:"
	case "MEDIUM":
		color = "#ffaa00"
		emoji = ":warning:"
	}

	fields := []map[string]interface{}{
		{"title": "Threat Level", "value": fmt.Sprintf("%s %s", emoji, n.ThreatLevel), "short": true},
		{"title": "Attack Type", "value": n.AttackType, "short": true},
		{"title": "Source IP", "value": fmt.Sprintf("`%s`", n.SourceIP), "short": true},
		{"title": "Policy State", "value": n.State, "short": true},
		{"title": "HTTP Method", "value": n.Method, "short": true},
		{"title": "Engagement", "value": fmt.Sprintf("%d request(s)", n.EngagementCount), "short": true},
		{"title": "Target Path", "value": fmt.Sprintf("`%s`", n.Path), "short": false},
		{"title": "Timestamp", "value": n.Timestamp.Format("2006-01-02 15:04:05 MST"), "short": false},
	}

	if len(n.Categories) > 0 {
		fields = append(fields, map[string]interface{}{
			"title": "Matched Categories",
			"value": strings.Join(n.Categories, ", "),
			"short": false,
		})
	}

	attachment := map[string]interface{}{
		"fallback": fmt.Sprintf("Honeycomb alert: %s %s from %s", n.ThreatLevel, n.AttackType, n.SourceIP),
		"color":    color,
		"title":    fmt.Sprintf("%s Honeycomb Decision - %s", emoji, n.ThreatLevel),
		"fields":   fields,
		"ts":       n.Timestamp.Unix(),
	}

	return map[string]interface{}{
		"username":    "Honeycomb",
		"icon_emoji":  ":honey_pot:",
		"attachments": []map[string]interface{}{attachment},
	}
}
