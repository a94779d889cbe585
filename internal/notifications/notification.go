package notifications

import (
	"context"
	"time"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
)

// Notification is the alert body shared by every provider.
type Notification struct {
	DecisionID      string    `json:"decision_id"`
	Timestamp       time.Time `json:"timestamp"`
	SourceIP        string    `json:"source_ip"`
	Method          string    `json:"method"`
	Path            string    `json:"path"`
	UserAgent       string    `json:"user_agent,omitempty"`
	AttackType      string    `json:"attack_type"`
	Categories      []string  `json:"matched_categories"`
	ThreatLevel     string    `json:"threat_level"`
	RuleSeverity    string    `json:"rule_severity"`
	PolicySeverity  string    `json:"policy_severity"`
	State           string    `json:"state"`
	EngagementCount int       `json:"engagement_count"`
	StatusCode      int       `json:"status_code"`
}

// NotificationProvider delivers a notification to one destination.
type NotificationProvider interface {
	Name() string
	IsEnabled() bool
	Send(ctx context.Context, notification *Notification) error
}

// FromDecision builds the alert for d.
func FromDecision(d engine.Decision) *Notification {
	categories := d.Rule.Categories
	if categories == nil {
		categories = []string{}
	}
	return &Notification{
		DecisionID:      d.ID,
		Timestamp:       d.Timestamp,
		SourceIP:        d.Source(),
		Method:          d.Observation.Method,
		Path:            d.Observation.Path,
		UserAgent:       d.Observation.UserAgent,
		AttackType:      d.Rule.Label,
		Categories:      categories,
		ThreatLevel:     d.Final.String(),
		RuleSeverity:    d.Rule.Severity.String(),
		PolicySeverity:  d.Policy.Severity().String(),
		State:           d.Policy.Key,
		EngagementCount: d.Engagement,
		StatusCode:      d.Response.StatusCode,
	}
}
