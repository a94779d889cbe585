package engine

import (
	"time"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/payload"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/policy"
)

// Decision is the complete, immutable record of one processed observation.
type Decision struct {
	ID          string                     `json:"id"`
	Timestamp   time.Time                  `json:"timestamp"`
	Observation detection.Observation      `json:"observation"`
	Rule        detection.RuleVerdict      `json:"rule_verdict"`
	Frequency   detection.FrequencyVerdict `json:"frequency_verdict"`
	Policy      policy.Recommendation      `json:"policy"`
	AISeverity  detection.Severity         `json:"ai_severity"`
	Final       detection.Severity         `json:"final_severity"`
	Engagement  int                        `json:"engagement_count"`
	Response    payload.PayloadResponse    `json:"response"`
}

// Metadata is the flattened decision summary handed to the HTTP layer,
// persistence and alerting.
type Metadata struct {
	ID                   string   `json:"id"`
	Timestamp            string   `json:"timestamp"`
	SourceIP             string   `json:"source_ip"`
	Method               string   `json:"method"`
	Path                 string   `json:"path"`
	UserAgent            string   `json:"user_agent,omitempty"`
	AttackType           string   `json:"attack_type"`
	MatchedCategories    []string `json:"matched_categories"`
	Confidence           float64  `json:"confidence"`
	RuleRecommendation   string   `json:"rule_recommendation"`
	FreqRecommendation   string   `json:"frequency_recommendation"`
	AIRecommendation     string   `json:"ai_recommendation"`
	PolicyRecommendation string   `json:"policy_recommendation"`
	State                string   `json:"state"`
	FinalDecision        string   `json:"final_decision"`
	EngagementCount      int      `json:"engagement_count"`
	StatusCode           int      `json:"status_code"`
	DelaySeconds         float64  `json:"delay_seconds"`
	ResponseBody         string   `json:"response_body"`
}

// Source is the observation's source identity.
func (d Decision) Source() string {
	return d.Observation.Source()
}

// Metadata flattens d for logging and reporting.
func (d Decision) Metadata() Metadata {
	categories := d.Rule.Categories
	if categories == nil {
		categories = []string{}
	}
	return Metadata{
		ID:                   d.ID,
		Timestamp:            d.Timestamp.UTC().Format(time.RFC3339),
		SourceIP:             d.Source(),
		Method:               d.Observation.Method,
		Path:                 d.Observation.Path,
		UserAgent:            d.Observation.UserAgent,
		AttackType:           d.Rule.Label,
		MatchedCategories:    categories,
		Confidence:           d.Rule.Confidence,
		RuleRecommendation:   d.Rule.Severity.String(),
		FreqRecommendation:   d.Frequency.Severity.String(),
		AIRecommendation:     d.AISeverity.String(),
		PolicyRecommendation: d.Policy.Severity().String(),
		State:                d.Policy.Key,
		FinalDecision:        d.Final.String(),
		EngagementCount:      d.Engagement,
		StatusCode:           d.Response.StatusCode,
		DelaySeconds:         d.Response.Delay.Seconds(),
		ResponseBody:         d.Response.Body,
	}
}
