package database

import (
	"context"
	"fmt"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
)

// DecisionSink persists engine decisions through a DatabaseProvider.
type DecisionSink struct {
	provider DatabaseProvider
}

func NewDecisionSink(provider DatabaseProvider) *DecisionSink {
	return &DecisionSink{provider: provider}
}

func (s *DecisionSink) Name() string {
	return "database"
}

// Record stores the decision and updates the attacker and path aggregates.
func (s *DecisionSink) Record(ctx context.Context, d engine.Decision) error {
	rec := RecordFromDecision(d)

	if err := s.provider.StoreDecision(ctx, rec); err != nil {
		return fmt.Errorf("store decision: %w", err)
	}
	if err := s.provider.UpdateAttackerProfile(ctx, rec); err != nil {
		return fmt.Errorf("update attacker profile: %w", err)
	}
	if err := s.provider.RecordPathHit(ctx, rec); err != nil {
		return fmt.Errorf("record path hit: %w", err)
	}
	return nil
}

// RecordFromDecision flattens an engine decision into its stored form.
func RecordFromDecision(d engine.Decision) DecisionRecord {
	return DecisionRecord{
		ID:                d.ID,
		Timestamp:         d.Timestamp,
		SourceIP:          d.Source(),
		Method:            d.Observation.Method,
		Path:              d.Observation.Path,
		UserAgent:         d.Observation.UserAgent,
		AttackType:        d.Rule.Label,
		Categories:        d.Rule.Categories,
		Confidence:        d.Rule.Confidence,
		RuleSeverity:      d.Rule.Severity.String(),
		FrequencySeverity: d.Frequency.Severity.String(),
		PolicySeverity:    d.Policy.Severity().String(),
		FinalSeverity:     d.Final.String(),
		State:             d.Policy.Key,
		EngagementCount:   d.Engagement,
		StatusCode:        d.Response.StatusCode,
		DelaySeconds:      d.Response.Delay.Seconds(),
		ResponseBody:      d.Response.Body,
	}
}
