package engine

import "github.com/0tSystemsPublicRepos/honeycomb/internal/detection"

// NoAttackLabel is reported as the most common attack when history is empty.
const NoAttackLabel = "None"

// Stats summarises recent decisions for the metrics endpoint and CLI.
type Stats struct {
	TotalAttacks               int            `json:"total_attacks"`
	TotalDecisions             int            `json:"total_decisions"`
	ThreatDistribution         map[string]int `json:"threat_distribution"`
	LifetimeDistribution       map[string]int `json:"lifetime_distribution"`
	MostCommonAttack           string         `json:"most_common_attack"`
	RulePolicyDisagreements    int            `json:"rule_policy_disagreements"`
	RuleFrequencyDisagreements int            `json:"rule_frequency_disagreements"`
	LearnedPaths               int            `json:"learned_paths"`
	TrackedSources             int            `json:"tracked_sources"`
	EngagedSources             int            `json:"engaged_sources"`
}

// Stats computes distribution and disagreement counts over the decision
// history, plus lifetime totals and learner sizes.
func (e *Engine) Stats() Stats {
	st := ComputeStats(e.history.Recent(0))

	e.totalsMu.Lock()
	for _, s := range detection.Severities {
		st.LifetimeDistribution[s.String()] = e.totals[s]
		st.TotalDecisions += e.totals[s]
	}
	e.totalsMu.Unlock()

	st.LearnedPaths = e.LearnedPaths()
	st.TrackedSources = e.TrackedSources()
	st.EngagedSources = e.EngagedSources()
	return st
}

// ComputeStats derives the history-based parts of Stats from decisions in
// arrival order.
func ComputeStats(decisions []Decision) Stats {
	st := Stats{
		TotalAttacks:         len(decisions),
		ThreatDistribution:   make(map[string]int, len(detection.Severities)),
		LifetimeDistribution: make(map[string]int, len(detection.Severities)),
		MostCommonAttack:     NoAttackLabel,
	}
	for _, s := range detection.Severities {
		st.ThreatDistribution[s.String()] = 0
		st.LifetimeDistribution[s.String()] = 0
	}

	labelCounts := make(map[string]int)
	best := 0
	for _, d := range decisions {
		st.ThreatDistribution[d.Final.String()]++

		if d.Rule.Severity != d.Policy.Severity() {
			st.RulePolicyDisagreements++
		}
		if d.Rule.Severity != d.Frequency.Severity {
			st.RuleFrequencyDisagreements++
		}

		// The first label to reach a new maximum keeps the title on ties.
		labelCounts[d.Rule.Label]++
		if c := labelCounts[d.Rule.Label]; c > best {
			best = c
			st.MostCommonAttack = d.Rule.Label
		}
	}
	return st
}
