package engine

import "github.com/0tSystemsPublicRepos/honeycomb/internal/detection"

// Verdicts are the three independent recommendations for one observation.
type Verdicts struct {
	Rule      detection.Severity
	Frequency detection.Severity
	Policy    detection.Severity
}

// Outcome is the reconciled verdict. AI combines the two classifiers; Final
// folds in the policy recommendation.
type Outcome struct {
	AI    detection.Severity
	Final detection.Severity
}

// Arbitrate applies "most severe wins" in two stages.
func Arbitrate(v Verdicts) Outcome {
	ai := detection.MaxSeverity(v.Rule, v.Frequency)
	return Outcome{
		AI:    ai,
		Final: detection.MaxSeverity(ai, v.Policy),
	}
}
