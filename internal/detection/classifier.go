package detection

import "math"

// NormalTrafficLabel is reported when no signature matches.
const NormalTrafficLabel = "Normal Traffic"

// RuleVerdict is the outcome of signature matching for one observation.
type RuleVerdict struct {
	Severity   Severity `json:"severity"`
	Categories []string `json:"matched_categories"`
	Label      string   `json:"attack_type"`
	Confidence float64  `json:"confidence"`
	Signature  string   `json:"signature,omitempty"`
}

// Matched reports whether any signature fired.
func (v RuleVerdict) Matched() bool {
	return len(v.Categories) > 0
}

// PatternClassifier matches observations against a Taxonomy. It holds no
// mutable state and is safe for concurrent use.
type PatternClassifier struct {
	taxonomy *Taxonomy
}

func NewPatternClassifier(taxonomy *Taxonomy) *PatternClassifier {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &PatternClassifier{taxonomy: taxonomy}
}

// Classify returns the verdict of the highest-confidence signature match.
// Path, user agent and body are checked separately so a match may come from
// any of them. Ties keep the match found first in catalog order.
func (pc *PatternClassifier) Classify(obs Observation) RuleVerdict {
	verdict := RuleVerdict{
		Severity: SeverityLow,
		Label:    NormalTrafficLabel,
	}

	fields := []string{obs.Path, obs.UserAgent, obs.Body}
	best := 0.0

	for _, category := range pc.taxonomy.categories {
		categoryMatched := false
		for _, sig := range category.Signatures {
			if !matchesAny(sig, fields) {
				continue
			}
			if !categoryMatched {
				verdict.Categories = append(verdict.Categories, category.ID)
				categoryMatched = true
			}

			confidence := SignatureConfidence(sig.Source)
			if confidence > best {
				best = confidence
				verdict.Severity = category.Severity
				verdict.Label = category.Label
				verdict.Confidence = confidence
				verdict.Signature = sig.Source
			}
		}
	}

	return verdict
}

// SignatureConfidence scores a match by the length of its pattern source,
// one tenth per character, capped at 1.0.
func SignatureConfidence(source string) float64 {
	return math.Min(1.0, float64(len(source))/10)
}

func matchesAny(sig Signature, fields []string) bool {
	for _, field := range fields {
		if field != "" && sig.Pattern.MatchString(field) {
			return true
		}
	}
	return false
}
