package policy

import (
	"time"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
)

// Action is a threat level the honeypot can enact.
type Action struct {
	Severity   detection.Severity
	Delay      time.Duration
	StatusCode int
}

// NumActions is the width of every action-value row.
const NumActions = 4

// Actions is indexed 0..3 in severity order; table rows use the same order.
var Actions = [NumActions]Action{
	{Severity: detection.SeverityLow, Delay: 1 * time.Second, StatusCode: 200},
	{Severity: detection.SeverityMedium, Delay: 3 * time.Second, StatusCode: 404},
	{Severity: detection.SeverityHigh, Delay: 5 * time.Second, StatusCode: 403},
	{Severity: detection.SeverityCritical, Delay: 8 * time.Second, StatusCode: 500},
}

// ActionFor returns the action whose severity equals s.
func ActionFor(s detection.Severity) Action {
	if !s.Valid() {
		return Actions[0]
	}
	return Actions[int(s)]
}
