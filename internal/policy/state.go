package policy

import (
	"fmt"
	"strings"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engagement"
)

// State is the coarse (path threat, engagement) key into the action-value table.
type State struct {
	Bucket     detection.Severity
	Engagement engagement.Bucket
}

// Key renders the state as "{BUCKET}_{ENGAGEMENT}", e.g. "HIGH_NEW".
func (s State) Key() string {
	return s.Bucket.String() + "_" + string(s.Engagement)
}

func (s State) String() string {
	return s.Key()
}

// ParseStateKey is the inverse of State.Key.
func ParseStateKey(key string) (State, error) {
	bucket, eng, ok := strings.Cut(key, "_")
	if !ok {
		return State{}, fmt.Errorf("state key %q: missing engagement suffix", key)
	}
	severity, err := detection.ParseSeverity(bucket)
	if err != nil || strings.ToUpper(bucket) != bucket {
		return State{}, fmt.Errorf("state key %q: bad threat bucket", key)
	}
	e, ok := engagement.ParseBucket(eng)
	if !ok {
		return State{}, fmt.Errorf("state key %q: bad engagement bucket", key)
	}
	return State{Bucket: severity, Engagement: e}, nil
}

// AllStates enumerates the eight possible states in table order.
func AllStates() []State {
	states := make([]State, 0, len(detection.Severities)*2)
	for _, s := range detection.Severities {
		states = append(states,
			State{Bucket: s, Engagement: engagement.BucketNew},
			State{Bucket: s, Engagement: engagement.BucketEngaged},
		)
	}
	return states
}
