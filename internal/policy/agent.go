package policy

import (
	"math/rand/v2"
	"sync"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engagement"
)

// DefaultEpsilon is the exploration rate.
const DefaultEpsilon = 0.1

// Recommendation is the agent's pick for one observation.
type Recommendation struct {
	State  State  `json:"-"`
	Key    string `json:"state"`
	Action Action `json:"-"`
	// Heuristic is true when the pick came from the bucket fallback rather
	// than the table, either by exploration or because the state was missing.
	Heuristic bool `json:"heuristic"`
}

// Severity is the threat level the recommendation enacts.
func (r Recommendation) Severity() detection.Severity {
	return r.Action.Severity
}

// Agent picks an action for a policy state from an action-value table.
type Agent struct {
	mu           sync.RWMutex
	table        Table
	epsilon      float64
	engagedAfter int
	rnd          func() float64
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithEpsilon sets the exploration rate; values outside [0,1] are ignored.
func WithEpsilon(eps float64) AgentOption {
	return func(a *Agent) {
		if eps >= 0 && eps <= 1 {
			a.epsilon = eps
		}
	}
}

// WithRand replaces the uniform [0,1) source used for exploration.
func WithRand(rnd func() float64) AgentOption {
	return func(a *Agent) {
		if rnd != nil {
			a.rnd = rnd
		}
	}
}

// WithEngagedAfter sets the NEW/ENGAGED threshold used for state keys.
func WithEngagedAfter(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.engagedAfter = n
		}
	}
}

// NewAgent returns an agent over table, or over DefaultTable when table is empty.
func NewAgent(table Table, opts ...AgentOption) *Agent {
	if len(table) == 0 {
		table = DefaultTable()
	}
	a := &Agent{
		table:        table.Clone(),
		epsilon:      DefaultEpsilon,
		engagedAfter: engagement.DefaultEngagedAfter,
		rnd:          rand.Float64,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StateFor buckets a path and an engagement count into a State.
func (a *Agent) StateFor(path string, engagementCount int) State {
	return State{
		Bucket:     BucketPath(path),
		Engagement: engagement.BucketFor(engagementCount, a.engagedAfter),
	}
}

// Decide buckets the observation and selects an action for its state.
func (a *Agent) Decide(path string, engagementCount int) Recommendation {
	state := a.StateFor(path, engagementCount)
	idx, heuristic := a.choose(state)
	return Recommendation{
		State:     state,
		Key:       state.Key(),
		Action:    Actions[idx],
		Heuristic: heuristic,
	}
}

// choose explores with probability epsilon or when the state is unknown,
// returning the action equal to the bucket. Otherwise it takes the argmax
// of the row, lowest index on ties.
func (a *Agent) choose(state State) (int, bool) {
	a.mu.RLock()
	row, ok := a.table[state.Key()]
	a.mu.RUnlock()

	if !ok || a.rnd() < a.epsilon {
		return int(state.Bucket), true
	}
	return argmax(row), false
}

// SetTable swaps the table used for future decisions.
func (a *Agent) SetTable(t Table) {
	if len(t) == 0 {
		t = DefaultTable()
	}
	t = t.Clone()
	a.mu.Lock()
	a.table = t
	a.mu.Unlock()
}

// Table returns a copy of the current table.
func (a *Agent) Table() Table {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.table.Clone()
}

func argmax(row Row) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}
