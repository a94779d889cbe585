package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engagement"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/payload"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/policy"
)

// DefaultSinkTimeout bounds each asynchronous sink call.
const DefaultSinkTimeout = 10 * time.Second

// Sink receives every decision once its response has been produced.
// Sinks run off the decision path; their errors are logged and dropped.
type Sink interface {
	Name() string
	Record(ctx context.Context, d Decision) error
}

// Engine turns observations into decisions. It owns all adaptive state and
// is safe for concurrent use.
type Engine struct {
	classifier *detection.PatternClassifier
	frequency  *detection.FrequencyClassifier
	tracker    *engagement.Tracker
	agent      *policy.Agent
	generator  *payload.Generator
	history    *History

	sinks       []Sink
	sinkTimeout time.Duration
	sinkWG      sync.WaitGroup

	now   func() time.Time
	newID func() string

	totalsMu sync.Mutex
	totals   map[detection.Severity]int
}

// Option configures an Engine.
type Option func(*Engine)

func WithClassifier(c *detection.PatternClassifier) Option {
	return func(e *Engine) { e.classifier = c }
}

func WithFrequencyClassifier(f *detection.FrequencyClassifier) Option {
	return func(e *Engine) { e.frequency = f }
}

func WithTracker(t *engagement.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

func WithAgent(a *policy.Agent) Option {
	return func(e *Engine) { e.agent = a }
}

func WithGenerator(g *payload.Generator) Option {
	return func(e *Engine) { e.generator = g }
}

func WithHistoryCapacity(n int) Option {
	return func(e *Engine) { e.history = NewHistory(n) }
}

// WithSinks appends decision sinks (persistence, alerting, metrics).
func WithSinks(sinks ...Sink) Option {
	return func(e *Engine) {
		for _, s := range sinks {
			if s != nil {
				e.sinks = append(e.sinks, s)
			}
		}
	}
}

func WithSinkTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.sinkTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New builds an engine; components not supplied get their defaults.
func New(opts ...Option) *Engine {
	e := &Engine{
		sinkTimeout: DefaultSinkTimeout,
		now:         time.Now,
		newID:       uuid.NewString,
		totals:      make(map[detection.Severity]int, len(detection.Severities)),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.classifier == nil {
		e.classifier = detection.NewPatternClassifier(nil)
	}
	if e.frequency == nil {
		e.frequency = detection.NewFrequencyClassifier()
	}
	if e.tracker == nil {
		e.tracker = engagement.NewTracker(engagement.DefaultEngagedAfter)
	}
	if e.agent == nil {
		e.agent = policy.NewAgent(nil)
	}
	if e.generator == nil {
		e.generator = payload.NewGenerator()
	}
	if e.history == nil {
		e.history = NewHistory(DefaultHistoryCapacity)
	}
	return e
}

// Process classifies obs, stalls for the chosen delay and returns the
// decision. It never fails: missing fields are treated as empty and sink
// failures never reach the caller.
func (e *Engine) Process(obs detection.Observation) Decision {
	if obs.Arrival.IsZero() {
		obs.Arrival = e.now()
	}

	count := e.tracker.Touch(obs.Source())
	rule := e.classifier.Classify(obs)
	freq := e.frequency.ClassifyAndObserve(obs.Path)
	rec := e.agent.Decide(obs.Path, count)

	outcome := Arbitrate(Verdicts{
		Rule:      rule.Severity,
		Frequency: freq.Severity,
		Policy:    rec.Severity(),
	})

	// No engine lock is held here; the stall only blocks this caller.
	resp := e.generator.Respond(outcome.Final)

	d := Decision{
		ID:          e.newID(),
		Timestamp:   e.now(),
		Observation: obs,
		Rule:        rule,
		Frequency:   freq,
		Policy:      rec,
		AISeverity:  outcome.AI,
		Final:       outcome.Final,
		Engagement:  count,
		Response:    resp,
	}

	e.history.Append(d)
	e.countFinal(d.Final)

	logging.Attack(d.Source(), obs.Method, obs.Path, rule.Label,
		fmt.Sprintf("rule=%s freq=%s policy=%s(%s) final=%s status=%d delay=%s",
			rule.Severity, freq.Severity, rec.Severity(), rec.Key, d.Final, resp.StatusCode, resp.Delay))

	e.dispatch(d)
	return d
}

func (e *Engine) dispatch(d Decision) {
	for _, sink := range e.sinks {
		e.sinkWG.Add(1)
		go func(s Sink) {
			defer e.sinkWG.Done()
			ctx, cancel := context.WithTimeout(context.Background(), e.sinkTimeout)
			defer cancel()
			if err := s.Record(ctx, d); err != nil {
				logging.Error("[Engine] Sink %s failed for decision %s: %v", s.Name(), d.ID, err)
			}
		}(sink)
	}
}

// Wait blocks until all in-flight sink calls have returned.
func (e *Engine) Wait() {
	e.sinkWG.Wait()
}

func (e *Engine) countFinal(s detection.Severity) {
	e.totalsMu.Lock()
	e.totals[s]++
	e.totalsMu.Unlock()
}

// History exposes the bounded decision history.
func (e *Engine) History() *History {
	return e.history
}

// Agent exposes the policy agent, e.g. for table hot-reload.
func (e *Engine) Agent() *policy.Agent {
	return e.agent
}

// LearnedPaths is the number of distinct paths the frequency classifier knows.
func (e *Engine) LearnedPaths() int {
	return e.frequency.LearnedPaths()
}

// TrackedSources is the number of distinct source identities seen.
func (e *Engine) TrackedSources() int {
	return e.tracker.Len()
}

// EngagedSources is the number of sources past the NEW threshold.
func (e *Engine) EngagedSources() int {
	return e.tracker.Engaged()
}

// ResetLearning clears the frequency classifier. Engagement counts and
// history are kept.
func (e *Engine) ResetLearning() int {
	n := e.frequency.LearnedPaths()
	e.frequency.Reset()
	logging.Info("[Engine] Frequency learning reset, %d paths forgotten", n)
	return n
}
