package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
)

const namespace = "honeycomb"

// Collector owns a private registry with the decision metrics. It is also an
// engine.Sink so every decision is counted off the response path.
type Collector struct {
	registry *prometheus.Registry

	decisionsTotal      *prometheus.CounterVec
	rulePolicyDisagrees prometheus.Counter
	responseDelay       prometheus.Histogram
}

// StateSource exposes the engine's learned state for gauges.
type StateSource interface {
	LearnedPaths() int
	EngagedSources() int
}

// New registers the decision collectors plus the Go runtime collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Decisions by final severity",
			},
			[]string{"severity"},
		),
		rulePolicyDisagrees: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_policy_disagreements_total",
				Help:      "Decisions where rule and policy recommendations differed",
			},
		),
		responseDelay: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_delay_seconds",
				Help:      "Deliberate stall applied to deceptive responses",
				Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13},
			},
		),
	}

	c.registry.MustRegister(
		c.decisionsTotal,
		c.rulePolicyDisagrees,
		c.responseDelay,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Pre-create every severity series so dashboards see zeros.
	for _, s := range detection.Severities {
		c.decisionsTotal.WithLabelValues(s.String())
	}

	return c
}

// TrackState registers learned-path and engaged-source gauges that read
// from state at scrape time. Call it once, after the engine exists.
func (c *Collector) TrackState(state StateSource) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "learned_paths",
				Help:      "Distinct paths learned by the frequency classifier",
			},
			func() float64 { return float64(state.LearnedPaths()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "engaged_sources",
				Help:      "Sources past the engagement threshold",
			},
			func() float64 { return float64(state.EngagedSources()) },
		),
	)
}

func (c *Collector) Name() string {
	return "metrics"
}

// Record counts one decision.
func (c *Collector) Record(_ context.Context, d engine.Decision) error {
	c.decisionsTotal.WithLabelValues(d.Final.String()).Inc()
	if d.Rule.Severity != d.Policy.Severity() {
		c.rulePolicyDisagrees.Inc()
	}
	c.responseDelay.Observe(d.Response.Delay.Seconds())
	return nil
}

// Registry returns the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
