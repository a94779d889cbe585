package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/payload"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/policy"
)

type fixedState struct{ learned, engaged int }

func (f fixedState) LearnedPaths() int   { return f.learned }
func (f fixedState) EngagedSources() int { return f.engaged }

func counterValue(t *testing.T, c *Collector, severity string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.decisionsTotal.WithLabelValues(severity).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordCountsDecisions(t *testing.T) {
	c := New()
	ctx := context.Background()

	high := engine.Decision{
		Rule:     detection.RuleVerdict{Severity: detection.SeverityHigh},
		Policy:   policy.Recommendation{Action: policy.ActionFor(detection.SeverityHigh)},
		Final:    detection.SeverityHigh,
		Response: payload.PayloadResponse{Delay: 5 * time.Second},
	}
	disagree := engine.Decision{
		Rule:     detection.RuleVerdict{Severity: detection.SeverityLow},
		Policy:   policy.Recommendation{Action: policy.ActionFor(detection.SeverityCritical)},
		Final:    detection.SeverityCritical,
		Response: payload.PayloadResponse{Delay: 8 * time.Second},
	}

	for _, d := range []engine.Decision{high, high, disagree} {
		if err := c.Record(ctx, d); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if got := counterValue(t, c, "HIGH"); got != 2 {
		t.Fatalf("expected 2 HIGH decisions, got %v", got)
	}
	if got := counterValue(t, c, "CRITICAL"); got != 1 {
		t.Fatalf("expected 1 CRITICAL decision, got %v", got)
	}
	if got := counterValue(t, c, "LOW"); got != 0 {
		t.Fatalf("expected LOW series at 0, got %v", got)
	}

	m := &dto.Metric{}
	if err := c.rulePolicyDisagrees.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 disagreement, got %v", got)
	}

	m = &dto.Metric{}
	if err := c.responseDelay.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := m.GetHistogram().GetSampleCount(); got != 3 {
		t.Fatalf("expected 3 delay samples, got %d", got)
	}
	if got := m.GetHistogram().GetSampleSum(); got != 18 {
		t.Fatalf("expected 18s total delay, got %v", got)
	}
}

func TestHandlerExposesGauges(t *testing.T) {
	c := New()
	c.TrackState(fixedState{learned: 7, engaged: 3})
	if c.Name() != "metrics" {
		t.Fatalf("unexpected sink name %q", c.Name())
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"honeycomb_learned_paths 7",
		"honeycomb_engaged_sources 3",
		`honeycomb_decisions_total{severity="MEDIUM"} 0`,
		"honeycomb_response_delay_seconds_bucket",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in exposition output", want)
		}
	}
}

func TestCollectorAsEngineSink(t *testing.T) {
	c := New()
	e := engine.New(
		engine.WithAgent(policy.NewAgent(nil, policy.WithEpsilon(0))),
		engine.WithGenerator(payload.NewGenerator(payload.NoDelay())),
		engine.WithSinks(c),
	)
	c.TrackState(e)

	e.Process(detection.Observation{Path: "/admin", SourceIP: "198.51.100.4"})
	e.Wait()

	if got := counterValue(t, c, "HIGH"); got != 1 {
		t.Fatalf("expected the sink to count one HIGH decision, got %v", got)
	}

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "honeycomb_learned_paths" && mf.GetMetric()[0].GetGauge().GetValue() != 1 {
			t.Fatalf("expected one learned path, got %v", mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
}
