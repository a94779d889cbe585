package payload

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
)

type recordingSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (r *recordingSleeper) sleep(d time.Duration) {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	r.mu.Unlock()
}

func TestRespondTemplates(t *testing.T) {
	cases := []struct {
		severity detection.Severity
		status   int
		delay    time.Duration
	}{
		{detection.SeverityLow, 200, 1 * time.Second},
		{detection.SeverityMedium, 404, 3 * time.Second},
		{detection.SeverityHigh, 403, 5 * time.Second},
		{detection.SeverityCritical, 500, 8 * time.Second},
	}

	for _, tc := range cases {
		rec := &recordingSleeper{}
		g := NewGenerator(WithSleep(rec.sleep))

		resp := g.Respond(tc.severity)
		if resp.StatusCode != tc.status || resp.Delay != tc.delay {
			t.Fatalf("%s: got status %d delay %s", tc.severity, resp.StatusCode, resp.Delay)
		}
		if len(rec.slept) != 1 || rec.slept[0] != tc.delay {
			t.Fatalf("%s: expected one sleep of %s, got %v", tc.severity, tc.delay, rec.slept)
		}
		if resp.Headers["Content-Type"] != "text/plain" {
			t.Fatalf("%s: unexpected headers %v", tc.severity, resp.Headers)
		}
	}
}

func TestRespondBodyComesFromPool(t *testing.T) {
	g := NewGenerator(NoDelay())
	pool := DefaultTemplates()[detection.SeverityHigh].Messages

	for i := 0; i < 50; i++ {
		body := g.Respond(detection.SeverityHigh).Body
		found := false
		for _, msg := range pool {
			if msg == body {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("body %q not in HIGH pool", body)
		}
	}
}

func TestPickerSelectsMessage(t *testing.T) {
	g := NewGenerator(NoDelay(), WithPicker(func(n int) int { return n - 1 }))
	if got := g.Build(detection.SeverityLow).Body; got != "System: Normal operation" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestBuildDoesNotSleep(t *testing.T) {
	rec := &recordingSleeper{}
	g := NewGenerator(WithSleep(rec.sleep))
	g.Build(detection.SeverityCritical)
	if len(rec.slept) != 0 {
		t.Fatalf("Build must not stall, slept %v", rec.slept)
	}
}

func TestWithMessagesOverridesPool(t *testing.T) {
	g := NewGenerator(NoDelay(), WithMessages(detection.SeverityMedium, []string{"Router busy"}))
	if got := g.Build(detection.SeverityMedium).Body; got != "Router busy" {
		t.Fatalf("expected override, got %q", got)
	}

	g = NewGenerator(NoDelay(), WithMessages(detection.SeverityMedium, nil))
	if len(g.Templates()[detection.SeverityMedium].Messages) != 5 {
		t.Fatalf("empty override must keep the built-in pool")
	}
}

func TestUnknownSeverityFallsBackToLow(t *testing.T) {
	g := NewGenerator(NoDelay())
	if resp := g.Build(detection.Severity(42)); resp.StatusCode != 200 {
		t.Fatalf("expected LOW template, got %d", resp.StatusCode)
	}
}

func TestValidateMessages(t *testing.T) {
	if ok, errs := ValidateMessages("HIGH", []string{"fine"}); !ok || len(errs) != 0 {
		t.Fatalf("expected valid pool, got %v", errs)
	}
	ok, errs := ValidateMessages("LOW", []string{"", strings.Repeat("x", maxMessageLength+1)})
	if ok || len(errs) != 2 {
		t.Fatalf("expected two errors, got %v", errs)
	}
	if ok, _ := ValidateMessages("LOW", nil); ok {
		t.Fatalf("expected empty pool to be rejected")
	}
}
