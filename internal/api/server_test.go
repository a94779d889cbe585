package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/payload"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/policy"
)

func newTestServer(t *testing.T, opts ...ServerOption) (*HoneypotServer, *engine.Engine) {
	t.Helper()
	e := engine.New(
		engine.WithAgent(policy.NewAgent(nil, policy.WithEpsilon(0))),
		engine.WithGenerator(payload.NewGenerator(payload.NoDelay())),
	)
	base := []ServerOption{WithServerClock(func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) })}
	return NewHoneypotServer(e, append(base, opts...)...), e
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.RemoteAddr = "198.51.100.23:40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTrapAdminReturnsForbidden(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/admin", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected a deceptive body")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestTrapSQLInjectionReturnsServerError(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodPost, "/login.php", "username=admin' OR '1'='1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestTrapRootIsNormal(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTrapAcceptsAnyMethod(t *testing.T) {
	s, e := newTestServer(t)
	methods := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodHead, http.MethodOptions}
	for _, m := range methods {
		do(t, s.Handler(), m, "/device/status", "")
	}
	if got := e.History().Len(); got != len(methods) {
		t.Fatalf("expected %d decisions, got %d", len(methods), got)
	}
}

func TestTrapHeadHasNoBody(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodHead, "/", "")
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty HEAD body, got %q", rec.Body.String())
	}
}

func TestUnknownAPIPathIsNotClassified(t *testing.T) {
	s, e := newTestServer(t)

	for _, target := range []string{"/api/unknown", "/api", "/apix/../admin"} {
		rec := do(t, s.Handler(), http.MethodGet, target, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", target, rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("%s: expected JSON error", target)
		}
	}
	if e.History().Len() != 0 {
		t.Fatalf("api paths must not reach the engine")
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/health", "")

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected health body %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s.Handler(), http.MethodGet, "/admin", "")
	do(t, s.Handler(), http.MethodGet, "/", "")

	rec := do(t, s.Handler(), http.MethodGet, "/api/metrics", "")
	var st engine.Stats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.TotalAttacks != 2 || st.LearnedPaths != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.ThreatDistribution["HIGH"] != 1 || st.ThreatDistribution["LOW"] != 1 {
		t.Fatalf("unexpected distribution %v", st.ThreatDistribution)
	}
	if _, ok := st.ThreatDistribution["CRITICAL"]; !ok {
		t.Fatalf("expected all severity keys present")
	}
}

func TestLiveAttacksLimits(t *testing.T) {
	s, _ := newTestServer(t)
	for i := 0; i < 60; i++ {
		do(t, s.Handler(), http.MethodGet, fmt.Sprintf("/probe/%d", i), "")
	}

	cases := map[string]int{
		"/api/live_attacks":           20,
		"/api/live_attacks?limit=5":   5,
		"/api/live_attacks?limit=500": 50,
		"/api/live_attacks?limit=abc": 20,
		"/api/live_attacks?limit=-3":  20,
	}
	for target, want := range cases {
		rec := do(t, s.Handler(), http.MethodGet, target, "")
		var attacks []engine.Metadata
		if err := json.NewDecoder(rec.Body).Decode(&attacks); err != nil {
			t.Fatalf("%s: decode: %v", target, err)
		}
		if len(attacks) != want {
			t.Fatalf("%s: expected %d attacks, got %d", target, want, len(attacks))
		}
	}

	rec := do(t, s.Handler(), http.MethodGet, "/api/live_attacks?limit=2", "")
	var attacks []engine.Metadata
	json.NewDecoder(rec.Body).Decode(&attacks)
	if attacks[0].Path != "/probe/58" || attacks[1].Path != "/probe/59" {
		t.Fatalf("expected newest last, got %s then %s", attacks[0].Path, attacks[1].Path)
	}
	if attacks[1].SourceIP != "198.51.100.23" {
		t.Fatalf("expected remote IP without port, got %q", attacks[1].SourceIP)
	}
}

func TestLearningReset(t *testing.T) {
	s, e := newTestServer(t)
	do(t, s.Handler(), http.MethodGet, "/admin", "")
	if e.LearnedPaths() != 1 {
		t.Fatalf("expected one learned path")
	}

	if rec := do(t, s.Handler(), http.MethodGet, "/api/learning/reset", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected GET reset to be rejected, got %d", rec.Code)
	}

	rec := do(t, s.Handler(), http.MethodPost, "/api/learning/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if e.LearnedPaths() != 0 {
		t.Fatalf("expected frequency learning to be cleared")
	}
}

func TestCORSOnlyOnAPI(t *testing.T) {
	s, e := newTestServer(t, WithCORS(true))

	rec := do(t, s.Handler(), http.MethodOptions, "/api/health", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS preflight on api, got %d %v", rec.Code, rec.Header())
	}

	rec = do(t, s.Handler(), http.MethodGet, "/index.html", "")
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("trap responses must not carry CORS headers")
	}
	if e.History().Len() != 1 {
		t.Fatalf("expected only the trap request to be classified")
	}
}

func TestPrometheusHandlerMounted(t *testing.T) {
	promHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("honeycomb_decisions_total 0\n"))
	})
	s, e := newTestServer(t, WithMetricsHandler("/metrics", promHandler))

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), "honeycomb_decisions_total") {
		t.Fatalf("expected prometheus output, got %q", rec.Body.String())
	}
	if e.History().Len() != 0 {
		t.Fatalf("metrics scrape must not be classified")
	}

	do(t, s.Handler(), http.MethodPost, "/metrics", "")
	if e.History().Len() != 1 {
		t.Fatalf("expected non-GET /metrics to hit the trap")
	}
}
