package detection

import (
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestClassifyNoMatchIsNormalTraffic(t *testing.T) {
	pc := NewPatternClassifier(nil)

	got := pc.Classify(Observation{Path: "/"})
	if got.Severity != SeverityLow {
		t.Fatalf("expected LOW, got %s", got.Severity)
	}
	if got.Label != NormalTrafficLabel {
		t.Fatalf("expected %q, got %q", NormalTrafficLabel, got.Label)
	}
	if got.Confidence != 0 || got.Matched() {
		t.Fatalf("expected zero confidence and no categories, got %+v", got)
	}
}

func TestClassifyEmptyObservation(t *testing.T) {
	got := NewPatternClassifier(nil).Classify(Observation{})
	if got.Severity != SeverityLow || got.Label != NormalTrafficLabel {
		t.Fatalf("unexpected verdict for empty observation: %+v", got)
	}
}

func TestClassifyAdminIsReconnaissance(t *testing.T) {
	got := NewPatternClassifier(nil).Classify(Observation{Path: "/admin"})
	if got.Severity != SeverityHigh {
		t.Fatalf("expected HIGH, got %s", got.Severity)
	}
	if got.Label != "Reconnaissance" {
		t.Fatalf("expected Reconnaissance, got %q", got.Label)
	}
	if got.Confidence != 0.6 {
		t.Fatalf("expected confidence 0.6, got %v", got.Confidence)
	}
	if !reflect.DeepEqual(got.Categories, []string{"admin_scanning"}) {
		t.Fatalf("unexpected categories: %v", got.Categories)
	}
}

func TestClassifySQLInjectionInBody(t *testing.T) {
	got := NewPatternClassifier(nil).Classify(Observation{
		Path:   "/login.php",
		Method: "POST",
		Body:   "username=admin' OR '1'='1",
	})
	if got.Severity != SeverityCritical {
		t.Fatalf("expected CRITICAL, got %s", got.Severity)
	}
	if got.Label != "SQL Injection" {
		t.Fatalf("expected SQL Injection, got %q", got.Label)
	}
	if got.Confidence != 1.0 {
		t.Fatalf("expected confidence capped at 1.0, got %v", got.Confidence)
	}
	want := []string{"admin_scanning", "cgi_scanning", "sql_injection"}
	if !reflect.DeepEqual(got.Categories, want) {
		t.Fatalf("expected categories %v in catalog order, got %v", want, got.Categories)
	}
}

func TestClassifyPathTraversalAlwaysCritical(t *testing.T) {
	pc := NewPatternClassifier(nil)
	cases := []Observation{
		{Path: "/../../../etc/passwd"},
		{Path: "/../../../etc/passwd", UserAgent: "sqlmap UNION SELECT password FROM users"},
		{Path: "/static/../config", UserAgent: "Mozilla/5.0", Body: "cmd=; whoami"},
		{Path: `/..\..\windows\win.ini`, Body: "/admin /login /console"},
	}
	for _, obs := range cases {
		got := pc.Classify(obs)
		if got.Severity != SeverityCritical {
			t.Fatalf("expected CRITICAL for %+v, got %s", obs, got.Severity)
		}
		if got.Label != "Path Traversal" {
			t.Fatalf("expected Path Traversal for %+v, got %q", obs, got.Label)
		}
	}
}

func TestClassifyMatchesUserAgentField(t *testing.T) {
	got := NewPatternClassifier(nil).Classify(Observation{Path: "/", UserAgent: "() { :; }; /bin/sh -c id"})
	if got.Severity != SeverityCritical {
		t.Fatalf("expected CRITICAL from user agent, got %s", got.Severity)
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	got := NewPatternClassifier(nil).Classify(Observation{Path: "/ADMIN"})
	if got.Severity != SeverityHigh {
		t.Fatalf("expected HIGH, got %s", got.Severity)
	}
}

func TestClassifyIsPure(t *testing.T) {
	pc := NewPatternClassifier(nil)
	obs := Observation{Path: "/cgi-bin/test.cgi", UserAgent: "Mozilla/5.0"}

	first := pc.Classify(obs)
	second := pc.Classify(obs)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical verdicts, got %+v and %+v", first, second)
	}
}

func TestClassifyTieKeepsFirstInCatalogOrder(t *testing.T) {
	taxonomy, err := NewTaxonomy([]CategorySpec{
		{ID: "first", Label: "First", Severity: SeverityMedium, Patterns: []string{"abc"}},
		{ID: "second", Label: "Second", Severity: SeverityCritical, Patterns: []string{"bcd"}},
	})
	if err != nil {
		t.Fatalf("NewTaxonomy: %v", err)
	}

	got := NewPatternClassifier(taxonomy).Classify(Observation{Path: "/abcd"})
	if got.Label != "First" || got.Severity != SeverityMedium {
		t.Fatalf("expected first category to win tie, got %+v", got)
	}
	if !reflect.DeepEqual(got.Categories, []string{"first", "second"}) {
		t.Fatalf("unexpected categories: %v", got.Categories)
	}
}

func TestNewTaxonomyRejectsInvalidCategories(t *testing.T) {
	cases := map[string][]CategorySpec{
		"no signatures": {{ID: "a", Severity: SeverityLow}},
		"bad severity":  {{ID: "a", Severity: Severity(9), Patterns: []string{"x"}}},
		"duplicate":     {{ID: "a", Patterns: []string{"x"}}, {ID: "a", Patterns: []string{"y"}}},
		"bad regexp":    {{ID: "a", Patterns: []string{"("}}},
		"missing id":    {{Patterns: []string{"x"}}},
	}
	for name, specs := range cases {
		if _, err := NewTaxonomy(specs); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefaultTaxonomyInvariants(t *testing.T) {
	for _, c := range DefaultTaxonomy().Categories() {
		if len(c.Signatures) == 0 {
			t.Fatalf("category %s has no signatures", c.ID)
		}
		if !c.Severity.Valid() {
			t.Fatalf("category %s has invalid severity", c.ID)
		}
	}
}

func TestSignatureConfidence(t *testing.T) {
	if got := SignatureConfidence(`\.php`); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := SignatureConfidence(strings.Repeat("x", 40)); got != 1.0 {
		t.Fatalf("expected cap at 1.0, got %v", got)
	}
}

func TestFrequencyThresholds(t *testing.T) {
	fc := NewFrequencyClassifier()
	want := []Severity{
		SeverityLow, SeverityLow, SeverityLow, // prior counts 0..2
		SeverityMedium, SeverityMedium, SeverityMedium, // prior counts 3..5
		SeverityHigh, SeverityHigh, // prior counts 6, 7
	}
	for i, expected := range want {
		got := fc.ClassifyAndObserve("/admin")
		if got.Severity != expected {
			t.Fatalf("call %d: expected %s, got %s (prior %d)", i+1, expected, got.Severity, got.PriorCount)
		}
		if got.PriorCount != i {
			t.Fatalf("call %d: expected prior count %d, got %d", i+1, i, got.PriorCount)
		}
	}
}

func TestFrequencyNeverCritical(t *testing.T) {
	fc := NewFrequencyClassifier()
	for i := 0; i < 100; i++ {
		fc.Observe("/x")
	}
	if got := fc.Classify("/x"); got.Severity != SeverityHigh {
		t.Fatalf("expected ceiling HIGH, got %s", got.Severity)
	}
}

func TestFrequencyTransitionsAfterObservations(t *testing.T) {
	fc := NewFrequencyClassifier()
	for i := 0; i < 3; i++ {
		fc.Observe("/test")
	}
	if got := fc.Classify("/test"); got.Severity != SeverityMedium {
		t.Fatalf("after 3 observations expected MEDIUM, got %s", got.Severity)
	}
	for i := 0; i < 3; i++ {
		fc.Observe("/test")
	}
	if got := fc.Classify("/test"); got.Severity != SeverityHigh {
		t.Fatalf("after 6 observations expected HIGH, got %s", got.Severity)
	}
}

func TestFrequencyIgnoresEmptyPath(t *testing.T) {
	fc := NewFrequencyClassifier()
	fc.Observe("")
	if got := fc.ClassifyAndObserve(""); got.Severity != SeverityLow {
		t.Fatalf("expected LOW for empty path, got %s", got.Severity)
	}
	if fc.LearnedPaths() != 0 {
		t.Fatalf("expected no learned paths, got %d", fc.LearnedPaths())
	}
}

func TestFrequencyConcurrentNoLostIncrements(t *testing.T) {
	fc := NewFrequencyClassifier()
	var wg sync.WaitGroup
	seen := make([]int, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = fc.ClassifyAndObserve("/same").PriorCount
		}(i)
	}
	wg.Wait()

	if fc.Count("/same") != 200 {
		t.Fatalf("expected 200, got %d", fc.Count("/same"))
	}
	priors := make(map[int]bool, 200)
	for _, p := range seen {
		if priors[p] {
			t.Fatalf("prior count %d observed twice; not serializable", p)
		}
		priors[p] = true
	}
}

func TestFrequencyReset(t *testing.T) {
	fc := NewFrequencyClassifier()
	fc.Observe("/a")
	fc.Observe("/b")
	if fc.LearnedPaths() != 2 {
		t.Fatalf("expected 2 learned paths, got %d", fc.LearnedPaths())
	}
	fc.Reset()
	if fc.LearnedPaths() != 0 || fc.Count("/a") != 0 {
		t.Fatalf("expected empty classifier after reset")
	}
}

func TestSeverityOrderAndParse(t *testing.T) {
	if !(SeverityLow < SeverityMedium && SeverityMedium < SeverityHigh && SeverityHigh < SeverityCritical) {
		t.Fatalf("severity order broken")
	}
	if MaxSeverity() != SeverityLow {
		t.Fatalf("expected LOW for empty max")
	}
	if MaxSeverity(SeverityMedium, SeverityCritical, SeverityHigh) != SeverityCritical {
		t.Fatalf("expected CRITICAL max")
	}
	for _, s := range Severities {
		parsed, err := ParseSeverity(strings.ToLower(s.String()))
		if err != nil || parsed != s {
			t.Fatalf("round trip failed for %s: %v", s, err)
		}
	}
	if _, err := ParseSeverity("severe"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestObservationFromRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/ping?ip=127.0.0.1", strings.NewReader("a=b"))
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Set("User-Agent", "curl/7.68.0")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	obs := ObservationFromRequest(req, now)
	if obs.Path != "/ping?ip=127.0.0.1" {
		t.Fatalf("unexpected path %q", obs.Path)
	}
	if obs.SourceIP != "203.0.113.9" || obs.Method != "POST" || obs.UserAgent != "curl/7.68.0" {
		t.Fatalf("unexpected observation %+v", obs)
	}
	if obs.Body != "a=b" || !obs.Arrival.Equal(now) {
		t.Fatalf("unexpected body/arrival %+v", obs)
	}
	if (Observation{}).Source() != UnknownSource {
		t.Fatalf("expected unknown source fallback")
	}
}

func TestObservationFromRequestDecodesQueryAndForm(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	req := httptest.NewRequest("GET", "/login?user=admin%27%20OR%20%271%27%3D%271", nil)
	if obs := ObservationFromRequest(req, now); obs.Path != "/login?user=admin' OR '1'='1" {
		t.Fatalf("expected decoded query, got %q", obs.Path)
	}

	req = httptest.NewRequest("GET", "/x?q=%zz", nil)
	if obs := ObservationFromRequest(req, now); obs.Path != "/x?q=%zz" {
		t.Fatalf("expected raw query on bad escape, got %q", obs.Path)
	}

	req = httptest.NewRequest("POST", "/login.php", strings.NewReader("username=admin%27+OR+%271%27%3D%271"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	if obs := ObservationFromRequest(req, now); obs.Body != "username=admin' OR '1'='1" {
		t.Fatalf("expected decoded form body, got %q", obs.Body)
	}

	req = httptest.NewRequest("POST", "/api", strings.NewReader(`{"q":"100%27"}`))
	req.Header.Set("Content-Type", "application/json")
	if obs := ObservationFromRequest(req, now); obs.Body != `{"q":"100%27"}` {
		t.Fatalf("expected non-form body untouched, got %q", obs.Body)
	}
}

func TestClassifyEncodedRequests(t *testing.T) {
	pc := NewPatternClassifier(nil)
	now := time.Now()
	cases := map[string]string{
		"/search?q=%24%28reboot%29":                  "Command Injection",
		"/login?user=admin%27%20OR%20%271%27%3D%271": "SQL Injection",
		"/status?x=%3Bwhoami":                        "Command Injection",
	}
	for target, label := range cases {
		got := pc.Classify(ObservationFromRequest(httptest.NewRequest("GET", target, nil), now))
		if got.Severity != SeverityCritical || got.Label != label {
			t.Fatalf("%s: expected CRITICAL %s, got %s %q", target, label, got.Severity, got.Label)
		}
	}
}
