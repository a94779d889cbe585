package detection

import "sync"

// FrequencyVerdict is derived purely from how often a path was seen before.
type FrequencyVerdict struct {
	Severity   Severity `json:"severity"`
	PriorCount int      `json:"prior_count"`
}

// FrequencyClassifier learns path recurrence online. Counts only grow; Reset
// is the operator escape hatch.
type FrequencyClassifier struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewFrequencyClassifier() *FrequencyClassifier {
	return &FrequencyClassifier{counts: make(map[string]int)}
}

// Classify maps the current count for path to a severity. It never returns
// CRITICAL.
func (fc *FrequencyClassifier) Classify(path string) FrequencyVerdict {
	if path == "" {
		return FrequencyVerdict{Severity: SeverityLow}
	}
	fc.mu.Lock()
	count := fc.counts[path]
	fc.mu.Unlock()
	return verdictForCount(count)
}

// Observe folds one hit for path into history. Empty paths are ignored.
func (fc *FrequencyClassifier) Observe(path string) {
	if path == "" {
		return
	}
	fc.mu.Lock()
	fc.counts[path]++
	fc.mu.Unlock()
}

// ClassifyAndObserve classifies against the count strictly before this hit
// and then records the hit, atomically with respect to other callers.
func (fc *FrequencyClassifier) ClassifyAndObserve(path string) FrequencyVerdict {
	if path == "" {
		return FrequencyVerdict{Severity: SeverityLow}
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	count := fc.counts[path]
	fc.counts[path] = count + 1
	return verdictForCount(count)
}

// Count returns how many times path has been observed.
func (fc *FrequencyClassifier) Count(path string) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.counts[path]
}

// LearnedPaths returns the number of distinct paths observed.
func (fc *FrequencyClassifier) LearnedPaths() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.counts)
}

// Snapshot copies the current path counts.
func (fc *FrequencyClassifier) Snapshot() map[string]int {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	out := make(map[string]int, len(fc.counts))
	for path, count := range fc.counts {
		out[path] = count
	}
	return out
}

// Reset forgets every learned path.
func (fc *FrequencyClassifier) Reset() {
	fc.mu.Lock()
	fc.counts = make(map[string]int)
	fc.mu.Unlock()
}

func verdictForCount(count int) FrequencyVerdict {
	severity := SeverityLow
	switch {
	case count > 5:
		severity = SeverityHigh
	case count > 2:
		severity = SeverityMedium
	}
	return FrequencyVerdict{Severity: severity, PriorCount: count}
}
