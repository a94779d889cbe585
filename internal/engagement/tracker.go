package engagement

import "sync"

// Bucket is the coarse engagement level of a source.
type Bucket string

const (
	BucketNew     Bucket = "NEW"
	BucketEngaged Bucket = "ENGAGED"
)

// DefaultEngagedAfter is the highest touch count still considered NEW.
const DefaultEngagedAfter = 2

// ParseBucket accepts "NEW" or "ENGAGED".
func ParseBucket(value string) (Bucket, bool) {
	switch Bucket(value) {
	case BucketNew, BucketEngaged:
		return Bucket(value), true
	}
	return "", false
}

// Tracker counts observations per source identity. Entries are never evicted.
type Tracker struct {
	mu           sync.Mutex
	counts       map[string]int
	engagedAfter int
}

// NewTracker returns a tracker where sources become ENGAGED once their count
// exceeds engagedAfter. Values below 1 use DefaultEngagedAfter.
func NewTracker(engagedAfter int) *Tracker {
	if engagedAfter < 1 {
		engagedAfter = DefaultEngagedAfter
	}
	return &Tracker{
		counts:       make(map[string]int),
		engagedAfter: engagedAfter,
	}
}

// Touch records one observation of source and returns its running count.
// The first touch of a source returns 1.
func (t *Tracker) Touch(source string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[source]++
	return t.counts[source]
}

// Count returns the current count for source without touching it.
func (t *Tracker) Count(source string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[source]
}

// Bucket classifies a running count.
func (t *Tracker) Bucket(count int) Bucket {
	return BucketFor(count, t.engagedAfter)
}

// Len returns the number of distinct sources seen.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}

// Engaged returns how many sources are currently past the NEW threshold.
func (t *Tracker) Engaged() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, count := range t.counts {
		if count > t.engagedAfter {
			n++
		}
	}
	return n
}

// BucketFor is NEW while count <= engagedAfter, ENGAGED afterwards.
func BucketFor(count, engagedAfter int) Bucket {
	if count <= engagedAfter {
		return BucketNew
	}
	return BucketEngaged
}
