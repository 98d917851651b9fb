package traffic

import (
	"sort"
	"sync"
	"time"
)

var defaultTracker Tracker

// RecordSuccess records a successful refresh for source.
func RecordSuccess(source string) {
	defaultTracker.RecordSuccess(source)
}

// RecordError records a failed refresh for source (fetch error, missing marker, incomplete parse).
func RecordError(source string) {
	defaultTracker.RecordError(source)
}

// ErrorRate returns (errorCount, totalCount) across all sources within the window.
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultTracker.ErrorRate(window)
}

// LastOutcomes returns the latest refresh outcome of every source seen so far.
func LastOutcomes() []Outcome {
	return defaultTracker.LastOutcomes()
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Outcome is the most recent refresh result for one source.
type Outcome struct {
	Source string
	OK     bool
	At     time.Time
}

// Tracker maintains sliding windows of refresh outcome timestamps plus the
// latest outcome per source. Single source of truth for /health.
type Tracker struct {
	mu           sync.Mutex
	successTimes []time.Time
	errorTimes   []time.Time
	last         map[string]Outcome
}

// RecordSuccess records a successful refresh outcome in the tracker.
func (t *Tracker) RecordSuccess(source string) {
	t.recordOutcome(&t.successTimes, source, true)
}

// RecordError records a failed refresh outcome in the tracker.
func (t *Tracker) RecordError(source string) {
	t.recordOutcome(&t.errorTimes, source, false)
}

func (t *Tracker) recordOutcome(slice *[]time.Time, source string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	*slice = append(*slice, now)
	if t.last == nil {
		t.last = make(map[string]Outcome)
	}
	t.last[source] = Outcome{Source: source, OK: ok, At: now}
	t.pruneLocked(now)
}

// ErrorRate returns (errorCount, totalCount) within the window. totalCount = successes + errors.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	errCount := countInWindow(t.errorTimes, cutoff)
	successCount := countInWindow(t.successTimes, cutoff)
	return errCount, errCount + successCount
}

// LastOutcomes returns the latest outcome per source, sorted by source name.
func (t *Tracker) LastOutcomes() []Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Outcome, 0, len(t.last))
	for _, o := range t.last {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Reset clears all recorded outcomes from the tracker.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.errorTimes = nil
	t.last = nil
}

// countInWindow counts timestamps that are not before the cutoff time.
func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than two hours; refreshes happen every few
// minutes at most, so this bounds memory well above any health window.
// Must be called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-2 * time.Hour)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.errorTimes)
}
