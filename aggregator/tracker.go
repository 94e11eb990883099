package aggregator

import "sync"

// SampleTracker counts recorded cycles against a fixed sample budget. It is
// safe for use by several engines at once.
type SampleTracker struct {
	mu       sync.Mutex
	limit    int
	observed int
}

// NewSampleTracker returns a tracker that accepts samples observations. A
// non-positive budget yields a tracker that is finished from the start.
func NewSampleTracker(samples int) *SampleTracker {
	if samples < 0 {
		samples = 0
	}
	return &SampleTracker{limit: samples}
}

// ReportRound claims one slot of the budget. It returns false once the
// budget is exhausted, in which case the caller must not record its cycle.
func (t *SampleTracker) ReportRound() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.observed >= t.limit {
		return false
	}
	t.observed++
	return true
}

func (t *SampleTracker) IsFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observed >= t.limit
}

// Progress returns the consumed fraction of the budget in [0, 1].
func (t *SampleTracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.limit == 0 {
		return 1
	}
	return float64(t.observed) / float64(t.limit)
}

// Observed returns the number of accepted observations.
func (t *SampleTracker) Observed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observed
}

// Samples returns the budget.
func (t *SampleTracker) Samples() int {
	return t.limit
}
