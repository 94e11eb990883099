package testutil

import (
	"math/rand/v2"
	"sync"
)

// NewRand returns a deterministic PCG-backed source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Row is one recorded outcome tuple.
type Row struct {
	Collisions     int
	RequiredRounds int
	EmptySlots     int
	Data           float64
}

// RecordingRecorder collects every Add call in order.
type RecordingRecorder struct {
	mu   sync.Mutex
	Rows []Row
}

func (r *RecordingRecorder) Add(collisions, requiredRounds, emptySlots int, data float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Rows = append(r.Rows, Row{
		Collisions:     collisions,
		RequiredRounds: requiredRounds,
		EmptySlots:     emptySlots,
		Data:           data,
	})
}

// Len returns the number of recorded rows.
func (r *RecordingRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Rows)
}

// UnlimitedTracker accepts every observation and never finishes.
type UnlimitedTracker struct {
	mu       sync.Mutex
	Reported int
}

func (t *UnlimitedTracker) ReportRound() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Reported++
	return true
}

func (t *UnlimitedTracker) IsFinished() bool { return false }

func (t *UnlimitedTracker) Progress() float64 { return 0 }

// ClosedTracker rejects every observation.
type ClosedTracker struct{}

func (ClosedTracker) ReportRound() bool { return false }

func (ClosedTracker) IsFinished() bool { return true }

func (ClosedTracker) Progress() float64 { return 1 }

// ScriptedRand replays fixed values. IntN returns the next Ints value
// reduced modulo n; Float64 returns the next Floats value. Both panic when
// their script runs out.
type ScriptedRand struct {
	Ints   []int
	Floats []float64
}

func (r *ScriptedRand) IntN(n int) int {
	v := r.Ints[0]
	r.Ints = r.Ints[1:]
	return v % n
}

func (r *ScriptedRand) Float64() float64 {
	v := r.Floats[0]
	r.Floats = r.Floats[1:]
	return v
}
