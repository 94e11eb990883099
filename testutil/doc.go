// Package testutil provides deterministic entropy sources and recording
// collaborators for testing the reservation engines and the benchmark
// driver.
//
// # Entropy
//
// NewRand returns a seeded math/rand/v2 source; two sources built from the
// same seed yield identical streams. ScriptedRand replays hand-picked
// values for tests that need to steer a single decision:
//
//	rng := &testutil.ScriptedRand{
//		Ints:   []int{3, 1},   // slot 3, footprint 1+1
//		Floats: []float64{0.9}, // no withdrawal
//	}
//
// # Collaborators
//
//   - RecordingRecorder keeps every outcome tuple in order.
//   - UnlimitedTracker accepts every observation and never finishes.
//   - ClosedTracker rejects every observation.
package testutil
