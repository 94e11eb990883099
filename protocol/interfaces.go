package protocol

// Rand is the entropy source of an engine. *math/rand/v2.Rand satisfies it;
// seeding it makes every cycle reproducible.
type Rand interface {
	// IntN returns a uniform value in [0, n). It panics if n <= 0.
	IntN(n int) int

	// Float64 returns a uniform value in [0.0, 1.0).
	Float64() float64
}

// Tracker decides whether the outcome of a cycle is recorded and reports
// when the sample budget of a benchmark point has been used up.
type Tracker interface {
	// ReportRound counts one observation and returns true if the sample
	// budget is not yet exhausted. It returns false otherwise, in which
	// case the engine must not record the cycle.
	ReportRound() bool

	// IsFinished returns true once the sample budget is exhausted.
	IsFinished() bool

	// Progress returns the fraction of the budget consumed, in [0, 1].
	Progress() float64
}

// RoundRecorder receives one outcome tuple per recorded cycle. It is
// append-only and never rejects a row.
type RoundRecorder interface {
	Add(collisions, requiredRounds, emptySlots int, data float64)
}

// Engine runs one complete reservation cycle per call.
type Engine interface {
	// Algorithm names the reservation scheme the engine simulates.
	Algorithm() Algorithm

	// Schedule runs one cycle to completion and returns its outcome. The
	// outcome is also handed to the RoundRecorder if the Tracker accepts
	// the observation.
	Schedule() (Outcome, error)
}
