package protocol

import "fmt"

// ChaumEngine simulates Chaum's single-shot reservation: every active
// client broadcasts a full slot vector once and picks one slot at random.
type ChaumEngine struct {
	config   ChaumConfig
	rng      Rand
	tracker  Tracker
	recorder RoundRecorder

	// sentBits accumulates the bits broadcast by each client over all
	// cycles run by this engine.
	sentBits []int64
}

// NewChaumEngine validates config and returns a ready engine.
func NewChaumEngine(config ChaumConfig, rng Rand, tracker Tracker, recorder RoundRecorder) (*ChaumEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("chaum: %w", err)
	}
	return &ChaumEngine{
		config:   config,
		rng:      rng,
		tracker:  tracker,
		recorder: recorder,
		sentBits: make([]int64, config.Clients),
	}, nil
}

func (e *ChaumEngine) Algorithm() Algorithm { return AlgorithmChaum }

// SentBits returns the number of bits client has broadcast so far.
func (e *ChaumEngine) SentBits(client int) int64 {
	return e.sentBits[client]
}

// Schedule runs one reservation round.
func (e *ChaumEngine) Schedule() (Outcome, error) {
	c, s := e.config.Clients, e.config.Slots
	numActive := ActiveClients(c, e.config.Activity)

	slots := make([]int, s)
	for i := 0; i < numActive; i++ {
		slots[e.rng.IntN(s)]++
		e.sentBits[i] += int64(s)
	}

	var out Outcome
	for _, n := range slots {
		if n == 0 {
			out.EmptySlots++
		} else if n > 1 {
			out.Collisions += n
		}
	}
	out.RequiredRounds = 1
	out.Reserved = s - out.EmptySlots - out.Collisions
	if out.Reserved <= 0 {
		return out, fmt.Errorf("chaum: %d clients in %d slots: %w", numActive, s, ErrNoSuccessfulReservations)
	}
	out.Data = float64(s) / float64(out.Reserved)

	if e.tracker.ReportRound() {
		e.recorder.Add(out.Collisions, out.RequiredRounds, out.EmptySlots, out.Data)
	}
	return out, nil
}
