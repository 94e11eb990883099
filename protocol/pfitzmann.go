package protocol

import (
	"fmt"
	"math/bits"
)

// MessageSize returns the size in bits of one Pfitzmann broadcast for the
// given population: ceil(log2(clients*slots)) bits for the aggregate sum
// plus two framing bits.
func MessageSize(clients, slots int) int {
	alphabet := uint64(clients) * uint64(slots)
	return bits.Len64(alphabet-1) + 2
}

// PfitzmannEngine simulates Pfitzmann's reservation by recursive
// bisection. Clients only ever publish the sum and the count of the slot
// numbers below a threshold; occupied slots are deduced from those
// aggregates alone.
type PfitzmannEngine struct {
	config      PfitzmannConfig
	rng         Rand
	tracker     Tracker
	recorder    RoundRecorder
	messageSize int
}

// NewPfitzmannEngine validates config and returns a ready engine.
func NewPfitzmannEngine(config PfitzmannConfig, rng Rand, tracker Tracker, recorder RoundRecorder) (*PfitzmannEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("pfitzmann: %w", err)
	}
	return &PfitzmannEngine{
		config:      config,
		rng:         rng,
		tracker:     tracker,
		recorder:    recorder,
		messageSize: MessageSize(config.Clients, config.Slots),
	}, nil
}

func (e *PfitzmannEngine) Algorithm() Algorithm { return AlgorithmPfitzmann }

// MessageSize returns the per-broadcast size in bits.
func (e *PfitzmannEngine) MessageSize() int { return e.messageSize }

// Schedule draws a fresh configuration with at least one active client and
// resolves it completely.
func (e *PfitzmannEngine) Schedule() (Outcome, error) {
	b := newBisection(e.draw(), e.config.Slots)
	if err := b.run(); err != nil {
		return Outcome{}, fmt.Errorf("pfitzmann: %w", err)
	}

	var out Outcome
	for _, n := range b.occupancy {
		if n == 0 {
			out.EmptySlots++
		} else if n > 1 {
			out.Collisions++
		}
	}
	out.RequiredRounds = b.rounds
	out.Reserved = e.config.Slots - out.Collisions - out.EmptySlots
	if out.Reserved <= 0 {
		return out, fmt.Errorf("pfitzmann: %d slots after %d rounds: %w", e.config.Slots, b.rounds, ErrNoSuccessfulReservations)
	}
	out.Data = float64(b.rounds*e.messageSize) / float64(out.Reserved)

	if e.tracker.ReportRound() {
		e.recorder.Add(out.Collisions, out.RequiredRounds, out.EmptySlots, out.Data)
	}
	return out, nil
}

// draw returns one slot number in [1, slots] per active client and 0 for
// inactive ones, redrawing until at least one client is active.
func (e *PfitzmannEngine) draw() []int {
	choices := make([]int, e.config.Clients)
	for {
		active := 0
		for i := range choices {
			if e.rng.Float64() < e.config.Activity {
				choices[i] = e.rng.IntN(e.config.Slots) + 1
				active++
			} else {
				choices[i] = 0
			}
		}
		if active > 0 {
			return choices
		}
	}
}

// frame is a group of count unresolved clients whose slot numbers add up
// to sum.
type frame struct {
	sum, count int
}

type bisection struct {
	choices   []int
	occupancy []int

	// rounds counts broadcasts.
	rounds int
	// singletons counts groups resolved with count == 1.
	singletons int
}

func newBisection(choices []int, slots int) *bisection {
	return &bisection{
		choices:   choices,
		occupancy: make([]int, slots),
	}
}

// send is one broadcast round: every client whose slot is still free and
// not above threshold contributes its slot number.
func (b *bisection) send(threshold int) (sum, count int) {
	b.rounds++
	for _, c := range b.choices {
		if c != 0 && c <= threshold && b.occupancy[c-1] == 0 {
			sum += c
			count++
		}
	}
	return sum, count
}

// run resolves every active client. Frames are processed depth first with
// the lower partition ahead of its complement, which keeps each threshold
// query restricted to the frame on top of the stack: everything below the
// frame's range is resolved by then.
func (b *bisection) run() error {
	sum, count := b.send(len(b.occupancy))
	stack := []frame{{sum, count}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.count < 1 || f.sum < f.count {
			return fmt.Errorf("group with sum %d and count %d: %w", f.sum, f.count, ErrInvariantViolated)
		}
		if f.count == 1 {
			b.singletons++
			if err := b.occupy(f.sum, 1); err != nil {
				return err
			}
			continue
		}

		lowSum, lowCount := b.send(f.sum / f.count)
		if lowSum == f.sum && lowCount == f.count {
			// Nobody is above the average, so everybody picked the same slot.
			if f.sum%f.count != 0 {
				return fmt.Errorf("tie of %d clients with sum %d: %w", f.count, f.sum, ErrInvariantViolated)
			}
			if err := b.occupy(f.sum/f.count, f.count); err != nil {
				return err
			}
			continue
		}
		stack = append(stack, frame{f.sum - lowSum, f.count - lowCount}, frame{lowSum, lowCount})
	}
	return nil
}

func (b *bisection) occupy(slot, multiplicity int) error {
	if slot < 1 || slot > len(b.occupancy) {
		return fmt.Errorf("slot %d out of range: %w", slot, ErrInvariantViolated)
	}
	b.occupancy[slot-1] += multiplicity
	return nil
}
