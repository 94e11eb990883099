package protocol

import (
	"fmt"
	"slices"
)

// withdrawn marks a single-slot client that gave up for the rest of the
// cycle. It never transitions back.
const withdrawn = -1

// FootprintEngine simulates footprint scheduling. In every round each
// contending client XORs a fresh random footprint into the slot it wants;
// a client that reads back its own footprint from the broadcast assumes it
// is alone in that slot. Colliding clients retry, migrate to a free slot or
// withdraw according to the configured policy.
//
// Two clients that draw the same footprint for the same slot cancel out
// and see a collision, while any set of footprints that XORs to one
// client's own value hides a real collision from that client. Neither case
// is corrected: the collision bookkeeping below is the simulator's view,
// not the clients'.
type FootprintEngine struct {
	config   FootprintConfig
	rng      Rand
	tracker  Tracker
	recorder RoundRecorder

	free []int

	// onRound, if set, observes which active clients still contend for a
	// slot and the bookkeeping collision count after every round.
	onRound func(round int, contending []bool, collisions int)
}

// NewFootprintEngine validates config and returns a ready engine.
func NewFootprintEngine(config FootprintConfig, rng Rand, tracker Tracker, recorder RoundRecorder) (*FootprintEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("footprint: %w", err)
	}
	return &FootprintEngine{
		config:   config,
		rng:      rng,
		tracker:  tracker,
		recorder: recorder,
		free:     make([]int, 0, config.Slots),
	}, nil
}

func (e *FootprintEngine) Algorithm() Algorithm { return AlgorithmFootprint }

// Schedule runs one cycle of at most config.Rounds rounds.
func (e *FootprintEngine) Schedule() (Outcome, error) {
	var claims []int
	var requiredRounds int
	if e.config.Mode == MultiSlot {
		claims, requiredRounds = e.scheduleMultiple()
	} else {
		claims, requiredRounds = e.scheduleSingle()
	}
	return e.report(claims, requiredRounds)
}

func (e *FootprintEngine) scheduleSingle() ([]int, int) {
	s := e.config.Slots
	numActive := ActiveClients(e.config.Clients, e.config.Activity)

	schedule := make([]byte, s)
	choices := make([]int, numActive)
	footprints := make([]byte, numActive)
	for cl := range choices {
		choices[cl] = e.rng.IntN(s)
		footprints[cl] = e.footprint()
		schedule[choices[cl]] ^= footprints[cl]
	}

	conv := convergence{rounds: e.config.Rounds, required: e.config.Rounds}
	contending := numActive
	for round := 0; round < e.config.Rounds; round++ {
		load := float64(contending) / float64(s)
		lastRound := round == e.config.Rounds-1
		next := make([]byte, s)
		contending = 0
		for cl := range choices {
			choice := e.chooseSingle(schedule, choices[cl], footprints[cl], round, load, lastRound)
			choices[cl] = choice
			if choice == withdrawn {
				continue
			}
			footprints[cl] = e.footprint()
			next[choice] ^= footprints[cl]
			contending++
		}
		schedule = next

		collisions := singleCollisions(choices, s)
		if e.onRound != nil {
			still := make([]bool, len(choices))
			for cl, choice := range choices {
				still[cl] = choice != withdrawn
			}
			e.onRound(round, still, collisions)
		}
		if conv.observe(round, collisions) && e.config.StopOnConvergence {
			break
		}
	}

	claims := make([]int, s)
	for _, choice := range choices {
		if choice != withdrawn {
			claims[choice]++
		}
	}
	return claims, conv.required
}

func (e *FootprintEngine) chooseSingle(schedule []byte, last int, footprint byte, round int, load float64, lastRound bool) int {
	if last == withdrawn {
		return withdrawn
	}
	if schedule[last] == footprint {
		return last
	}
	if lastRound || e.withdraw(round, load) {
		return withdrawn
	}
	if e.rng.Float64() < 0.5 {
		return last
	}

	free := e.free[:0]
	for j, v := range schedule {
		if v == 0 && j != last {
			free = append(free, j)
		}
	}
	e.free = free
	if len(free) == 0 {
		return withdrawn
	}
	return free[e.rng.IntN(len(free))]
}

func (e *FootprintEngine) scheduleMultiple() ([]int, int) {
	s := e.config.Slots
	numActive := ActiveClients(e.config.Clients, e.config.Activity)

	schedule := make([]byte, s)
	choices := make([][]bool, numActive)
	footprints := make([][]byte, numActive)
	for cl := range choices {
		choices[cl] = make([]bool, s)
		footprints[cl] = make([]byte, s)
		for j := 0; j < s; j++ {
			choices[cl][j] = true
			footprints[cl][j] = e.footprint()
			schedule[j] ^= footprints[cl][j]
		}
	}

	conv := convergence{rounds: e.config.Rounds, required: e.config.Rounds}
	contending := numActive
	for round := 0; round < e.config.Rounds; round++ {
		load := float64(contending) / float64(s)
		lastRound := round == e.config.Rounds-1
		next := make([]byte, s)
		contending = 0
		for cl := range choices {
			choice := e.chooseMultiple(schedule, choices[cl], footprints[cl], round, load, lastRound)
			active := false
			for j, want := range choice {
				if !want {
					continue
				}
				footprints[cl][j] = e.footprint()
				next[j] ^= footprints[cl][j]
				active = true
			}
			if active {
				contending++
			}
			choices[cl] = choice
		}
		schedule = next

		collisions := multipleCollisions(choices, s)
		if e.onRound != nil {
			still := make([]bool, len(choices))
			for cl, choice := range choices {
				still[cl] = slices.Contains(choice, true)
			}
			e.onRound(round, still, collisions)
		}
		if conv.observe(round, collisions) && e.config.StopOnConvergence {
			break
		}
	}

	claims := make([]int, s)
	for _, choice := range choices {
		for j, want := range choice {
			if want {
				claims[j]++
			}
		}
	}
	return claims, conv.required
}

// chooseMultiple applies the single-slot decision to every slot the client
// contested last round. A client that lost everywhere returns all false.
func (e *FootprintEngine) chooseMultiple(schedule []byte, last []bool, footprints []byte, round int, load float64, lastRound bool) []bool {
	next := make([]bool, len(last))
	for i, contested := range last {
		if !contested {
			continue
		}
		if schedule[i] == footprints[i] {
			next[i] = true
			continue
		}
		if lastRound || e.withdraw(round, load) {
			continue
		}
		if e.rng.Float64() < 0.5 {
			next[i] = true
			continue
		}

		free := e.free[:0]
		for j, v := range schedule {
			if v == 0 && !last[j] && !next[j] {
				free = append(free, j)
			}
		}
		e.free = free
		if len(free) > 0 {
			next[free[e.rng.IntN(len(free))]] = true
		}
	}
	return next
}

func (e *FootprintEngine) withdraw(round int, load float64) bool {
	return e.rng.Float64() < e.config.Withdraw.Chance(round, load)
}

// footprint draws a uniform value in [1, 2^bits - 1].
func (e *FootprintEngine) footprint() byte {
	return byte(e.rng.IntN(1<<e.config.Bits-1) + 1)
}

func (e *FootprintEngine) report(claims []int, requiredRounds int) (Outcome, error) {
	cfg := e.config
	var out Outcome
	for _, n := range claims {
		if n == 0 {
			out.EmptySlots++
		} else if n > 1 {
			out.Collisions++
		}
	}
	out.RequiredRounds = requiredRounds
	out.Reserved = cfg.Slots - out.EmptySlots - out.Collisions
	if out.Reserved <= 0 {
		return out, fmt.Errorf("footprint: %d slots after %d rounds: %w", cfg.Slots, requiredRounds, ErrNoSuccessfulReservations)
	}
	out.Data = float64(cfg.Bits*cfg.Slots*cfg.Rounds) / float64(out.Reserved)

	if e.tracker.ReportRound() {
		e.recorder.Add(out.Collisions, out.RequiredRounds, out.EmptySlots, out.Data)
	}
	return out, nil
}

// convergence tracks the first round of the current collision-free streak.
type convergence struct {
	rounds    int
	required  int
	converged bool
}

// observe records the collision count after round and reports whether the
// schedule is collision free.
func (c *convergence) observe(round, collisions int) bool {
	if collisions != 0 {
		c.required = c.rounds
		c.converged = false
		return false
	}
	if !c.converged {
		c.required = round + 1
	}
	c.converged = true
	return true
}

// singleCollisions counts the clients that target a slot some earlier
// client already targets.
func singleCollisions(choices []int, slots int) int {
	taken := make([]bool, slots)
	collisions := 0
	for _, choice := range choices {
		if choice == withdrawn {
			continue
		}
		if taken[choice] {
			collisions++
		} else {
			taken[choice] = true
		}
	}
	return collisions
}

func multipleCollisions(choices [][]bool, slots int) int {
	taken := make([]bool, slots)
	collisions := 0
	for _, choice := range choices {
		for j, want := range choice {
			if !want {
				continue
			}
			if taken[j] {
				collisions++
			} else {
				taken[j] = true
			}
		}
	}
	return collisions
}
