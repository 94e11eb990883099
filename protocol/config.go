package protocol

import (
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Algorithm identifies a reservation scheme. The value is written verbatim
// into the Algorithm column of round datasets.
type Algorithm string

const (
	AlgorithmFootprint Algorithm = "Footprint"
	AlgorithmChaum     Algorithm = "Chaum"
	AlgorithmPfitzmann Algorithm = "Pfitzmann"
)

// Algorithms lists every supported scheme.
var Algorithms = []Algorithm{AlgorithmFootprint, AlgorithmChaum, AlgorithmPfitzmann}

// ParseAlgorithm matches s case-insensitively against the known schemes.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range Algorithms {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm %q: %w", s, ErrInvalidConfig)
}

// Outcome is the result of one reservation cycle.
type Outcome struct {
	// Collisions is the Chaum collision weight (clients sitting in
	// contested slots) or, for Footprint and Pfitzmann, the number of
	// contested slots. The two are not comparable across schemes.
	Collisions int

	// RequiredRounds is the number of rounds the cycle needed.
	RequiredRounds int

	// EmptySlots counts slots nobody ended up in.
	EmptySlots int

	// Reserved is numSlots - EmptySlots - Collisions.
	Reserved int

	// Data is the number of bits sent per successful reservation.
	Data float64
}

// ReservationMode selects how many slots a footprint client contests.
type ReservationMode int

const (
	// SingleSlot clients pick one slot and one footprint per round.
	SingleSlot ReservationMode = iota
	// MultiSlot clients start out contesting every slot at once.
	MultiSlot
)

func (m ReservationMode) String() string {
	switch m {
	case SingleSlot:
		return "single"
	case MultiSlot:
		return "multi"
	default:
		return fmt.Sprintf("ReservationMode(%d)", int(m))
	}
}

// ParseReservationMode accepts "single" or "multi".
func ParseReservationMode(s string) (ReservationMode, error) {
	switch strings.ToLower(s) {
	case "single":
		return SingleSlot, nil
	case "multi", "multiple":
		return MultiSlot, nil
	}
	return 0, fmt.Errorf("unknown reservation mode %q: %w", s, ErrInvalidConfig)
}

func (m ReservationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ReservationMode) UnmarshalText(text []byte) error {
	parsed, err := ParseReservationMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ActiveClients returns floor(activity * clients), the number of clients
// that take part in a Chaum or Footprint cycle.
func ActiveClients(clients int, activity float64) int {
	return int(activity * float64(clients))
}

// ChaumConfig parameterises the single-shot Chaum scheme.
type ChaumConfig struct {
	Clients  int     `json:"clients"`
	Slots    int     `json:"slots"`
	Activity float64 `json:"activity"`
}

// Validate reports every problem with the configuration at once.
func (c *ChaumConfig) Validate() error {
	result := validateCommon(c.Clients, c.Slots, c.Activity)
	if result == nil && ActiveClients(c.Clients, c.Activity) == 0 {
		result = multierror.Append(result, fmt.Errorf("activity %v of %d clients: %w", c.Activity, c.Clients, ErrNoActiveClients))
	}
	return result.ErrorOrNil()
}

// FootprintConfig parameterises the multi-round footprint scheme.
type FootprintConfig struct {
	Clients int `json:"clients"`
	Slots   int `json:"slots"`

	// Rounds is the fixed number of rounds of a cycle. Benchmarks derive
	// it from the client count, see RoundsForClients.
	Rounds int `json:"rounds"`

	// Bits is the footprint width, 1..8.
	Bits int `json:"bits"`

	Activity          float64         `json:"activity"`
	StopOnConvergence bool            `json:"stop_on_convergence"`
	Mode              ReservationMode `json:"mode"`
	Withdraw          WithdrawPolicy  `json:"withdraw"`
}

// Validate reports every problem with the configuration at once.
func (c *FootprintConfig) Validate() error {
	result := validateCommon(c.Clients, c.Slots, c.Activity)
	if c.Rounds < 1 {
		result = multierror.Append(result, fmt.Errorf("rounds must be positive, got %d: %w", c.Rounds, ErrInvalidConfig))
	}
	if c.Bits < 1 || c.Bits > 8 {
		result = multierror.Append(result, fmt.Errorf("%d bits: %w", c.Bits, ErrInvalidFootprintBits))
	}
	if c.Mode != SingleSlot && c.Mode != MultiSlot {
		result = multierror.Append(result, fmt.Errorf("mode %v: %w", c.Mode, ErrInvalidConfig))
	}
	if err := c.Withdraw.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if result == nil && ActiveClients(c.Clients, c.Activity) == 0 {
		result = multierror.Append(result, fmt.Errorf("activity %v of %d clients: %w", c.Activity, c.Clients, ErrNoActiveClients))
	}
	return result.ErrorOrNil()
}

// RoundsForClients returns ceil(log2(clients)), but at least one round.
func RoundsForClients(clients int) int {
	if clients <= 2 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(clients))))
}

// PfitzmannConfig parameterises the recursive bisection scheme.
type PfitzmannConfig struct {
	Clients int `json:"clients"`
	Slots   int `json:"slots"`

	// Activity is the probability with which each client independently
	// takes part in a cycle.
	Activity float64 `json:"activity"`
}

// Validate reports every problem with the configuration at once.
func (c *PfitzmannConfig) Validate() error {
	result := validateCommon(c.Clients, c.Slots, c.Activity)
	if c.Activity == 0 {
		result = multierror.Append(result, fmt.Errorf("activity must be above zero: %w", ErrNoActiveClients))
	}
	return result.ErrorOrNil()
}

func validateCommon(clients, slots int, activity float64) *multierror.Error {
	var result *multierror.Error
	if clients <= 0 {
		result = multierror.Append(result, fmt.Errorf("clients must be positive, got %d: %w", clients, ErrInvalidConfig))
	}
	if slots <= 0 {
		result = multierror.Append(result, fmt.Errorf("slots must be positive, got %d: %w", slots, ErrInvalidConfig))
	}
	if math.IsNaN(activity) || activity < 0 || activity > 1 {
		result = multierror.Append(result, fmt.Errorf("activity must be in [0, 1], got %v: %w", activity, ErrInvalidConfig))
	}
	return result
}
