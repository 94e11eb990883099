package benchmark

import (
	"fmt"

	"github.com/flashbots/schedsim/aggregator"
	"github.com/flashbots/schedsim/protocol"
	"github.com/hashicorp/go-multierror"
)

const (
	// DefaultSamples is the number of recorded cycles per sweep point.
	DefaultSamples = 100
	// DefaultChaumRatio is the number of Chaum slots per client.
	DefaultChaumRatio = 32
)

// DefaultClients is the client-count axis used when a sweep names none.
var DefaultClients = []int{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 20000, 50000}

// Sweep describes a series of benchmark points for one algorithm. Fields
// that do not apply to the algorithm are ignored.
type Sweep struct {
	Algorithm protocol.Algorithm `json:"algorithm" yaml:"algorithm"`
	Clients   []int              `json:"clients,omitempty" yaml:"clients,omitempty"`

	// Activity is the fraction of clients taking part in a cycle. Nil
	// means every client; an explicit zero is rejected.
	Activity *float64 `json:"activity,omitempty" yaml:"activity,omitempty"`

	// Footprint: fixed slot count and footprint width.
	Slots             int                         `json:"slots,omitempty" yaml:"slots,omitempty"`
	Bits              int                         `json:"bits,omitempty" yaml:"bits,omitempty"`
	Mode              protocol.ReservationMode    `json:"mode,omitempty" yaml:"mode,omitempty"`
	StopOnConvergence bool                        `json:"stop_on_convergence,omitempty" yaml:"stop_on_convergence,omitempty"`
	Withdraw          *protocol.WithdrawBehaviour `json:"withdraw,omitempty" yaml:"withdraw,omitempty"`
	Percentages       []float64                   `json:"percentages,omitempty" yaml:"percentages,omitempty"`

	// Chaum: slots per client.
	Ratio int `json:"ratio,omitempty" yaml:"ratio,omitempty"`

	// Pfitzmann: slots per client.
	SlotsPerClient int `json:"slots_per_client,omitempty" yaml:"slots_per_client,omitempty"`
}

// withDefaults fills every unset field the way the interactive commands do.
func (s Sweep) withDefaults() Sweep {
	if len(s.Clients) == 0 {
		s.Clients = DefaultClients
	}
	if s.Algorithm == protocol.AlgorithmChaum && s.Ratio == 0 {
		s.Ratio = DefaultChaumRatio
	}
	return s
}

// Activity returns a pointer to a, for setting Sweep.Activity.
func Activity(a float64) *float64 { return &a }

func (s Sweep) activity() float64 {
	if s.Activity == nil {
		return 1
	}
	return *s.Activity
}

// policies resolves the withdraw policies a footprint sweep iterates over.
// Without a behaviour the sweep runs once with DefaultWithdrawPolicy; a
// behaviour without percentages uses its default percentage.
func (s Sweep) policies() []protocol.WithdrawPolicy {
	if s.Withdraw == nil {
		return []protocol.WithdrawPolicy{protocol.DefaultWithdrawPolicy}
	}
	if len(s.Percentages) == 0 {
		return []protocol.WithdrawPolicy{{Behaviour: *s.Withdraw, Percentage: s.Withdraw.DefaultPercentage()}}
	}
	policies := make([]protocol.WithdrawPolicy, len(s.Percentages))
	for i, p := range s.Percentages {
		policies[i] = protocol.WithdrawPolicy{Behaviour: *s.Withdraw, Percentage: p}
	}
	return policies
}

// Validate checks the sweep parameters that are not covered by the engine
// configs of its points.
func (s Sweep) Validate() error {
	var result *multierror.Error
	if _, err := protocol.ParseAlgorithm(string(s.Algorithm)); err != nil {
		result = multierror.Append(result, err)
	}
	if s.Activity != nil {
		switch a := *s.Activity; {
		case a == 0:
			result = multierror.Append(result, fmt.Errorf("activity 0: %w", protocol.ErrNoActiveClients))
		case !(a > 0 && a <= 1):
			result = multierror.Append(result, fmt.Errorf("activity %v outside (0, 1]: %w", a, protocol.ErrInvalidConfig))
		}
	}
	for _, c := range s.Clients {
		if c <= 0 {
			result = multierror.Append(result, fmt.Errorf("client count %d: %w", c, protocol.ErrInvalidConfig))
		}
	}
	switch s.Algorithm {
	case protocol.AlgorithmFootprint:
		if s.Slots <= 0 {
			result = multierror.Append(result, fmt.Errorf("footprint sweep needs slots: %w", protocol.ErrInvalidConfig))
		}
		if s.Bits < 1 || s.Bits > 8 {
			result = multierror.Append(result, fmt.Errorf("%d bits: %w", s.Bits, protocol.ErrInvalidFootprintBits))
		}
		if s.Withdraw == nil && len(s.Percentages) > 0 {
			result = multierror.Append(result, fmt.Errorf("percentages without a withdraw behaviour: %w", protocol.ErrInvalidWithdrawPolicy))
		}
	case protocol.AlgorithmChaum:
		if s.Ratio < 0 {
			result = multierror.Append(result, fmt.Errorf("ratio %d: %w", s.Ratio, protocol.ErrInvalidConfig))
		}
	case protocol.AlgorithmPfitzmann:
		if s.SlotsPerClient <= 0 {
			result = multierror.Append(result, fmt.Errorf("pfitzmann sweep needs slots per client: %w", protocol.ErrInvalidConfig))
		}
	}
	return result.ErrorOrNil()
}

// Point is one cell of a sweep: a single engine configuration and the
// metadata its dataset rows carry.
type Point struct {
	// Index is the position of the point in its sweep, starting at 0.
	Index int
	// Total is the number of points in the sweep.
	Total int

	Meta aggregator.Metadata

	Chaum     *protocol.ChaumConfig
	Footprint *protocol.FootprintConfig
	Pfitzmann *protocol.PfitzmannConfig
}

// Points expands the sweep into its points: one per client count, and for
// Footprint one per client count and withdraw percentage.
func (s Sweep) Points() ([]Point, error) {
	s = s.withDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var points []Point
	for _, clients := range s.Clients {
		switch s.Algorithm {
		case protocol.AlgorithmChaum:
			slots := s.Ratio * clients
			points = append(points, Point{
				Meta:  aggregator.Metadata{Algorithm: s.Algorithm, Slots: slots, Rounds: 1, Bits: s.Ratio, Clients: clients, Activity: s.activity()},
				Chaum: &protocol.ChaumConfig{Clients: clients, Slots: slots, Activity: s.activity()},
			})
		case protocol.AlgorithmPfitzmann:
			slots := s.SlotsPerClient * clients
			points = append(points, Point{
				Meta:      aggregator.Metadata{Algorithm: s.Algorithm, Slots: slots, Rounds: 1, Bits: s.SlotsPerClient, Clients: clients, Activity: s.activity()},
				Pfitzmann: &protocol.PfitzmannConfig{Clients: clients, Slots: slots, Activity: s.activity()},
			})
		case protocol.AlgorithmFootprint:
			rounds := protocol.RoundsForClients(clients)
			for _, policy := range s.policies() {
				config := &protocol.FootprintConfig{
					Clients:           clients,
					Slots:             s.Slots,
					Rounds:            rounds,
					Bits:              s.Bits,
					Activity:          s.activity(),
					StopOnConvergence: s.StopOnConvergence,
					Mode:              s.Mode,
					Withdraw:          policy,
				}
				points = append(points, Point{
					Meta:      aggregator.Metadata{Algorithm: s.Algorithm, Slots: s.Slots, Rounds: rounds, Bits: s.Bits, Clients: clients, Activity: s.activity()},
					Footprint: config,
				})
			}
		}
	}
	for i := range points {
		points[i].Index = i
		points[i].Total = len(points)
	}
	return points, nil
}

// NewEngine builds a fresh engine for the point.
func (p Point) NewEngine(rng protocol.Rand, tracker protocol.Tracker, recorder protocol.RoundRecorder) (protocol.Engine, error) {
	switch {
	case p.Chaum != nil:
		return protocol.NewChaumEngine(*p.Chaum, rng, tracker, recorder)
	case p.Footprint != nil:
		return protocol.NewFootprintEngine(*p.Footprint, rng, tracker, recorder)
	case p.Pfitzmann != nil:
		return protocol.NewPfitzmannEngine(*p.Pfitzmann, rng, tracker, recorder)
	}
	return nil, fmt.Errorf("point %d has no engine configuration: %w", p.Index, protocol.ErrInvalidConfig)
}

// String renders the point the way progress lines show it.
func (p Point) String() string {
	head := fmt.Sprintf("[%d/%d] %d client(s)", p.Index+1, p.Total, p.Meta.Clients)
	switch {
	case p.Footprint != nil:
		return fmt.Sprintf("%s\t%d rounds\t%d slots\t%s", head, p.Footprint.Rounds, p.Footprint.Slots, p.Footprint.Withdraw)
	default:
		return fmt.Sprintf("%s\t%d slots", head, p.Meta.Slots)
	}
}
