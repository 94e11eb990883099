package protocol

import (
	"fmt"
	"math"
	"strings"
)

// WithdrawBehaviour selects how the withdraw probability of a colliding
// footprint client is computed.
type WithdrawBehaviour int

const (
	// WithdrawStatic uses the same probability in every round.
	WithdrawStatic WithdrawBehaviour = iota
	// WithdrawLinear grows the probability by a fixed rate per round.
	WithdrawLinear
	// WithdrawReactive scales the probability with the current load.
	WithdrawReactive
)

var withdrawBehaviourNames = [...]string{"Static", "Linear", "Reactive"}

func (b WithdrawBehaviour) String() string {
	if b < 0 || int(b) >= len(withdrawBehaviourNames) {
		return fmt.Sprintf("WithdrawBehaviour(%d)", int(b))
	}
	return withdrawBehaviourNames[b]
}

// ParseWithdrawBehaviour matches s case-insensitively.
func ParseWithdrawBehaviour(s string) (WithdrawBehaviour, error) {
	for i, name := range withdrawBehaviourNames {
		if strings.EqualFold(s, name) {
			return WithdrawBehaviour(i), nil
		}
	}
	return 0, fmt.Errorf("unknown withdraw behaviour %q: %w", s, ErrInvalidWithdrawPolicy)
}

func (b WithdrawBehaviour) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *WithdrawBehaviour) UnmarshalText(text []byte) error {
	parsed, err := ParseWithdrawBehaviour(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// DefaultPercentage is the percentage used for b when none is given.
func (b WithdrawBehaviour) DefaultPercentage() float64 {
	switch b {
	case WithdrawLinear:
		return 0.002
	case WithdrawReactive:
		return 0.2
	default:
		return 0.7
	}
}

// DefaultWithdrawPolicy is used when no behaviour is configured at all.
var DefaultWithdrawPolicy = WithdrawPolicy{Behaviour: WithdrawStatic, Percentage: 0.75}

// WithdrawPolicy resolves to one withdraw probability per decision.
type WithdrawPolicy struct {
	Behaviour WithdrawBehaviour `json:"behaviour" yaml:"behaviour"`

	// Percentage is the fixed probability (Static), the per-round rate
	// (Linear) or the probability at a load of one client per slot
	// (Reactive).
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// Validate rejects unknown behaviours and percentages that are NaN,
// infinite or negative.
func (p WithdrawPolicy) Validate() error {
	if p.Behaviour < WithdrawStatic || p.Behaviour > WithdrawReactive {
		return fmt.Errorf("behaviour %v: %w", p.Behaviour, ErrInvalidWithdrawPolicy)
	}
	if math.IsNaN(p.Percentage) || math.IsInf(p.Percentage, 0) || p.Percentage < 0 {
		return fmt.Errorf("percentage %v: %w", p.Percentage, ErrInvalidWithdrawPolicy)
	}
	return nil
}

// Chance returns the withdraw probability for a decision taken after the
// given zero-based round. load is the number of clients still contesting
// a slot divided by the number of slots. The result is clamped to [0, 1].
func (p WithdrawPolicy) Chance(round int, load float64) float64 {
	var chance float64
	switch p.Behaviour {
	case WithdrawLinear:
		chance = p.Percentage * float64(round+1)
	case WithdrawReactive:
		chance = p.Percentage * load
	default:
		chance = p.Percentage
	}
	return math.Min(1, math.Max(0, chance))
}

func (p WithdrawPolicy) String() string {
	return fmt.Sprintf("%s (%v)", p.Behaviour, p.Percentage)
}
