package protocol

import "errors"

var (
	// ErrInvalidConfig is returned for structurally invalid engine
	// parameters such as zero slots or zero clients.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoActiveClients is returned when the activity level leaves no
	// client to take part in a cycle.
	ErrNoActiveClients = errors.New("no active clients")

	// ErrInvalidFootprintBits is returned for footprint widths outside 1..8.
	ErrInvalidFootprintBits = errors.New("footprint width must be between 1 and 8 bits")

	// ErrInvalidWithdrawPolicy is returned for unknown behaviours and
	// malformed percentages.
	ErrInvalidWithdrawPolicy = errors.New("invalid withdraw policy")

	// ErrNoSuccessfulReservations is returned by a cycle that ended without
	// a single successful reservation; its per-reservation cost is undefined.
	ErrNoSuccessfulReservations = errors.New("no successful reservations")

	// ErrInvariantViolated signals corrupted engine state.
	ErrInvariantViolated = errors.New("invariant violated")
)
