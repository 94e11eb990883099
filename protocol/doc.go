// Package protocol implements the slot-reservation schemes that anonymous
// broadcast networks use to hand out transmission slots in a fixed-size
// round without revealing who reserved what.
//
// # Reservation Engines
//
// Each engine runs one complete reservation cycle per Schedule call and
// reports its outcome tuple (collisions, required rounds, empty slots, bits
// per successful reservation) to a RoundRecorder, subject to a Tracker's
// sample budget:
//
//   - ChaumEngine: every active client picks one slot uniformly at random in
//     a single round. Contested slots are lost.
//
//   - FootprintEngine: clients XOR random footprints of 1 to 8 bits into
//     the slots they want over a fixed number of rounds. A client that
//     reads its own footprint back keeps the slot; otherwise it retries,
//     moves to a slot that reads zero or withdraws, as decided by a
//     WithdrawPolicy. Clients contest either one slot (SingleSlot) or all
//     slots at once (MultiSlot).
//
//   - PfitzmannEngine: clients publish only the sum and the count of their
//     slot numbers below a threshold. Repeatedly bisecting at the average
//     reveals every occupied slot, including slots shared by several
//     clients.
//
// # Withdraw Policies
//
// A WithdrawPolicy resolves to one probability per decision:
//
//   - Static: Percentage, every round.
//   - Linear: Percentage times the one-based round number.
//   - Reactive: Percentage times the load, the number of still contending
//     clients per slot.
//
// # Determinism
//
// All randomness comes from the Rand passed to an engine. Engines keep
// their per-cycle state in flat slices that are discarded when the cycle
// ends, so two engines fed identically seeded sources produce identical
// outcomes. Engines are not safe for concurrent use; run one engine per
// goroutine.
package protocol
