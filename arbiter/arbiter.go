// Package arbiter provides the round-robin slot arbiter used by the
// batch engine. Each direction of the memory channel owns one arbiter;
// the two rotate independently.
package arbiter

import "log"

// RoundRobin selects one slot per scheduling step among those that have
// work, resuming after the last slot it granted. A slot therefore waits
// at most N-1 grants between service opportunities.
type RoundRobin struct {
	numSlots int
	pointer  int
}

// New creates a round-robin arbiter over numSlots slots.
func New(numSlots int) *RoundRobin {
	if numSlots < 1 {
		log.Panicf("arbiter needs at least 1 slot, got %d", numSlots)
	}

	return &RoundRobin{numSlots: numSlots}
}

// Pick scans from the current pointer and returns the first slot for
// which eligible returns true. It does not move the pointer: a pick only
// becomes a grant once the issuer actually sent the request, so a
// backpressured step retries the same slot.
func (a *RoundRobin) Pick(eligible func(slot int) bool) (int, bool) {
	for i := 0; i < a.numSlots; i++ {
		slot := (a.pointer + i) % a.numSlots
		if eligible(slot) {
			return slot, true
		}
	}

	return 0, false
}

// Grant commits a pick: the pointer moves to the slot after the one
// serviced, so every other eligible slot gets a chance before this one
// is seen again.
func (a *RoundRobin) Grant(slot int) {
	if slot < 0 || slot >= a.numSlots {
		log.Panicf("granting slot %d outside [0, %d)", slot, a.numSlots)
	}

	a.pointer = (slot + 1) % a.numSlots
}

// Pointer returns the slot the next scan starts from.
func (a *RoundRobin) Pointer() int {
	return a.pointer
}
