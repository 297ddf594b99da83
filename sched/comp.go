// Package sched implements the batch engine: the component that fetches
// task batches from memory into per-slot staging buffers, hands them to
// compute units, and drains result batches back to memory over a single
// shared, backpressure-aware memory channel pair.
package sched

import (
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/batchsim/arbiter"
	"github.com/sarchlab/batchsim/config"
	"github.com/sarchlab/batchsim/staging"
)

// engineState is the top-level state of the batch engine.
type engineState int

const (
	// stateConfiguring waits for the first register write.
	stateConfiguring engineState = iota

	// stateArmed has valid registers and waits for the go bit.
	stateArmed

	// stateRunning schedules batches.
	stateRunning

	// stateDraining finishes in-flight batches after a stop request and
	// arms no new ones.
	stateDraining
)

// slotState tracks one slot through its fill/run/drain cycle.
type slotState int

const (
	slotIdle slotState = iota
	slotFilling
	slotRunning
	slotDraining
)

// A slot pairs one input and one output staging buffer with one compute
// unit. A slot is in exactly one slotState at any step.
type slot struct {
	id    int
	state slotState

	in  *staging.InputBuffer
	out *staging.OutputBuffer

	unit      sim.RemotePort
	launchReq *LaunchReq
}

func (s *slot) busy() bool {
	return s.state != slotIdle
}

// Stats counts the externally observable work the engine has done.
type Stats struct {
	// ReadsIssued is the number of read requests sent to memory.
	ReadsIssued uint64

	// WritesIssued is the number of drain write requests sent to memory.
	WritesIssued uint64

	// StatusWrites is the number of status-region writes sent to memory.
	StatusWrites uint64

	// BatchesLaunched is the number of task batches handed to units.
	BatchesLaunched uint64

	// BatchesCompleted is the number of result batches fully drained.
	BatchesCompleted uint64
}

// Comp is the batch engine component. One tick is one scheduling step:
// completions are routed first, then the manager state machine advances,
// then at most one request per direction is issued.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	// CtrlPort receives register writes from the host driver.
	CtrlPort sim.Port

	// ReadPort is the read sub-channel: read requests out, data
	// completions in.
	ReadPort sim.Port

	// WritePort is the write sub-channel: write requests out, write-done
	// completions in.
	WritePort sim.Port

	// UnitPort carries launch requests to and done responses from every
	// compute unit.
	UnitPort sim.Port

	geometry  *config.Geometry
	memMapper mem.AddressToPortMapper

	state        engineState
	regs         config.Registers
	goReq        *ControlReq
	identBuilt   bool
	identSent    bool
	batchesArmed uint64

	slots    []*slot
	readArb  *arbiter.RoundRobin
	writeArb *arbiter.RoundRobin

	pendingReads  map[string]*mem.ReadReq
	pendingWrites map[string]*mem.WriteReq
	pendingStatus map[string]*mem.WriteReq

	statusQueue   []*mem.WriteReq
	lastBitmap    uint64
	lastCompleted uint64
	bitmapValid   bool

	stats Stats
}

// Tick advances the engine by one scheduling step.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// Stats returns the engine's progress counters.
func (c *Comp) Stats() Stats {
	return c.stats
}

// BindUnit attaches a compute unit to a slot. Must be called for every
// slot before the engine is started.
func (c *Comp) BindUnit(slotID int, unit sim.RemotePort) {
	c.slots[slotID].unit = unit
}

// busyBitmap builds the per-slot busy word surfaced in the status region.
func (c *Comp) busyBitmap() uint64 {
	var bitmap uint64

	for _, s := range c.slots {
		if s.busy() {
			bitmap |= 1 << uint(s.id)
		}
	}

	return bitmap
}

// readAddr computes the memory address of one input line. Base alignment
// to the whole multi-slot region is checked at arming time, so the XOR
// composes the offset exactly like an addition.
func (c *Comp) readAddr(slotID, line int) uint64 {
	offset := uint64(slotID)*c.geometry.InputSpanBytes() +
		uint64(line)*uint64(c.geometry.InputLineBytes)

	return c.regs.SrcBase ^ offset
}

// writeAddr computes the memory address of one output line.
func (c *Comp) writeAddr(slotID, line int) uint64 {
	offset := uint64(slotID)*c.geometry.OutputSpanBytes() +
		uint64(line)*uint64(c.geometry.OutputLineBytes)

	return c.regs.DstBase ^ offset
}
