// Package driver models the host-side driver of the batch engine. It
// performs the canonical bring-up sequence over the control port: write
// the register file, wait for the acknowledgment, set the go bit, and
// then feed batch-enqueue increments while the engine runs.
package driver

import (
	"log"
	"reflect"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/batchsim/config"
	"github.com/sarchlab/batchsim/sched"
)

type phase int

const (
	phaseConfig phase = iota
	phaseAwaitAck
	phaseGo
	phaseFeed
	phaseDone
)

// Comp drives one batch engine.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	// CtrlPort talks to the engine's control port.
	CtrlPort sim.Port

	engineCtrl sim.RemotePort
	regs       config.Registers

	totalBatches    uint64
	enqueueInterval int

	phase       phase
	batchesSent uint64
	cooldown    int
}

// Tick advances the driver by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// Done reports whether the driver has sent its whole workload.
func (c *Comp) Done() bool {
	return c.phase == phaseDone
}

type middleware struct {
	*Comp
}

func (m *middleware) Tick() bool {
	madeProgress := false

	madeProgress = m.processRsps() || madeProgress
	madeProgress = m.feedBatches() || madeProgress
	madeProgress = m.sendGo() || madeProgress
	madeProgress = m.sendConfig() || madeProgress

	return madeProgress
}

func (m *middleware) sendConfig() bool {
	if m.phase != phaseConfig {
		return false
	}

	req := sched.ConfigReqBuilder{}.
		WithSrc(m.CtrlPort.AsRemote()).
		WithDst(m.engineCtrl).
		WithRegisters(m.regs).
		Build()

	if err := m.CtrlPort.Send(req); err != nil {
		return false
	}

	m.phase = phaseAwaitAck

	return true
}

func (m *middleware) processRsps() bool {
	msg := m.CtrlPort.PeekIncoming()
	if msg == nil {
		return false
	}

	if _, ok := msg.(*sim.GeneralRsp); !ok {
		log.Panicf("cannot handle message of type %s", reflect.TypeOf(msg))
	}

	if m.phase != phaseAwaitAck {
		log.Panicf("%s: unexpected register acknowledgment", m.Name())
	}

	m.phase = phaseGo
	m.CtrlPort.RetrieveIncoming()

	return true
}

func (m *middleware) sendGo() bool {
	if m.phase != phaseGo {
		return false
	}

	req := sched.ControlReqBuilder{}.
		WithSrc(m.CtrlPort.AsRemote()).
		WithDst(m.engineCtrl).
		WithWord(config.CtrlGo).
		Build()

	if err := m.CtrlPort.Send(req); err != nil {
		return false
	}

	m.phase = phaseFeed
	m.cooldown = m.enqueueInterval

	return true
}

// feedBatches trickles enqueue increments into the running engine, one
// batch per interval, until the workload budget is spent.
func (m *middleware) feedBatches() bool {
	if m.phase != phaseFeed {
		return false
	}

	if m.batchesSent == m.totalBatches {
		m.phase = phaseDone
		return true
	}

	if m.cooldown > 0 {
		m.cooldown--
		return true
	}

	req := sched.EnqueueBatchReqBuilder{}.
		WithSrc(m.CtrlPort.AsRemote()).
		WithDst(m.engineCtrl).
		WithCount(1).
		Build()

	if err := m.CtrlPort.Send(req); err != nil {
		return false
	}

	m.batchesSent++
	m.cooldown = m.enqueueInterval

	return true
}

// Builder can build drivers.
type Builder struct {
	engine          sim.Engine
	freq            sim.Freq
	engineCtrl      sim.RemotePort
	regs            config.Registers
	totalBatches    uint64
	enqueueInterval int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:            1 * sim.GHz,
		totalBatches:    1,
		enqueueInterval: 1,
	}
}

// WithEngine sets the event engine to use.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the driver.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithEngineCtrlPort sets the batch engine control port to drive.
func (b Builder) WithEngineCtrlPort(port sim.RemotePort) Builder {
	b.engineCtrl = port
	return b
}

// WithRegisters sets the register values to program.
func (b Builder) WithRegisters(regs config.Registers) Builder {
	b.regs = regs
	return b
}

// WithTotalBatches sets how many batches to enqueue in total.
func (b Builder) WithTotalBatches(n uint64) Builder {
	b.totalBatches = n
	return b
}

// WithEnqueueInterval sets the number of cycles between enqueues.
func (b Builder) WithEnqueueInterval(cycles int) Builder {
	b.enqueueInterval = cycles
	return b
}

// Build creates a new driver.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		engineCtrl:      b.engineCtrl,
		regs:            b.regs,
		totalBatches:    b.totalBatches,
		enqueueInterval: b.enqueueInterval,
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.CtrlPort = sim.NewPort(c, 4, 4, name+".CtrlPort")

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
