// Package unit models the compute unit each slot of the batch engine is
// bound to. The unit is opaque: it accepts a complete task batch with
// the launch, holds it for a fixed number of cycles, and returns a
// complete result batch with the done response. What it computes is a
// pluggable function.
package unit

import (
	"log"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/batchsim/config"
	"github.com/sarchlab/batchsim/sched"
)

// A Kernel turns a task batch into the result words the unit writes
// back, one element per write-port word.
type Kernel func(task [][]byte) [][]byte

// DefaultKernel expands the task batch into the configured number of
// result words deterministically, so end-to-end runs are repeatable.
func DefaultKernel(g *config.Geometry) Kernel {
	numWords := int(g.OutputSpanBytes()) / g.UnitWriteBytes

	return func(task [][]byte) [][]byte {
		var flat []byte
		for _, line := range task {
			flat = append(flat, line...)
		}

		words := make([][]byte, numWords)
		for i := range words {
			word := make([]byte, g.UnitWriteBytes)
			for j := range word {
				word[j] = flat[(i*g.UnitWriteBytes+j)%len(flat)] ^ byte(i)
			}
			words[i] = word
		}

		return words
	}
}

type transaction struct {
	req        *sched.LaunchReq
	cyclesLeft int
}

// Comp is a fixed-latency compute unit.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	// TaskPort receives launches and returns done responses.
	TaskPort sim.Port

	latency int
	kernel  Kernel

	current *transaction
}

// Tick advances the unit by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// Busy reports whether the unit holds a task.
func (c *Comp) Busy() bool {
	return c.current != nil
}

type middleware struct {
	*Comp
}

func (m *middleware) Tick() bool {
	madeProgress := false

	madeProgress = m.sendDone() || madeProgress
	madeProgress = m.countDown() || madeProgress
	madeProgress = m.processLaunch() || madeProgress

	return madeProgress
}

func (m *middleware) processLaunch() bool {
	if m.current != nil {
		return false
	}

	msg := m.TaskPort.PeekIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(*sched.LaunchReq)
	if !ok {
		log.Panicf("%s: cannot handle message %T", m.Name(), msg)
	}

	m.current = &transaction{req: req, cyclesLeft: m.latency}
	m.TaskPort.RetrieveIncoming()

	return true
}

func (m *middleware) countDown() bool {
	if m.current == nil || m.current.cyclesLeft == 0 {
		return false
	}

	m.current.cyclesLeft--

	return true
}

func (m *middleware) sendDone() bool {
	if m.current == nil || m.current.cyclesLeft > 0 {
		return false
	}

	req := m.current.req
	rsp := sched.UnitDoneRspBuilder{}.
		WithSrc(m.TaskPort.AsRemote()).
		WithDst(req.Src).
		WithSlotID(req.SlotID).
		WithLines(m.kernel(req.Lines)).
		WithRspTo(req.ID).
		Build()

	if err := m.TaskPort.Send(rsp); err != nil {
		return false
	}

	m.current = nil

	return true
}

// Builder can build compute units.
type Builder struct {
	engine  sim.Engine
	freq    sim.Freq
	latency int
	kernel  Kernel
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:    1 * sim.GHz,
		latency: 32,
	}
}

// WithEngine sets the event engine to use.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the unit.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithLatency sets how many cycles the unit holds a task batch.
func (b Builder) WithLatency(latency int) Builder {
	b.latency = latency
	return b
}

// WithKernel sets the function the unit applies to each task batch.
func (b Builder) WithKernel(kernel Kernel) Builder {
	b.kernel = kernel
	return b
}

// Build creates a new compute unit.
func (b Builder) Build(name string) *Comp {
	if b.kernel == nil {
		log.Panicf("%s: compute unit needs a kernel", name)
	}

	c := &Comp{
		latency: b.latency,
		kernel:  b.kernel,
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.TaskPort = sim.NewPort(c, 2, 2, name+".TaskPort")

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
