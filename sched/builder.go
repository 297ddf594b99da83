package sched

import (
	"fmt"
	"log"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/batchsim/arbiter"
	"github.com/sarchlab/batchsim/config"
	"github.com/sarchlab/batchsim/staging"
)

// Builder can build batch engine components.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	geometry  *config.Geometry
	memMapper mem.AddressToPortMapper

	ctrlBufSize int
	memBufSize  int
	unitBufSize int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:        1 * sim.GHz,
		geometry:    config.DefaultGeometry(),
		ctrlBufSize: 4,
		memBufSize:  16,
		unitBufSize: 4,
	}
}

// WithEngine sets the event engine to use.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the engine.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithGeometry sets the slot count and staging-buffer shape.
func (b Builder) WithGeometry(geometry *config.Geometry) Builder {
	b.geometry = geometry
	return b
}

// WithMemPortMapper sets the mapper that locates the memory controller
// port for an address.
func (b Builder) WithMemPortMapper(mapper mem.AddressToPortMapper) Builder {
	b.memMapper = mapper
	return b
}

// Build creates a new batch engine component.
func (b Builder) Build(name string) *Comp {
	b.geometryMustBeBuildable()

	c := &Comp{
		geometry:      b.geometry,
		memMapper:     b.memMapper,
		readArb:       arbiter.New(b.geometry.NumSlots),
		writeArb:      arbiter.New(b.geometry.NumSlots),
		pendingReads:  make(map[string]*mem.ReadReq),
		pendingWrites: make(map[string]*mem.WriteReq),
		pendingStatus: make(map[string]*mem.WriteReq),
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.CtrlPort = sim.NewPort(c, b.ctrlBufSize, b.ctrlBufSize,
		name+".CtrlPort")
	c.ReadPort = sim.NewPort(c, b.memBufSize, 1, name+".ReadPort")
	c.WritePort = sim.NewPort(c, b.memBufSize, 1, name+".WritePort")
	c.UnitPort = sim.NewPort(c, b.unitBufSize, b.unitBufSize,
		name+".UnitPort")

	for i := 0; i < b.geometry.NumSlots; i++ {
		c.slots = append(c.slots, &slot{
			id: i,
			in: staging.NewInputBuffer(
				fmt.Sprintf("%s.Slot%d.InBuf", name, i),
				b.geometry.InputLines,
				b.geometry.InputLineBytes,
				b.geometry.UnitReadBytes,
			),
			out: staging.NewOutputBuffer(
				fmt.Sprintf("%s.Slot%d.OutBuf", name, i),
				b.geometry.OutputLines,
				b.geometry.OutputLineBytes,
				b.geometry.UnitWriteBytes,
			),
		})
	}

	c.AddMiddleware(&respondMiddleware{Comp: c})
	c.AddMiddleware(&ctrlMiddleware{Comp: c})
	c.AddMiddleware(&issueMiddleware{Comp: c})

	return c
}

// geometryMustBeBuildable rejects geometries the engine cannot schedule:
// the busy bitmap is one 64-bit word and tags must stay unique.
func (b Builder) geometryMustBeBuildable() {
	if err := b.geometry.Validate(); err != nil {
		log.Panic(err)
	}

	if b.geometry.NumSlots > 64 {
		log.Panicf("busy bitmap holds at most 64 slots, got %d",
			b.geometry.NumSlots)
	}

	if b.geometry.NumSlots-1 > tagMaxSlot {
		log.Panicf("slot index does not fit in the tag encoding")
	}

	maxLines := b.geometry.InputLines
	if b.geometry.OutputLines > maxLines {
		maxLines = b.geometry.OutputLines
	}

	if maxLines-1 > tagMaxLine {
		log.Panicf("line index does not fit in the tag encoding")
	}
}
