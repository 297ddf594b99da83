package unit

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/batchsim/config"
	"github.com/sarchlab/batchsim/sched"
)

// fakePort stands in for the connected task port.
type fakePort struct {
	sim.HookableBase

	name     string
	incoming []sim.Msg
	outgoing []sim.Msg
	blocked  bool
}

func (p *fakePort) Name() string { return p.name }

func (p *fakePort) AsRemote() sim.RemotePort { return sim.RemotePort(p.name) }

func (p *fakePort) SetConnection(c sim.Connection) {}

func (p *fakePort) Component() sim.Component { return nil }

func (p *fakePort) NotifyAvailable() {}

func (p *fakePort) Deliver(msg sim.Msg) *sim.SendError {
	p.incoming = append(p.incoming, msg)
	return nil
}

func (p *fakePort) RetrieveOutgoing() sim.Msg {
	if len(p.outgoing) == 0 {
		return nil
	}

	msg := p.outgoing[0]
	p.outgoing = p.outgoing[1:]

	return msg
}

func (p *fakePort) PeekOutgoing() sim.Msg {
	if len(p.outgoing) == 0 {
		return nil
	}

	return p.outgoing[0]
}

func (p *fakePort) CanSend() bool {
	return !p.blocked
}

func (p *fakePort) Send(msg sim.Msg) *sim.SendError {
	if p.blocked {
		return sim.NewSendError()
	}

	p.outgoing = append(p.outgoing, msg)

	return nil
}

func (p *fakePort) RetrieveIncoming() sim.Msg {
	if len(p.incoming) == 0 {
		return nil
	}

	msg := p.incoming[0]
	p.incoming = p.incoming[1:]

	return msg
}

func (p *fakePort) PeekIncoming() sim.Msg {
	if len(p.incoming) == 0 {
		return nil
	}

	return p.incoming[0]
}

var _ = Describe("DefaultKernel", func() {
	var g *config.Geometry

	BeforeEach(func() {
		g = &config.Geometry{
			NumSlots:        1,
			InputLines:      2,
			InputLineBytes:  8,
			OutputLines:     2,
			OutputLineBytes: 8,
			UnitWriteBytes:  4,
			UnitReadBytes:   4,
			UnitLatency:     2,
		}
	})

	task := func() [][]byte {
		return [][]byte{
			{0, 1, 2, 3, 4, 5, 6, 7},
			{8, 9, 10, 11, 12, 13, 14, 15},
		}
	}

	It("should produce one word per write-port transfer", func() {
		words := DefaultKernel(g)(task())

		Expect(words).To(HaveLen(4))
		for _, word := range words {
			Expect(word).To(HaveLen(4))
		}
	})

	It("should be deterministic", func() {
		kernel := DefaultKernel(g)

		Expect(kernel(task())).To(Equal(kernel(task())))
	})

	It("should depend on the task data", func() {
		kernel := DefaultKernel(g)
		other := task()
		other[0][0] = 0xAA

		Expect(kernel(task())).NotTo(Equal(kernel(other)))
	})
})

var _ = Describe("Comp", func() {
	var (
		u    *Comp
		port *fakePort
	)

	launch := func() *sched.LaunchReq {
		return sched.LaunchReqBuilder{}.
			WithSrc(sim.RemotePort("Engine.UnitPort")).
			WithDst(port.AsRemote()).
			WithSlotID(3).
			WithLines([][]byte{{1, 2, 3, 4}}).
			Build()
	}

	echoKernel := func(task [][]byte) [][]byte {
		return task
	}

	BeforeEach(func() {
		engine := sim.NewSerialEngine()
		u = MakeBuilder().
			WithEngine(engine).
			WithLatency(3).
			WithKernel(echoKernel).
			Build("Unit")

		port = &fakePort{name: "Unit.TaskPort"}
		u.TaskPort = port
	})

	It("should hold the task for the configured latency", func() {
		port.incoming = append(port.incoming, launch())

		u.Tick() // accepts the launch
		Expect(u.Busy()).To(BeTrue())

		// Three countdown steps, then the done leaves on the next step.
		for i := 0; i < 4; i++ {
			Expect(port.PeekOutgoing()).To(BeNil())
			u.Tick()
		}

		Expect(port.PeekOutgoing()).NotTo(BeNil())
	})

	It("should answer with the kernel result", func() {
		req := launch()
		port.incoming = append(port.incoming, req)

		for i := 0; i < 5; i++ {
			u.Tick()
		}

		rsp := port.RetrieveOutgoing().(*sched.UnitDoneRsp)
		Expect(rsp.SlotID).To(Equal(3))
		Expect(rsp.RespondTo).To(Equal(req.ID))
		Expect(rsp.Lines).To(Equal([][]byte{{1, 2, 3, 4}}))
		Expect(u.Busy()).To(BeFalse())
	})

	It("should retry the done response under backpressure", func() {
		port.incoming = append(port.incoming, launch())
		port.blocked = true

		for i := 0; i < 10; i++ {
			u.Tick()
		}

		Expect(u.Busy()).To(BeTrue())

		port.blocked = false
		u.Tick()

		Expect(port.PeekOutgoing()).NotTo(BeNil())
		Expect(u.Busy()).To(BeFalse())
	})

	It("should take one task at a time", func() {
		port.incoming = append(port.incoming, launch(), launch())

		u.Tick()

		Expect(port.incoming).To(HaveLen(1))
	})

	It("should panic on a message it cannot handle", func() {
		rsp := sched.UnitDoneRspBuilder{}.
			WithSrc(sim.RemotePort("Elsewhere")).
			WithDst(port.AsRemote()).
			Build()
		port.incoming = append(port.incoming, rsp)

		Expect(func() { u.Tick() }).To(Panic())
	})

	It("should panic when built without a kernel", func() {
		Expect(func() {
			MakeBuilder().
				WithEngine(sim.NewSerialEngine()).
				Build("NoKernel")
		}).To(Panic())
	})
})
