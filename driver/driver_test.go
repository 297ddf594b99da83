package driver

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/batchsim/config"
	"github.com/sarchlab/batchsim/sched"
)

// fakePort stands in for the connected control port.
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

var _ = Describe("Driver", func() {
	var (
		d    *Comp
		port *fakePort
		regs config.Registers
	)

	ackConfig := func(req *sched.ConfigReq) {
		port.incoming = append(port.incoming, req.GenerateRsp())
	}

	BeforeEach(func() {
		regs = config.Registers{
			SrcBase:    0x1000,
			DstBase:    0x2000,
			StatusBase: 0x100,
		}

		engine := sim.NewSerialEngine()
		d = MakeBuilder().
			WithEngine(engine).
			WithEngineCtrlPort(sim.RemotePort("Engine.CtrlPort")).
			WithRegisters(regs).
			WithTotalBatches(3).
			WithEnqueueInterval(2).
			Build("Host")

		port = &fakePort{name: "Host.CtrlPort"}
		d.CtrlPort = port
	})

	It("should write the register file first", func() {
		d.Tick()

		req, ok := port.RetrieveOutgoing().(*sched.ConfigReq)
		Expect(ok).To(BeTrue())
		Expect(req.Regs).To(Equal(regs))
		Expect(req.Dst).To(Equal(sim.RemotePort("Engine.CtrlPort")))
	})

	It("should wait for the acknowledgment before the go bit", func() {
		d.Tick()
		port.RetrieveOutgoing()

		d.Tick()
		d.Tick()

		Expect(port.PeekOutgoing()).To(BeNil())
	})

	It("should set the go bit once acknowledged", func() {
		d.Tick()
		req := port.RetrieveOutgoing().(*sched.ConfigReq)
		ackConfig(req)

		d.Tick() // consumes the acknowledgment
		d.Tick()

		ctrl, ok := port.RetrieveOutgoing().(*sched.ControlReq)
		Expect(ok).To(BeTrue())
		Expect(ctrl.Word & config.CtrlGo).NotTo(BeZero())
	})

	It("should enqueue the workload one batch at a time", func() {
		d.Tick()
		ackConfig(port.RetrieveOutgoing().(*sched.ConfigReq))
		d.Tick()
		d.Tick()
		port.RetrieveOutgoing() // the go control word

		var counts []uint64
		for i := 0; i < 20 && !d.Done(); i++ {
			d.Tick()

			if msg := port.RetrieveOutgoing(); msg != nil {
				counts = append(counts, msg.(*sched.EnqueueBatchReq).Count)
			}
		}

		Expect(counts).To(Equal([]uint64{1, 1, 1}))
		Expect(d.Done()).To(BeTrue())
	})

	It("should retry the register write under backpressure", func() {
		port.blocked = true

		d.Tick()
		d.Tick()

		Expect(port.outgoing).To(BeEmpty())

		port.blocked = false
		d.Tick()

		_, ok := port.RetrieveOutgoing().(*sched.ConfigReq)
		Expect(ok).To(BeTrue())
	})

	It("should panic on an acknowledgment it never asked for", func() {
		rsp := sim.GeneralRspBuilder{}.
			WithSrc(sim.RemotePort("Engine.CtrlPort")).
			WithDst(port.AsRemote()).
			Build()
		port.incoming = append(port.incoming, rsp)

		Expect(func() { d.Tick() }).To(Panic())
	})
})
