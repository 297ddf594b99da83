package sched

import (
	"github.com/sarchlab/akita/v4/sim"
)

// fakePort is a deterministic stand-in for a connected port. Sends pile
// up in outgoing; tests inject completions through deliver. Setting
// blocked models a backpressured sub-channel.
type fakePort struct {
	sim.HookableBase

	name     string
	incoming []sim.Msg
	outgoing []sim.Msg
	blocked  bool
}

func newFakePort(name string) *fakePort {
	return &fakePort{name: name}
}

func (p *fakePort) Name() string {
	return p.name
}

func (p *fakePort) AsRemote() sim.RemotePort {
	return sim.RemotePort(p.name)
}

func (p *fakePort) SetConnection(conn sim.Connection) {}

func (p *fakePort) Component() sim.Component {
	return nil
}

func (p *fakePort) Deliver(msg sim.Msg) *sim.SendError {
	p.incoming = append(p.incoming, msg)
	return nil
}

func (p *fakePort) NotifyAvailable() {}

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

func (p *fakePort) deliver(msg sim.Msg) {
	p.incoming = append(p.incoming, msg)
}
