package sched

import (
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/tracing"
)

// issueMiddleware converts staging-buffer fill and drain needs into
// memory requests. Each direction issues at most one request per step,
// picks its slot through its own round-robin arbiter, and samples the
// sub-channel's backpressure freshly before sending. A backpressured
// step changes no state at all: the same slot retries next step, with
// nothing lost and nothing duplicated.
type issueMiddleware struct {
	*Comp
}

func (m *issueMiddleware) Tick() bool {
	madeProgress := false

	madeProgress = m.issueWrite() || madeProgress
	madeProgress = m.issueRead() || madeProgress

	return madeProgress
}

// issueWrite issues the one write-direction request of this step.
// Queued status-region writes go first; drain writes compete through the
// write arbiter.
func (m *issueMiddleware) issueWrite() bool {
	if len(m.statusQueue) > 0 {
		return m.issueStatusWrite()
	}

	slotID, ok := m.writeArb.Pick(func(i int) bool {
		s := m.slots[i]
		return s.state == slotDraining && s.out.DrainValid()
	})
	if !ok {
		return false
	}

	if !m.WritePort.CanSend() {
		return false
	}

	s := m.slots[slotID]
	line := s.out.NextDrainLine()
	addr := m.writeAddr(slotID, line)
	tag := Tag{Dir: DirWrite, Slot: slotID, Line: line}

	data := make([]byte, len(s.out.Line(line)))
	copy(data, s.out.Line(line))

	req := mem.WriteReqBuilder{}.
		WithSrc(m.WritePort.AsRemote()).
		WithDst(m.memMapper.Find(addr)).
		WithAddress(addr).
		WithData(data).
		WithInfo(tag.Encode()).
		Build()

	if err := m.WritePort.Send(req); err != nil {
		return false
	}

	s.out.MarkRequested()
	m.writeArb.Grant(slotID)
	m.pendingWrites[req.ID] = req
	m.stats.WritesIssued++

	if m.goReq != nil {
		tracing.TraceReqInitiate(req, m.Comp,
			tracing.MsgIDAtReceiver(m.goReq, m.Comp))
	}

	return true
}

func (m *issueMiddleware) issueStatusWrite() bool {
	if !m.WritePort.CanSend() {
		return false
	}

	req := m.statusQueue[0]
	if err := m.WritePort.Send(req); err != nil {
		return false
	}

	m.statusQueue = m.statusQueue[1:]
	m.pendingStatus[req.ID] = req
	m.stats.StatusWrites++

	// The identifier record is always the first status write queued.
	m.identSent = true

	return true
}

// issueRead issues the one read-direction request of this step.
func (m *issueMiddleware) issueRead() bool {
	if m.state != stateRunning && m.state != stateDraining {
		return false
	}

	slotID, ok := m.readArb.Pick(func(i int) bool {
		s := m.slots[i]
		return s.state == slotFilling && s.in.RequestValid()
	})
	if !ok {
		return false
	}

	if !m.ReadPort.CanSend() {
		return false
	}

	s := m.slots[slotID]
	line := s.in.NextRequestLine()
	addr := m.readAddr(slotID, line)
	tag := Tag{Dir: DirRead, Slot: slotID, Line: line}

	req := mem.ReadReqBuilder{}.
		WithSrc(m.ReadPort.AsRemote()).
		WithDst(m.memMapper.Find(addr)).
		WithAddress(addr).
		WithByteSize(uint64(m.geometry.InputLineBytes)).
		WithInfo(tag.Encode()).
		Build()

	if err := m.ReadPort.Send(req); err != nil {
		return false
	}

	s.in.MarkRequested()
	m.readArb.Grant(slotID)
	m.pendingReads[req.ID] = req
	m.stats.ReadsIssued++

	if m.goReq != nil {
		tracing.TraceReqInitiate(req, m.Comp,
			tracing.MsgIDAtReceiver(m.goReq, m.Comp))
	}

	return true
}
