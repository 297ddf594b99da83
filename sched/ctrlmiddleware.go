package sched

import (
	"log"
	"reflect"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/tracing"

	"github.com/sarchlab/batchsim/config"
)

// ctrlMiddleware is the batch manager proper: it owns the engine state
// machine, arms slots against the requested-batch quota, launches compute
// units, collects their results, retires drained slots, and keeps the
// status region current.
type ctrlMiddleware struct {
	*Comp
}

func (m *ctrlMiddleware) Tick() bool {
	madeProgress := false

	madeProgress = m.enterRunning() || madeProgress
	madeProgress = m.retireSlots() || madeProgress
	madeProgress = m.collectUnitDone() || madeProgress
	madeProgress = m.launchUnits() || madeProgress
	madeProgress = m.armSlots() || madeProgress
	madeProgress = m.processCtrlMsgs() || madeProgress
	madeProgress = m.publishStatus() || madeProgress

	return madeProgress
}

// enterRunning completes the Armed to Running transition once the
// one-time identifier record has left for the status region.
func (m *ctrlMiddleware) enterRunning() bool {
	if m.state != stateArmed || m.goReq == nil || !m.identSent {
		return false
	}

	m.state = stateRunning

	return true
}

// retireSlots returns fully drained slots to idle, completing their
// batches. After a stop request, the engine falls back to Armed once
// every slot has retired.
func (m *ctrlMiddleware) retireSlots() bool {
	madeProgress := false

	for _, s := range m.slots {
		if s.state != slotDraining || !s.out.Drained() {
			continue
		}

		s.out.Reset()
		s.state = slotIdle
		s.launchReq = nil
		m.stats.BatchesCompleted++
		madeProgress = true
	}

	if m.state == stateDraining && m.allSlotsIdle() {
		m.state = stateArmed
		m.goReq = nil
		madeProgress = true
	}

	return madeProgress
}

func (m *ctrlMiddleware) allSlotsIdle() bool {
	for _, s := range m.slots {
		if s.busy() {
			return false
		}
	}

	return true
}

// collectUnitDone accepts done responses from compute units and commits
// their result batches into the output staging buffers through the
// narrow write port.
func (m *ctrlMiddleware) collectUnitDone() bool {
	madeProgress := false

	for {
		msg := m.UnitPort.PeekIncoming()
		if msg == nil {
			break
		}

		rsp, ok := msg.(*UnitDoneRsp)
		if !ok {
			log.Panicf("cannot handle message of type %s", reflect.TypeOf(msg))
		}

		s := m.slots[rsp.SlotID]
		if s.state != slotRunning {
			log.Panicf("%s: done from slot %d that is not running",
				m.Name(), rsp.SlotID)
		}

		for word, data := range rsp.Lines {
			s.out.Write(word, data)
		}

		if !s.out.Full() {
			log.Panicf("%s: slot %d reported done with an incomplete result",
				m.Name(), rsp.SlotID)
		}

		s.state = slotDraining
		m.UnitPort.RetrieveIncoming()

		if s.launchReq != nil {
			tracing.TraceReqFinalize(s.launchReq, m.Comp)
		}

		madeProgress = true
	}

	return madeProgress
}

// launchUnits starts the compute unit of every slot whose input buffer
// just became full. The start pulse is consumed exactly once per fill
// cycle, on successful delivery of the launch.
func (m *ctrlMiddleware) launchUnits() bool {
	madeProgress := false

	for _, s := range m.slots {
		if s.state != slotFilling || !s.in.Full() {
			continue
		}

		req := LaunchReqBuilder{}.
			WithSrc(m.UnitPort.AsRemote()).
			WithDst(s.unit).
			WithSlotID(s.id).
			WithLines(s.in.Lines()).
			Build()

		err := m.UnitPort.Send(req)
		if err != nil {
			continue
		}

		if !s.in.TakeStartPulse() {
			log.Panicf("%s: slot %d started twice in one fill cycle",
				m.Name(), s.id)
		}

		s.in.Drain()
		s.state = slotRunning
		s.launchReq = req
		m.stats.BatchesLaunched++

		if m.goReq != nil {
			tracing.TraceReqInitiate(req, m.Comp,
				tracing.MsgIDAtReceiver(m.goReq, m.Comp))
		}

		madeProgress = true
	}

	return madeProgress
}

// armSlots moves idle slots to filling while unconsumed requested-batch
// quota remains.
func (m *ctrlMiddleware) armSlots() bool {
	if m.state != stateRunning {
		return false
	}

	madeProgress := false

	for _, s := range m.slots {
		if s.state != slotIdle {
			continue
		}

		if m.batchesArmed >= m.regs.BatchesRequested {
			break
		}

		s.state = slotFilling
		m.batchesArmed++
		madeProgress = true
	}

	return madeProgress
}

// processCtrlMsgs handles register writes from the host driver.
func (m *ctrlMiddleware) processCtrlMsgs() bool {
	madeProgress := false

	for {
		msg := m.CtrlPort.PeekIncoming()
		if msg == nil {
			break
		}

		switch msg := msg.(type) {
		case *ConfigReq:
			if !m.handleConfigReq(msg) {
				return madeProgress
			}
		case *ControlReq:
			m.handleControlReq(msg)
		case *EnqueueBatchReq:
			m.handleEnqueueBatchReq(msg)
		default:
			log.Panicf("cannot handle message of type %s", reflect.TypeOf(msg))
		}

		m.CtrlPort.RetrieveIncoming()
		madeProgress = true
	}

	return madeProgress
}

func (m *ctrlMiddleware) handleConfigReq(req *ConfigReq) bool {
	if m.state != stateConfiguring && m.state != stateArmed {
		log.Panicf("%s: register write after the go bit", m.Name())
	}

	if !req.Regs.Aligned(m.geometry) {
		log.Panicf("%s: base addresses are not aligned to the batch regions",
			m.Name())
	}

	rsp := req.GenerateRsp()
	if err := m.CtrlPort.Send(rsp); err != nil {
		return false
	}

	m.regs = req.Regs
	m.state = stateArmed

	tracing.TraceReqReceive(req, m.Comp)

	return true
}

func (m *ctrlMiddleware) handleControlReq(req *ControlReq) {
	if req.Word&config.CtrlGo != 0 {
		if m.state != stateArmed {
			log.Panicf("%s: go bit set before the registers are armed",
				m.Name())
		}

		m.goReq = req
		tracing.TraceReqReceive(req, m.Comp)
	}

	if req.Word&config.CtrlStop != 0 && m.state == stateRunning {
		m.state = stateDraining
	}
}

func (m *ctrlMiddleware) handleEnqueueBatchReq(req *EnqueueBatchReq) {
	if m.state == stateConfiguring {
		log.Panicf("%s: batch enqueued before the registers are written",
			m.Name())
	}

	m.regs.BatchesRequested += req.Count
}

// publishStatus queues status-region writes: the identifier record once
// after go, then a progress record on every busy-bitmap or completion
// change.
func (m *ctrlMiddleware) publishStatus() bool {
	madeProgress := false

	if m.goReq != nil && !m.identBuilt {
		m.queueStatusWrite(
			m.regs.StatusBase+StatusIdentOffset, encodeIdentRecord())
		m.identBuilt = true
		madeProgress = true
	}

	if !m.identBuilt {
		return madeProgress
	}

	bitmap := m.busyBitmap()
	completed := m.stats.BatchesCompleted

	if !m.bitmapValid || bitmap != m.lastBitmap || completed != m.lastCompleted {
		m.queueStatusWrite(
			m.regs.StatusBase+StatusProgressOffset,
			encodeProgressRecord(bitmap, completed))

		m.lastBitmap = bitmap
		m.lastCompleted = completed
		m.bitmapValid = true
		madeProgress = true
	}

	return madeProgress
}

func (m *ctrlMiddleware) queueStatusWrite(addr uint64, data []byte) {
	req := mem.WriteReqBuilder{}.
		WithSrc(m.WritePort.AsRemote()).
		WithDst(m.memMapper.Find(addr)).
		WithAddress(addr).
		WithData(data).
		Build()

	m.statusQueue = append(m.statusQueue, req)
}
