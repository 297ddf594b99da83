package sched

import (
	"log"
	"reflect"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/tracing"
)

// respondMiddleware demultiplexes memory completions back to the staging
// buffer that issued the corresponding request. It performs no
// reordering: the tag recovered from the original request decides where
// a completion goes, not its arrival order.
type respondMiddleware struct {
	*Comp
}

func (m *respondMiddleware) Tick() bool {
	madeProgress := false

	madeProgress = m.routeReadCompletions() || madeProgress
	madeProgress = m.routeWriteCompletions() || madeProgress

	return madeProgress
}

// routeReadCompletions deposits returned data into the input buffer line
// the tag names. Completions are never dropped: everything waiting on
// the port is consumed this step.
func (m *respondMiddleware) routeReadCompletions() bool {
	madeProgress := false

	for {
		msg := m.ReadPort.PeekIncoming()
		if msg == nil {
			break
		}

		rsp, ok := msg.(*mem.DataReadyRsp)
		if !ok {
			log.Panicf("cannot handle message of type %s", reflect.TypeOf(msg))
		}

		req, found := m.pendingReads[rsp.RespondTo]
		if !found {
			log.Panicf("%s: read completion %s matches no in-flight request",
				m.Name(), rsp.RespondTo)
		}

		tag := DecodeTag(req.Info.(uint64))
		m.slots[tag.Slot].in.Fill(tag.Line, rsp.Data)

		delete(m.pendingReads, rsp.RespondTo)
		m.ReadPort.RetrieveIncoming()

		tracing.TraceReqFinalize(req, m.Comp)

		madeProgress = true
	}

	return madeProgress
}

// routeWriteCompletions acknowledges drained lines. Status-region writes
// are fire-and-forget: their completions only clear the in-flight entry.
func (m *respondMiddleware) routeWriteCompletions() bool {
	madeProgress := false

	for {
		msg := m.WritePort.PeekIncoming()
		if msg == nil {
			break
		}

		rsp, ok := msg.(*mem.WriteDoneRsp)
		if !ok {
			log.Panicf("cannot handle message of type %s", reflect.TypeOf(msg))
		}

		if _, found := m.pendingStatus[rsp.RespondTo]; found {
			delete(m.pendingStatus, rsp.RespondTo)
			m.WritePort.RetrieveIncoming()
			madeProgress = true

			continue
		}

		req, found := m.pendingWrites[rsp.RespondTo]
		if !found {
			log.Panicf("%s: write completion %s matches no in-flight request",
				m.Name(), rsp.RespondTo)
		}

		tag := DecodeTag(req.Info.(uint64))
		m.slots[tag.Slot].out.MarkDrained(tag.Line)

		delete(m.pendingWrites, rsp.RespondTo)
		m.WritePort.RetrieveIncoming()

		tracing.TraceReqFinalize(req, m.Comp)

		madeProgress = true
	}

	return madeProgress
}
