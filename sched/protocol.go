package sched

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/batchsim/config"
)

// A ConfigReq writes the control-register file. It is only accepted
// before the go bit is set.
type ConfigReq struct {
	sim.MsgMeta

	Regs config.Registers
}

// Meta returns the meta data of the message.
func (r *ConfigReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (r *ConfigReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GenerateRsp creates the acknowledgment for the register write.
func (r *ConfigReq) GenerateRsp() sim.Rsp {
	return sim.GeneralRspBuilder{}.
		WithSrc(r.Dst).
		WithDst(r.Src).
		WithOriginalReq(r).
		Build()
}

// ConfigReqBuilder can build config requests.
type ConfigReqBuilder struct {
	src, dst sim.RemotePort
	regs     config.Registers
}

// WithSrc sets the source of the request to build.
func (b ConfigReqBuilder) WithSrc(src sim.RemotePort) ConfigReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b ConfigReqBuilder) WithDst(dst sim.RemotePort) ConfigReqBuilder {
	b.dst = dst
	return b
}

// WithRegisters sets the register values to write.
func (b ConfigReqBuilder) WithRegisters(regs config.Registers) ConfigReqBuilder {
	b.regs = regs
	return b
}

// Build creates a new ConfigReq.
func (b ConfigReqBuilder) Build() *ConfigReq {
	r := &ConfigReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.Regs = b.regs

	return r
}

// A ControlReq writes the start/stop control word.
type ControlReq struct {
	sim.MsgMeta

	Word uint64
}

// Meta returns the meta data of the message.
func (r *ControlReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (r *ControlReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ControlReqBuilder can build control-word requests.
type ControlReqBuilder struct {
	src, dst sim.RemotePort
	word     uint64
}

// WithSrc sets the source of the request to build.
func (b ControlReqBuilder) WithSrc(src sim.RemotePort) ControlReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b ControlReqBuilder) WithDst(dst sim.RemotePort) ControlReqBuilder {
	b.dst = dst
	return b
}

// WithWord sets the control word to write.
func (b ControlReqBuilder) WithWord(word uint64) ControlReqBuilder {
	b.word = word
	return b
}

// Build creates a new ControlReq.
func (b ControlReqBuilder) Build() *ControlReq {
	r := &ControlReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.Word = b.word

	return r
}

// An EnqueueBatchReq increments the batches-requested counter. It is the
// only register write the driver may perform while the engine runs.
type EnqueueBatchReq struct {
	sim.MsgMeta

	Count uint64
}

// Meta returns the meta data of the message.
func (r *EnqueueBatchReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (r *EnqueueBatchReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// EnqueueBatchReqBuilder can build batch-enqueue requests.
type EnqueueBatchReqBuilder struct {
	src, dst sim.RemotePort
	count    uint64
}

// WithSrc sets the source of the request to build.
func (b EnqueueBatchReqBuilder) WithSrc(src sim.RemotePort) EnqueueBatchReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b EnqueueBatchReqBuilder) WithDst(dst sim.RemotePort) EnqueueBatchReqBuilder {
	b.dst = dst
	return b
}

// WithCount sets how many batches to add.
func (b EnqueueBatchReqBuilder) WithCount(count uint64) EnqueueBatchReqBuilder {
	b.count = count
	return b
}

// Build creates a new EnqueueBatchReq.
func (b EnqueueBatchReqBuilder) Build() *EnqueueBatchReq {
	r := &EnqueueBatchReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.Count = b.count

	return r
}

// A LaunchReq is the start pulse to a compute unit. It carries the
// complete staged task batch: the input data is stable and final by the
// time the unit sees this message.
type LaunchReq struct {
	sim.MsgMeta

	SlotID int
	Lines  [][]byte
}

// Meta returns the meta data of the message.
func (r *LaunchReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (r *LaunchReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// LaunchReqBuilder can build launch requests.
type LaunchReqBuilder struct {
	src, dst sim.RemotePort
	slotID   int
	lines    [][]byte
}

// WithSrc sets the source of the request to build.
func (b LaunchReqBuilder) WithSrc(src sim.RemotePort) LaunchReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b LaunchReqBuilder) WithDst(dst sim.RemotePort) LaunchReqBuilder {
	b.dst = dst
	return b
}

// WithSlotID sets the slot the task batch belongs to.
func (b LaunchReqBuilder) WithSlotID(slotID int) LaunchReqBuilder {
	b.slotID = slotID
	return b
}

// WithLines sets the task batch payload.
func (b LaunchReqBuilder) WithLines(lines [][]byte) LaunchReqBuilder {
	b.lines = lines
	return b
}

// Build creates a new LaunchReq.
func (b LaunchReqBuilder) Build() *LaunchReq {
	r := &LaunchReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.SlotID = b.slotID
	r.Lines = b.lines

	return r
}

// A UnitDoneRsp is the done pulse from a compute unit. It carries the
// complete result batch: the unit guarantees the output is final before
// sending it.
type UnitDoneRsp struct {
	sim.MsgMeta

	SlotID    int
	Lines     [][]byte
	RespondTo string
}

// Meta returns the meta data of the message.
func (r *UnitDoneRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (r *UnitDoneRsp) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the launch request this done answers.
func (r *UnitDoneRsp) GetRspTo() string {
	return r.RespondTo
}

// UnitDoneRspBuilder can build done responses.
type UnitDoneRspBuilder struct {
	src, dst sim.RemotePort
	slotID   int
	lines    [][]byte
	rspTo    string
}

// WithSrc sets the source of the response to build.
func (b UnitDoneRspBuilder) WithSrc(src sim.RemotePort) UnitDoneRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b UnitDoneRspBuilder) WithDst(dst sim.RemotePort) UnitDoneRspBuilder {
	b.dst = dst
	return b
}

// WithSlotID sets the slot the result batch belongs to.
func (b UnitDoneRspBuilder) WithSlotID(slotID int) UnitDoneRspBuilder {
	b.slotID = slotID
	return b
}

// WithLines sets the result batch payload.
func (b UnitDoneRspBuilder) WithLines(lines [][]byte) UnitDoneRspBuilder {
	b.lines = lines
	return b
}

// WithRspTo sets the ID of the launch request being answered.
func (b UnitDoneRspBuilder) WithRspTo(id string) UnitDoneRspBuilder {
	b.rspTo = id
	return b
}

// Build creates a new UnitDoneRsp.
func (b UnitDoneRspBuilder) Build() *UnitDoneRsp {
	r := &UnitDoneRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.SlotID = b.slotID
	r.Lines = b.lines
	r.RespondTo = b.rspTo

	return r
}
