package staging

import "log"

// InputBuffer stages one task batch on its way from memory to a compute
// unit. The scheduler fills it one line per read request; the bound
// compute unit drains it through a read port that may be narrower than
// one line.
//
// The buffer issues at most one memory request at a time: RequestValid
// stays false between MarkRequested and the matching Fill.
type InputBuffer struct {
	store lineStore

	readBytes    int
	wordsPerLine int

	nextRequest int
	pending     bool
	pendingLine int
	startPulse  bool
}

// NewInputBuffer creates an input staging buffer with numLines lines of
// lineBytes bytes each, drained through a readBytes-wide read port.
// lineBytes must be a multiple of readBytes.
func NewInputBuffer(name string, numLines, lineBytes, readBytes int) *InputBuffer {
	if lineBytes%readBytes != 0 {
		log.Panicf("%s: line width %d is not a multiple of read width %d",
			name, lineBytes, readBytes)
	}

	return &InputBuffer{
		store:        newLineStore(name, numLines, lineBytes),
		readBytes:    readBytes,
		wordsPerLine: lineBytes / readBytes,
		pendingLine:  -1,
	}
}

// RequestValid reports whether the buffer wants another fill request
// issued on its behalf: it has unfilled lines and no request in flight.
func (b *InputBuffer) RequestValid() bool {
	return b.nextRequest < b.store.numLines && !b.pending
}

// NextRequestLine returns the oldest unfilled line, the one the next
// request must fetch.
func (b *InputBuffer) NextRequestLine() int {
	if !b.RequestValid() {
		log.Panicf("%s: no request to issue", b.store.name)
	}

	return b.nextRequest
}

// MarkRequested records that a request for the current line has been
// issued. The fill pointer advances; RequestValid goes false until the
// completion arrives.
func (b *InputBuffer) MarkRequested() {
	if !b.RequestValid() {
		log.Panicf("%s: marking a request the buffer never asked for",
			b.store.name)
	}

	b.pending = true
	b.pendingLine = b.nextRequest
	b.nextRequest++
}

// Fill deposits a completed line. Filling the last line latches the
// one-shot start pulse for the bound compute unit.
func (b *InputBuffer) Fill(line int, data []byte) {
	if b.store.full() {
		log.Panicf("%s: fill while full", b.store.name)
	}

	b.store.commit(line, data)

	if line == b.pendingLine {
		b.pending = false
		b.pendingLine = -1
	}

	if b.store.full() {
		b.startPulse = true
	}
}

// TakeStartPulse consumes the one-cycle unit-start signal. It returns
// true exactly once per fill cycle, on the transition to full, and not
// again until the buffer has been drained and refilled.
func (b *InputBuffer) TakeStartPulse() bool {
	if !b.startPulse {
		return false
	}

	b.startPulse = false

	return true
}

// Read returns the word at the given read-port address. The word index
// counts readBytes-wide words from the start of the buffer.
func (b *InputBuffer) Read(word int) []byte {
	if b.store.empty() {
		log.Panicf("%s: read while empty", b.store.name)
	}

	line := word / b.wordsPerLine
	sub := word % b.wordsPerLine
	data := b.store.line(line)

	return data[sub*b.readBytes : (sub+1)*b.readBytes]
}

// Lines returns a copy of the whole staged batch. It is only valid once
// the buffer is full, which is the stability guarantee the compute unit
// relies on at start time.
func (b *InputBuffer) Lines() [][]byte {
	if !b.store.full() {
		log.Panicf("%s: batch handed off before it is complete", b.store.name)
	}

	out := make([][]byte, b.store.numLines)
	for i := range out {
		line := make([]byte, b.store.lineBytes)
		copy(line, b.store.line(i))
		out[i] = line
	}

	return out
}

// Drain empties the buffer for the next fill cycle.
func (b *InputBuffer) Drain() {
	if !b.store.full() {
		log.Panicf("%s: drained before it is full", b.store.name)
	}

	b.store.reset()
	b.nextRequest = 0
	b.pending = false
	b.pendingLine = -1
	b.startPulse = false
}

// Full reports whether every line is staged.
func (b *InputBuffer) Full() bool {
	return b.store.full()
}

// Empty reports whether no line is staged.
func (b *InputBuffer) Empty() bool {
	return b.store.empty()
}

// NumLines returns the buffer depth.
func (b *InputBuffer) NumLines() int {
	return b.store.numLines
}
