package staging

import "log"

// OutputBuffer stages one result batch on its way from a compute unit
// back to memory. The unit fills it through a write port that may be
// narrower than one line; narrow writes accumulate in an assembly
// register and only commit to the backing store as whole lines. The
// scheduler drains committed lines one write request at a time.
type OutputBuffer struct {
	store lineStore

	writeBytes   int
	wordsPerLine int

	// assembly state for narrow writes
	nextWord  int
	partial   []byte
	commitPtr int

	// drain state
	nextDrain   int
	pending     bool
	pendingLine int
	drained     []bool
	numDrained  int
}

// NewOutputBuffer creates an output staging buffer with numLines lines of
// lineBytes bytes each, filled through a writeBytes-wide write port.
// lineBytes must be a multiple of writeBytes.
func NewOutputBuffer(name string, numLines, lineBytes, writeBytes int) *OutputBuffer {
	if lineBytes%writeBytes != 0 {
		log.Panicf("%s: line width %d is not a multiple of write width %d",
			name, lineBytes, writeBytes)
	}

	return &OutputBuffer{
		store:        newLineStore(name, numLines, lineBytes),
		writeBytes:   writeBytes,
		wordsPerLine: lineBytes / writeBytes,
		partial:      make([]byte, 0, lineBytes),
		pendingLine:  -1,
		drained:      make([]bool, numLines),
	}
}

// Write accepts one word on the write port. The word index must be the
// next sequential address; the assembly index wraps modulo the width
// ratio and a line only becomes visible to the drain side once all of
// its words have arrived.
func (b *OutputBuffer) Write(word int, data []byte) {
	if b.store.full() {
		log.Panicf("%s: write while full", b.store.name)
	}

	if word != b.nextWord {
		log.Panicf("%s: write port address %d, expected %d",
			b.store.name, word, b.nextWord)
	}

	if len(data) != b.writeBytes {
		log.Panicf("%s: write port takes %d bytes, got %d",
			b.store.name, b.writeBytes, len(data))
	}

	b.partial = append(b.partial, data...)
	b.nextWord++

	if len(b.partial) == b.store.lineBytes {
		line := make([]byte, b.store.lineBytes)
		copy(line, b.partial)
		b.store.commit(b.commitPtr, line)
		b.commitPtr++
		b.partial = b.partial[:0]
	}
}

// DrainValid reports whether the buffer wants another drain request
// issued: it holds a committed, unrequested line and no request is in
// flight.
func (b *OutputBuffer) DrainValid() bool {
	return b.nextDrain < b.commitPtr && !b.pending
}

// NextDrainLine returns the oldest committed line that has not been
// requested for drain yet.
func (b *OutputBuffer) NextDrainLine() int {
	if !b.DrainValid() {
		log.Panicf("%s: no drain request to issue", b.store.name)
	}

	return b.nextDrain
}

// MarkRequested records that a drain request for the current line has
// been issued.
func (b *OutputBuffer) MarkRequested() {
	if !b.DrainValid() {
		log.Panicf("%s: marking a drain the buffer never asked for",
			b.store.name)
	}

	b.pending = true
	b.pendingLine = b.nextDrain
	b.nextDrain++
}

// Line returns a committed line, the payload of its drain request.
func (b *OutputBuffer) Line(line int) []byte {
	return b.store.line(line)
}

// MarkDrained records the write-done completion for a line.
func (b *OutputBuffer) MarkDrained(line int) {
	if line < 0 || line >= b.store.numLines || b.drained[line] {
		log.Panicf("%s: spurious drain completion for line %d",
			b.store.name, line)
	}

	b.drained[line] = true
	b.numDrained++

	if line == b.pendingLine {
		b.pending = false
		b.pendingLine = -1
	}
}

// Drained reports whether every line has been written back.
func (b *OutputBuffer) Drained() bool {
	return b.numDrained == b.store.numLines
}

// Reset empties the buffer for the next result batch.
func (b *OutputBuffer) Reset() {
	if !b.Drained() {
		log.Panicf("%s: reset before fully drained", b.store.name)
	}

	b.store.reset()
	b.nextWord = 0
	b.partial = b.partial[:0]
	b.commitPtr = 0
	b.nextDrain = 0
	b.pending = false
	b.pendingLine = -1

	for i := range b.drained {
		b.drained[i] = false
	}

	b.numDrained = 0
}

// Full reports whether every line is committed.
func (b *OutputBuffer) Full() bool {
	return b.store.full()
}

// Empty reports whether no line is committed. A word sitting in the
// assembly register does not count: it is not visible until it commits.
func (b *OutputBuffer) Empty() bool {
	return b.store.empty()
}

// NumLines returns the buffer depth.
func (b *OutputBuffer) NumLines() int {
	return b.store.numLines
}
