// Package staging provides the fixed-capacity line buffers that sit
// between the memory channel and the compute units. An input buffer is
// filled from memory one line per request and drained by a compute unit;
// an output buffer is filled by a compute unit and drained back to memory
// one line per request.
//
// Buffers enforce their protocol aggressively: writing a full buffer,
// reading an empty one, or exposing a partially assembled line is a
// scheduling bug and panics instead of corrupting state.
package staging

import "log"

// lineStore is the backing store shared by both buffer kinds.
type lineStore struct {
	name      string
	numLines  int
	lineBytes int
	lines     [][]byte
	present   []bool
	numLive   int
}

func newLineStore(name string, numLines, lineBytes int) lineStore {
	return lineStore{
		name:      name,
		numLines:  numLines,
		lineBytes: lineBytes,
		lines:     make([][]byte, numLines),
		present:   make([]bool, numLines),
	}
}

func (s *lineStore) commit(line int, data []byte) {
	if line < 0 || line >= s.numLines {
		log.Panicf("%s: line %d out of range [0, %d)", s.name, line, s.numLines)
	}

	if len(data) != s.lineBytes {
		log.Panicf("%s: line %d takes %d bytes, got %d",
			s.name, line, s.lineBytes, len(data))
	}

	if s.present[line] {
		log.Panicf("%s: line %d written twice", s.name, line)
	}

	s.lines[line] = data
	s.present[line] = true
	s.numLive++
}

func (s *lineStore) line(line int) []byte {
	if line < 0 || line >= s.numLines {
		log.Panicf("%s: line %d out of range [0, %d)", s.name, line, s.numLines)
	}

	if !s.present[line] {
		log.Panicf("%s: reading line %d before it is written", s.name, line)
	}

	return s.lines[line]
}

func (s *lineStore) reset() {
	for i := range s.present {
		s.present[i] = false
		s.lines[i] = nil
	}

	s.numLive = 0
}

func (s *lineStore) full() bool {
	return s.numLive == s.numLines
}

func (s *lineStore) empty() bool {
	return s.numLive == 0
}
