package sched

import "log"

// Direction distinguishes the two sub-channels of the memory interface.
type Direction int

// The two request directions.
const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirRead {
		return "read"
	}

	return "write"
}

// Tag field widths inside the 64-bit encoding. A geometry whose slot or
// line index cannot fit is rejected at encode time, so two in-flight
// requests can never share an encoding.
const (
	tagSlotBits = 15
	tagLineBits = 48

	tagMaxSlot = 1<<tagSlotBits - 1
	tagMaxLine = 1<<tagLineBits - 1
)

// Tag identifies an in-flight memory request: which direction it belongs
// to, which slot's staging buffer issued it, and which line it moves. It
// rides in the Info field of the memory request and is decoded to route
// the completion back to the issuing buffer.
type Tag struct {
	Dir  Direction
	Slot int
	Line int
}

// Encode packs the tag into 64 bits: [dir | slot | line].
func (t Tag) Encode() uint64 {
	if t.Slot < 0 || t.Slot > tagMaxSlot {
		log.Panicf("tag slot %d does not fit in %d bits", t.Slot, tagSlotBits)
	}

	if t.Line < 0 || t.Line > tagMaxLine {
		log.Panicf("tag line %d does not fit in %d bits", t.Line, tagLineBits)
	}

	v := uint64(t.Line)
	v |= uint64(t.Slot) << tagLineBits

	if t.Dir == DirWrite {
		v |= 1 << (tagLineBits + tagSlotBits)
	}

	return v
}

// DecodeTag unpacks an encoded tag.
func DecodeTag(v uint64) Tag {
	t := Tag{
		Line: int(v & tagMaxLine),
		Slot: int((v >> tagLineBits) & tagMaxSlot),
	}

	if v&(1<<(tagLineBits+tagSlotBits)) != 0 {
		t.Dir = DirWrite
	}

	return t
}
