// Package config holds the geometry and control-register state of the
// batch engine as explicit structs with named defaults.
package config

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
)

// Geometry describes the fixed shape of the batch engine: how many
// compute-unit slots it has and how its staging buffers are sized.
// All widths are in bytes.
type Geometry struct {
	// NumSlots is the number of compute-unit slots.
	NumSlots int `json:"num_slots"`

	// InputLines is the number of lines in one task batch, and therefore
	// the depth of each input staging buffer.
	InputLines int `json:"input_lines"`

	// InputLineBytes is the width of one input line. Each read request
	// fetches exactly one input line.
	InputLineBytes int `json:"input_line_bytes"`

	// OutputLines is the number of lines in one result batch, and
	// therefore the depth of each output staging buffer.
	OutputLines int `json:"output_lines"`

	// OutputLineBytes is the width of one output line. Each write request
	// drains exactly one output line.
	OutputLineBytes int `json:"output_line_bytes"`

	// UnitWriteBytes is the width of the compute unit's write port into
	// the output staging buffer. When it is narrower than OutputLineBytes,
	// the buffer aggregates writes and commits whole lines only.
	UnitWriteBytes int `json:"unit_write_bytes"`

	// UnitReadBytes is the width of the compute unit's read port out of
	// the input staging buffer. When it is narrower than InputLineBytes,
	// reads split a line into sub-words.
	UnitReadBytes int `json:"unit_read_bytes"`

	// UnitLatency is the number of cycles a compute unit holds a task
	// batch before reporting done.
	UnitLatency int `json:"unit_latency"`
}

// DefaultGeometry returns the geometry used by the reference scenario:
// four slots, 16-line task batches, 256-line result batches.
func DefaultGeometry() *Geometry {
	return &Geometry{
		NumSlots:        4,
		InputLines:      16,
		InputLineBytes:  64,
		OutputLines:     256,
		OutputLineBytes: 64,
		UnitWriteBytes:  64,
		UnitReadBytes:   64,
		UnitLatency:     32,
	}
}

// InputSpanBytes returns the byte span of one slot's task batch region.
func (g *Geometry) InputSpanBytes() uint64 {
	return uint64(g.InputLines) * uint64(g.InputLineBytes)
}

// OutputSpanBytes returns the byte span of one slot's result batch region.
func (g *Geometry) OutputSpanBytes() uint64 {
	return uint64(g.OutputLines) * uint64(g.OutputLineBytes)
}

// Validate checks the geometry for internal consistency.
func (g *Geometry) Validate() error {
	if g.NumSlots < 1 {
		return fmt.Errorf("num_slots must be at least 1, got %d", g.NumSlots)
	}

	if g.InputLines < 1 || g.OutputLines < 1 {
		return fmt.Errorf("buffer depths must be at least 1 line")
	}

	if g.InputLineBytes < 1 || g.OutputLineBytes < 1 {
		return fmt.Errorf("line widths must be at least 1 byte")
	}

	if g.UnitWriteBytes < 1 || g.OutputLineBytes%g.UnitWriteBytes != 0 {
		return fmt.Errorf(
			"output line width %d is not a multiple of unit write width %d",
			g.OutputLineBytes, g.UnitWriteBytes)
	}

	if g.UnitReadBytes < 1 || g.InputLineBytes%g.UnitReadBytes != 0 {
		return fmt.Errorf(
			"input line width %d is not a multiple of unit read width %d",
			g.InputLineBytes, g.UnitReadBytes)
	}

	if g.UnitLatency < 1 {
		return fmt.Errorf("unit_latency must be at least 1 cycle")
	}

	return nil
}

// Control-word bits.
const (
	// CtrlGo starts execution once the engine is armed.
	CtrlGo uint64 = 1 << 0

	// CtrlStop requests a drain-and-stop once in-flight work finishes.
	CtrlStop uint64 = 1 << 1
)

// Registers is the control-register file of the batch engine. It is
// written by the host driver before the go bit is set; afterward only
// BatchesRequested may still move.
type Registers struct {
	// SrcBase is the base address of the task batch region. It must be
	// aligned to the whole region covering all slots.
	SrcBase uint64 `json:"src_base"`

	// DstBase is the base address of the result batch region. It must be
	// aligned to the whole region covering all slots.
	DstBase uint64 `json:"dst_base"`

	// StatusBase is the base address of the status region.
	StatusBase uint64 `json:"status_base"`

	// BatchesRequested counts how many task batches the driver has made
	// available. It only ever increments.
	BatchesRequested uint64 `json:"batches_requested"`

	// Control is the start/stop control word.
	Control uint64 `json:"control"`
}

// Aligned reports whether the base addresses respect the region
// alignment the engine's address arithmetic relies on. The engine
// XOR-composes a base with per-slot offsets that range over the whole
// multi-slot region, so the base must keep every bit position an offset
// can occupy clear: it must be a multiple of the region size rounded up
// to a power of two.
func (r *Registers) Aligned(g *Geometry) bool {
	if align := regionAlignment(g.InputSpanBytes(), g.NumSlots); r.SrcBase%align != 0 {
		return false
	}

	if align := regionAlignment(g.OutputSpanBytes(), g.NumSlots); r.DstBase%align != 0 {
		return false
	}

	return true
}

// regionAlignment returns the alignment a base address needs so that
// XOR-composing any offset inside the multi-slot region equals plain
// addition: the next power of two at or above the region size.
func regionAlignment(slotSpan uint64, numSlots int) uint64 {
	region := uint64(numSlots) * slotSpan

	return uint64(1) << bits.Len64(region-1)
}

// LoadGeometry reads a geometry JSON file. Fields left at zero take their
// default values.
func LoadGeometry(path string) (*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading geometry config: %w", err)
	}

	g := DefaultGeometry()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("parsing geometry config: %w", err)
	}

	fillGeometryDefaults(g)

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// fillGeometryDefaults replaces zero fields with defaults so that partial
// config files stay usable.
func fillGeometryDefaults(g *Geometry) {
	d := DefaultGeometry()

	if g.NumSlots == 0 {
		g.NumSlots = d.NumSlots
	}
	if g.InputLines == 0 {
		g.InputLines = d.InputLines
	}
	if g.InputLineBytes == 0 {
		g.InputLineBytes = d.InputLineBytes
	}
	if g.OutputLines == 0 {
		g.OutputLines = d.OutputLines
	}
	if g.OutputLineBytes == 0 {
		g.OutputLineBytes = d.OutputLineBytes
	}
	if g.UnitWriteBytes == 0 {
		g.UnitWriteBytes = d.UnitWriteBytes
	}
	if g.UnitReadBytes == 0 {
		g.UnitReadBytes = d.UnitReadBytes
	}
	if g.UnitLatency == 0 {
		g.UnitLatency = d.UnitLatency
	}
}
