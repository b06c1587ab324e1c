// Package inst defines the compound instruction model for the accelerator:
// the memory micro-op, the PE micro-op, and the loop fields that fuse them
// into one word. Field widths are not fixed by the architecture; a Config
// carries the per-deployment bit layout and provides pack/unpack between
// the decoded form and the instruction word.
package inst

import (
	"fmt"

	"github.com/jmchacon/simdaccel/bitvec"
)

// Mode selects the sub-word SIMD lane width of the 32 bit datapath.
type Mode int

const (
	INT32 Mode = iota // Full width 32 bit lanes.
	INT16             // Two 16 bit lanes per word.
	INT8              // Four 8 bit lanes per word.
	modeMax           // End of mode enumerations.
)

// Bits returns the lane width in bits for the mode.
func (m Mode) Bits() int {
	switch m {
	case INT32:
		return 32
	case INT16:
		return 16
	case INT8:
		return 8
	}
	return 0
}

// Valid reports whether m is an architected mode.
func (m Mode) Valid() bool {
	return m >= INT32 && m < modeMax
}

func (m Mode) String() string {
	switch m {
	case INT32:
		return "INT32"
	case INT16:
		return "INT16"
	case INT8:
		return "INT8"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MemOpcode enumerates the memory micro-ops.
type MemOpcode int

const (
	MEM_NOP   MemOpcode = iota // No memory activity this cycle.
	MEM_READ                   // Drive the MEM0/MEM1 read ports.
	MEM_WRITE                  // Commit the MEM2 write port.
	memOpcodeMax
)

// Valid reports whether o is an architected memory opcode.
func (o MemOpcode) Valid() bool {
	return o >= MEM_NOP && o < memOpcodeMax
}

func (o MemOpcode) String() string {
	switch o {
	case MEM_NOP:
		return "NOP"
	case MEM_READ:
		return "READ"
	case MEM_WRITE:
		return "WRITE"
	}
	return fmt.Sprintf("MemOpcode(%d)", int(o))
}

// PEOpcode is the wire-level PE opcode field. The hardware encoding is two
// level: NO_VALUE ops carry a sub-opcode in the value field while RND
// carries a shift amount there. Decoded instructions flatten this to PEOp.
type PEOpcode int

const (
	PE_NO_VALUE PEOpcode = iota // Value field selects the operation.
	PE_RND                      // Value field is the shift amount.
	peOpcodeMax
)

// Value field sub-opcodes when the wire opcode is PE_NO_VALUE.
const (
	valueMAC = iota
	valueNOP
	valueOUT
	valuePASS
	valueCLR
	valueMax
)

// PEOp is the flattened PE operation used everywhere past the wire boundary.
type PEOp int

const (
	MAC  PEOp = iota // Per lane multiply-accumulate of inputs A and B.
	NOP              // No state change.
	OUT              // Latch the output register from the accumulator lanes.
	PASS             // Load the accumulator from input A.
	CLR              // Zero the accumulator and output registers.
	RND              // Arithmetic shift right quantize of each lane.
	peOpMax
)

// Valid reports whether o is an architected PE operation.
func (o PEOp) Valid() bool {
	return o >= MAC && o < peOpMax
}

func (o PEOp) String() string {
	switch o {
	case MAC:
		return "MAC"
	case NOP:
		return "NOP"
	case OUT:
		return "OUT"
	case PASS:
		return "PASS"
	case CLR:
		return "CLR"
	case RND:
		return "RND"
	}
	return fmt.Sprintf("PEOp(%d)", int(o))
}

// UnknownOpcode represents a reserved or out of range opcode encoding.
type UnknownOpcode struct {
	Field string
	Value int
}

// Error implements the interface for error types.
func (e UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode in %s field: %d", e.Field, e.Value)
}

// UnknownMode represents a reserved mode encoding.
type UnknownMode struct {
	Mode Mode
}

// Error implements the interface for error types.
func (e UnknownMode) Error() string {
	return fmt.Sprintf("unknown mode: %d", int(e.Mode))
}

// FieldOverflow represents a field value too wide for its configured width.
type FieldOverflow struct {
	Field string
	Value uint64
	Bits  int
}

// Error implements the interface for error types.
func (e FieldOverflow) Error() string {
	return fmt.Sprintf("value %d does not fit in %d bit field %s", e.Value, e.Bits, e.Field)
}

// MemoryInstruction is one decoded memory micro-op.
type MemoryInstruction struct {
	Opcode     MemOpcode
	Mode       Mode
	MemAOffset uint32
	MemBOffset uint32
}

// PEInstruction is one decoded PE micro-op. Shift is only meaningful for RND.
type PEInstruction struct {
	Op    PEOp
	Mode  Mode
	Shift uint32
}

// Instruction is one decoded compound instruction: a memory micro-op, a PE
// micro-op, per cycle offset strides, and the inner loop repeat count.
// Count+1 cycles are executed.
type Instruction struct {
	Mem     MemoryInstruction
	PE      PEInstruction
	MemAInc uint32
	MemBInc uint32
	Count   uint32
}

// MemoryConfig holds the bit widths of the memory micro-op fields.
type MemoryConfig struct {
	OpcodeBits     int
	ModeBits       int
	MemAOffsetBits int
	MemBOffsetBits int
}

// PEConfig holds the bit widths of the PE micro-op fields.
type PEConfig struct {
	OpcodeBits int
	ModeBits   int
	ValueBits  int
}

// Config holds the complete instruction word layout. Fields are packed most
// significant first in the order: mem.opcode, mem.mode, mema_offset,
// memb_offset, pe.opcode, pe.mode, pe.value, mema_inc, memb_inc, count.
type Config struct {
	CountBits   int
	MemAIncBits int
	MemBIncBits int
	Mem         MemoryConfig
	PE          PEConfig
}

// DefaultConfig returns the reference field layout: a 45 bit word with 10 bit
// offsets and count, single bit strides, and 2/2/5 bit PE fields.
func DefaultConfig() Config {
	return Config{
		CountBits:   10,
		MemAIncBits: 1,
		MemBIncBits: 1,
		Mem: MemoryConfig{
			OpcodeBits:     2,
			ModeBits:       2,
			MemAOffsetBits: 10,
			MemBOffsetBits: 10,
		},
		PE: PEConfig{
			OpcodeBits: 2,
			ModeBits:   2,
			ValueBits:  5,
		},
	}
}

// Bits returns the total instruction word width.
func (c Config) Bits() int {
	return c.Mem.OpcodeBits + c.Mem.ModeBits + c.Mem.MemAOffsetBits + c.Mem.MemBOffsetBits +
		c.PE.OpcodeBits + c.PE.ModeBits + c.PE.ValueBits +
		c.MemAIncBits + c.MemBIncBits + c.CountBits
}

// Validate checks that every field has a positive width.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		bits int
	}{
		{"mem.opcode", c.Mem.OpcodeBits},
		{"mem.mode", c.Mem.ModeBits},
		{"mem.mema_offset", c.Mem.MemAOffsetBits},
		{"mem.memb_offset", c.Mem.MemBOffsetBits},
		{"pe.opcode", c.PE.OpcodeBits},
		{"pe.mode", c.PE.ModeBits},
		{"pe.value", c.PE.ValueBits},
		{"mema_inc", c.MemAIncBits},
		{"memb_inc", c.MemBIncBits},
		{"count", c.CountBits},
	} {
		if f.bits <= 0 {
			return fmt.Errorf("instruction field %s has invalid width %d", f.name, f.bits)
		}
	}
	return nil
}

// peWireValue returns the wire opcode and value field encoding for a decoded
// PE micro-op.
func peWireValue(p PEInstruction) (PEOpcode, uint32, error) {
	switch p.Op {
	case MAC:
		return PE_NO_VALUE, valueMAC, nil
	case NOP:
		return PE_NO_VALUE, valueNOP, nil
	case OUT:
		return PE_NO_VALUE, valueOUT, nil
	case PASS:
		return PE_NO_VALUE, valuePASS, nil
	case CLR:
		return PE_NO_VALUE, valueCLR, nil
	case RND:
		return PE_RND, p.Shift, nil
	}
	return 0, 0, UnknownOpcode{"pe.opcode", int(p.Op)}
}

// DecodePEOp flattens a wire opcode/value pair into a PEOp. The returned
// shift is only meaningful for RND.
func DecodePEOp(opcode PEOpcode, value uint32) (PEOp, uint32, error) {
	switch opcode {
	case PE_NO_VALUE:
		switch value {
		case valueMAC:
			return MAC, 0, nil
		case valueNOP:
			return NOP, 0, nil
		case valueOUT:
			return OUT, 0, nil
		case valuePASS:
			return PASS, 0, nil
		case valueCLR:
			return CLR, 0, nil
		}
		return 0, 0, UnknownOpcode{"pe.value", int(value)}
	case PE_RND:
		return RND, value, nil
	}
	return 0, 0, UnknownOpcode{"pe.opcode", int(opcode)}
}

// packField appends one field below the already packed bits.
func packField(word bitvec.Vector, pos *int, bits int, name string, val uint64) (bitvec.Vector, error) {
	if bits < 64 && val&^((uint64(1)<<uint(bits))-1) != 0 {
		return word, FieldOverflow{name, val, bits}
	}
	*pos -= bits
	w := bits
	if w > 64 {
		w = 64
	}
	return word.WithSliceUint64(*pos, w, val), nil
}

// Pack encodes a decoded instruction into an instruction word laid out per
// the config. Reserved enum values and oversized fields are rejected.
func (c Config) Pack(i Instruction) (bitvec.Vector, error) {
	if err := c.Validate(); err != nil {
		return bitvec.Vector{}, err
	}
	if !i.Mem.Opcode.Valid() {
		return bitvec.Vector{}, UnknownOpcode{"mem.opcode", int(i.Mem.Opcode)}
	}
	if !i.Mem.Mode.Valid() {
		return bitvec.Vector{}, UnknownMode{i.Mem.Mode}
	}
	if !i.PE.Mode.Valid() {
		return bitvec.Vector{}, UnknownMode{i.PE.Mode}
	}
	peOpcode, peValue, err := peWireValue(i.PE)
	if err != nil {
		return bitvec.Vector{}, err
	}

	word := bitvec.New(c.Bits())
	pos := c.Bits()
	for _, f := range []struct {
		name string
		bits int
		val  uint64
	}{
		{"mem.opcode", c.Mem.OpcodeBits, uint64(i.Mem.Opcode)},
		{"mem.mode", c.Mem.ModeBits, uint64(i.Mem.Mode)},
		{"mem.mema_offset", c.Mem.MemAOffsetBits, uint64(i.Mem.MemAOffset)},
		{"mem.memb_offset", c.Mem.MemBOffsetBits, uint64(i.Mem.MemBOffset)},
		{"pe.opcode", c.PE.OpcodeBits, uint64(peOpcode)},
		{"pe.mode", c.PE.ModeBits, uint64(i.PE.Mode)},
		{"pe.value", c.PE.ValueBits, uint64(peValue)},
		{"mema_inc", c.MemAIncBits, uint64(i.MemAInc)},
		{"memb_inc", c.MemBIncBits, uint64(i.MemBInc)},
		{"count", c.CountBits, uint64(i.Count)},
	} {
		if word, err = packField(word, &pos, f.bits, f.name, f.val); err != nil {
			return bitvec.Vector{}, err
		}
	}
	return word, nil
}

// unpackField extracts one field below the already consumed bits.
func unpackField(word bitvec.Vector, pos *int, bits int) uint64 {
	*pos -= bits
	w := bits
	if w > 64 {
		w = 64
	}
	return word.SliceUint64(*pos, w)
}

// Unpack decodes an instruction word laid out per the config. Reserved
// opcode and mode encodings are rejected.
func (c Config) Unpack(word bitvec.Vector) (Instruction, error) {
	if err := c.Validate(); err != nil {
		return Instruction{}, err
	}
	if word.Width() != c.Bits() {
		return Instruction{}, fmt.Errorf("instruction word width %d, want %d", word.Width(), c.Bits())
	}

	pos := c.Bits()
	memOpcode := MemOpcode(unpackField(word, &pos, c.Mem.OpcodeBits))
	memMode := Mode(unpackField(word, &pos, c.Mem.ModeBits))
	memAOff := uint32(unpackField(word, &pos, c.Mem.MemAOffsetBits))
	memBOff := uint32(unpackField(word, &pos, c.Mem.MemBOffsetBits))
	peOpcode := PEOpcode(unpackField(word, &pos, c.PE.OpcodeBits))
	peMode := Mode(unpackField(word, &pos, c.PE.ModeBits))
	peValue := uint32(unpackField(word, &pos, c.PE.ValueBits))
	memAInc := uint32(unpackField(word, &pos, c.MemAIncBits))
	memBInc := uint32(unpackField(word, &pos, c.MemBIncBits))
	count := uint32(unpackField(word, &pos, c.CountBits))

	if !memOpcode.Valid() {
		return Instruction{}, UnknownOpcode{"mem.opcode", int(memOpcode)}
	}
	if !memMode.Valid() {
		return Instruction{}, UnknownMode{memMode}
	}
	if !peMode.Valid() {
		return Instruction{}, UnknownMode{peMode}
	}
	op, shift, err := DecodePEOp(peOpcode, peValue)
	if err != nil {
		return Instruction{}, err
	}

	return Instruction{
		Mem: MemoryInstruction{
			Opcode:     memOpcode,
			Mode:       memMode,
			MemAOffset: memAOff,
			MemBOffset: memBOff,
		},
		PE: PEInstruction{
			Op:    op,
			Mode:  peMode,
			Shift: shift,
		},
		MemAInc: memAInc,
		MemBInc: memBInc,
		Count:   count,
	}, nil
}
