// Package mainbuffer implements the accelerator's three-bank scratchpad.
// MEM0 feeds the PE A inputs a full word at a time, MEM1 feeds the shared
// B input with mode-dependent sub-word broadcast addressing, and MEM2
// collects concatenated PE outputs. Reads latch onto output ports that
// hold their value until the next READ; writes commit a previously
// latched input port.
package mainbuffer

import (
	"fmt"

	"github.com/jmchacon/simdaccel/bitvec"
	"github.com/jmchacon/simdaccel/inst"
	"github.com/jmchacon/simdaccel/io"
	"github.com/jmchacon/simdaccel/memory"
)

var (
	_ = io.PortOut(mem0Port{})
	_ = io.PortOut(mem1Port{})
)

// Config holds the geometry of the three banks.
type Config struct {
	Mem0Bits  int
	Mem0Depth int
	Mem1Bits  int
	Mem1Depth int
	Mem2Bits  int
	Mem2Depth int
}

// Buffer holds the three banks and their ports.
type Buffer struct {
	config Config
	mem0   memory.Bank
	mem1   memory.Bank
	mem2   memory.Bank
	m0Out  bitvec.Vector // MEM0 read port latch.
	m1Out  bitvec.Vector // MEM1 read port latch.
	m2In   bitvec.Vector // MEM2 write port latch.
}

// Init returns a main buffer with zeroed banks and ports.
func Init(c Config) (*Buffer, error) {
	b := &Buffer{config: c}
	var err error
	if b.mem0, err = memory.NewBank(c.Mem0Bits, c.Mem0Depth); err != nil {
		return nil, fmt.Errorf("can't initialize MEM0: %v", err)
	}
	if b.mem1, err = memory.NewBank(c.Mem1Bits, c.Mem1Depth); err != nil {
		return nil, fmt.Errorf("can't initialize MEM1: %v", err)
	}
	if b.mem2, err = memory.NewBank(c.Mem2Bits, c.Mem2Depth); err != nil {
		return nil, fmt.Errorf("can't initialize MEM2: %v", err)
	}
	b.resetPorts()
	return b, nil
}

func (b *Buffer) resetPorts() {
	b.m0Out = bitvec.New(b.config.Mem0Bits)
	b.m1Out = bitvec.New(b.config.Mem1Bits)
	b.m2In = bitvec.New(b.config.Mem2Bits)
}

// PowerOn zeroes all banks and ports.
func (b *Buffer) PowerOn() {
	b.mem0.PowerOn()
	b.mem1.PowerOn()
	b.mem2.PowerOn()
	b.resetPorts()
}

// SetMem0 loads the entire MEM0 bank. Length must equal the depth.
func (b *Buffer) SetMem0(words []bitvec.Vector) error {
	return b.mem0.Load(words)
}

// SetMem1 loads the entire MEM1 bank. Length must equal the depth.
func (b *Buffer) SetMem1(words []bitvec.Vector) error {
	return b.mem1.Load(words)
}

// SetMem0Int64 loads MEM0 from signed integers, truncating each to the
// bank width.
func (b *Buffer) SetMem0Int64(vals []int64) error {
	return b.mem0.Load(intWords(vals, b.config.Mem0Bits))
}

// SetMem1Int64 loads MEM1 from signed integers, truncating each to the
// bank width.
func (b *Buffer) SetMem1Int64(vals []int64) error {
	return b.mem1.Load(intWords(vals, b.config.Mem1Bits))
}

func intWords(vals []int64, width int) []bitvec.Vector {
	out := make([]bitvec.Vector, len(vals))
	for i, v := range vals {
		out[i] = bitvec.FromInt64(v, width)
	}
	return out
}

// ReadMem0Output returns the value last latched onto the MEM0 read port
// (zero before the first READ).
func (b *Buffer) ReadMem0Output() bitvec.Vector {
	return b.m0Out
}

// ReadMem1Output returns the value last latched onto the MEM1 read port
// (zero before the first READ).
func (b *Buffer) ReadMem1Output() bitvec.Vector {
	return b.m1Out
}

// WriteMem2Output latches a value onto the MEM2 write port. The width
// must equal the MEM2 bank width.
func (b *Buffer) WriteMem2Output(v bitvec.Vector) error {
	if v.Width() != b.config.Mem2Bits {
		return memory.WidthMismatch{Got: v.Width(), Want: b.config.Mem2Bits}
	}
	b.m2In = v
	return nil
}

// ReadMem2 returns a copy of the full MEM2 bank.
func (b *Buffer) ReadMem2() []bitvec.Vector {
	return b.mem2.Contents()
}

// ReadMem2Int64 returns the MEM2 contents as signed integers.
func (b *Buffer) ReadMem2Int64() []int64 {
	words := b.mem2.Contents()
	out := make([]int64, len(words))
	for i, w := range words {
		out[i] = w.Int64()
	}
	return out
}

// mem0Port exposes the MEM0 read latch through the io.PortOut interface.
type mem0Port struct {
	b *Buffer
}

// Output implements the interface for io.PortOut.
func (p mem0Port) Output() bitvec.Vector {
	return p.b.m0Out
}

// mem1Port exposes the MEM1 read latch through the io.PortOut interface.
type mem1Port struct {
	b *Buffer
}

// Output implements the interface for io.PortOut.
func (p mem1Port) Output() bitvec.Vector {
	return p.b.m1Out
}

// Mem0Port returns the MEM0 read port.
func (b *Buffer) Mem0Port() io.PortOut {
	return mem0Port{b}
}

// Mem1Port returns the MEM1 read port.
func (b *Buffer) Mem1Port() io.PortOut {
	return mem1Port{b}
}

// ExecuteInstruction applies one memory micro-op. A failed check leaves
// banks and ports unchanged.
func (b *Buffer) ExecuteInstruction(mi inst.MemoryInstruction) error {
	switch mi.Opcode {
	case inst.MEM_NOP:
		return nil
	case inst.MEM_READ:
		return b.read(mi)
	case inst.MEM_WRITE:
		return b.mem2.Write(int(mi.MemAOffset), b.m2In)
	}
	return inst.UnknownOpcode{Field: "mem.opcode", Value: int(mi.Opcode)}
}

// read drives both read ports: MEM0 delivers the addressed word unchanged,
// MEM1 delivers a mode-dependent broadcast of a sub-word. Both fetches are
// validated before either port latches.
func (b *Buffer) read(mi inst.MemoryInstruction) error {
	w0, err := b.mem0.Read(int(mi.MemAOffset))
	if err != nil {
		return err
	}
	w1, err := b.broadcast(mi.Mode, int(mi.MemBOffset))
	if err != nil {
		return err
	}
	b.m0Out = w0
	b.m1Out = w1
	return nil
}

// broadcast resolves a MEM1 sub-word read. The offset addresses sub-words
// of the mode width: the high offset bits select the bank word and the low
// bits select the piece, which is then replicated to fill the port. INT32
// degenerates to a direct word read.
func (b *Buffer) broadcast(mode inst.Mode, off int) (bitvec.Vector, error) {
	if !mode.Valid() {
		return bitvec.Vector{}, inst.UnknownMode{Mode: mode}
	}
	m := mode.Bits()
	if b.config.Mem1Bits%m != 0 {
		return bitvec.Vector{}, memory.WidthMismatch{Got: m, Want: b.config.Mem1Bits}
	}
	replicate := b.config.Mem1Bits / m
	word, err := b.mem1.Read(off / replicate)
	if err != nil {
		return bitvec.Vector{}, err
	}
	piece := word.SliceUint64(off%replicate*m, m)
	out := bitvec.New(b.config.Mem1Bits)
	for k := 0; k < replicate; k++ {
		out = out.WithSliceUint64(k*m, m, piece)
	}
	return out, nil
}
