// Package accelerator implements the top level execution engine: it owns
// the PE array and the main buffer, expands each compound instruction
// into count+1 correlated memory and PE micro-cycles, and routes data
// between the buffer ports and the PE input ports.
package accelerator

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/jmchacon/simdaccel/bitvec"
	"github.com/jmchacon/simdaccel/inst"
	"github.com/jmchacon/simdaccel/io"
	"github.com/jmchacon/simdaccel/mainbuffer"
	"github.com/jmchacon/simdaccel/pe"
)

// ConfigError represents an accelerator configuration whose invariants
// don't hold at construction.
type ConfigError struct {
	Reason string
}

// Error implements the interface for error types.
func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid accelerator config: %s", e.Reason)
}

// Config holds the top level geometry: the counter width, the PE array
// size, and the PE and buffer configurations they must agree with.
type Config struct {
	CounterBits int
	PECount     int
	PE          pe.Config
	Buffer      mainbuffer.Config
}

// Validate checks that the buffer geometry matches the PE array: MEM0
// supplies one input word per PE, MEM1 matches the PE input width, and
// MEM2 accepts one output word per PE.
func (c Config) Validate() error {
	if c.CounterBits <= 0 {
		return ConfigError{fmt.Sprintf("counter width %d must be positive", c.CounterBits)}
	}
	if c.PECount <= 0 {
		return ConfigError{fmt.Sprintf("PE count %d must be positive", c.PECount)}
	}
	if err := c.PE.Validate(); err != nil {
		return ConfigError{err.Error()}
	}
	if got, want := c.Buffer.Mem0Bits, c.PECount*c.PE.InputBits; got != want {
		return ConfigError{fmt.Sprintf("MEM0 width %d, want %d for %d PEs with input width %d", got, want, c.PECount, c.PE.InputBits)}
	}
	if got, want := c.Buffer.Mem1Bits, c.PE.InputBits; got != want {
		return ConfigError{fmt.Sprintf("MEM1 width %d, want PE input width %d", got, want)}
	}
	if got, want := c.Buffer.Mem2Bits, c.PECount*c.PE.OutputBits; got != want {
		return ConfigError{fmt.Sprintf("MEM2 width %d, want %d for %d PEs with output width %d", got, want, c.PECount, c.PE.OutputBits)}
	}
	return nil
}

// Accelerator binds a PE array to a main buffer and executes compound
// instructions against them.
type Accelerator struct {
	config  Config
	counter bitvec.Vector // Program counter, one tick per compound instruction.
	pes     []*pe.PE
	buffer  *mainbuffer.Buffer
	m0Port  io.PortOut
	m1Port  io.PortOut
}

// Init validates the config and returns an accelerator with zeroed PEs,
// banks, and counter.
func Init(c Config) (*Accelerator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	a := &Accelerator{
		config:  c,
		counter: bitvec.New(c.CounterBits),
		pes:     make([]*pe.PE, c.PECount),
	}
	var err error
	for i := range a.pes {
		if a.pes[i], err = pe.Init(c.PE); err != nil {
			return nil, ConfigError{fmt.Sprintf("can't initialize PE %d: %v", i, err)}
		}
	}
	if a.buffer, err = mainbuffer.Init(c.Buffer); err != nil {
		return nil, ConfigError{fmt.Sprintf("can't initialize main buffer: %v", err)}
	}
	a.m0Port = a.buffer.Mem0Port()
	a.m1Port = a.buffer.Mem1Port()
	return a, nil
}

// SetMemory loads both input banks.
func (a *Accelerator) SetMemory(mem0, mem1 []bitvec.Vector) error {
	if err := a.SetMem0(mem0); err != nil {
		return err
	}
	return a.SetMem1(mem1)
}

// SetMem0 loads the MEM0 bank. Length must equal the configured depth.
func (a *Accelerator) SetMem0(words []bitvec.Vector) error {
	return a.buffer.SetMem0(words)
}

// SetMem1 loads the MEM1 bank. Length must equal the configured depth.
func (a *Accelerator) SetMem1(words []bitvec.Vector) error {
	return a.buffer.SetMem1(words)
}

// Mem2 returns a copy of the MEM2 bank.
func (a *Accelerator) Mem2() []bitvec.Vector {
	return a.buffer.ReadMem2()
}

// Buffer returns the owned main buffer for inspection.
func (a *Accelerator) Buffer() *mainbuffer.Buffer {
	return a.buffer
}

// PE returns the processing element at index i for inspection.
func (a *Accelerator) PE(i int) *pe.PE {
	return a.pes[i]
}

// PC returns the program counter register.
func (a *Accelerator) PC() bitvec.Vector {
	return a.counter
}

// PowerOn zeroes the PEs, the buffer, and the counter.
func (a *Accelerator) PowerOn() {
	for _, p := range a.pes {
		p.PowerOn()
	}
	a.buffer.PowerOn()
	a.counter = bitvec.New(a.config.CounterBits)
}

// ExecuteInstructions runs a stream of compound instructions in order with
// no inter-instruction state reset, stopping at the first error.
func (a *Accelerator) ExecuteInstructions(instructions []inst.Instruction) error {
	for i, in := range instructions {
		if err := a.ExecuteInstruction(in); err != nil {
			return fmt.Errorf("instruction %d: %v", i, err)
		}
	}
	return nil
}

// ExecuteInstruction expands one compound instruction into count+1 cycles.
// Each cycle advances the effective offsets by the strides, latches the
// MEM2 write port from the PE outputs on WRITE, executes the memory
// micro-op, routes the read ports to the PE inputs on READ, and then
// executes the PE micro-op on every PE. Errors abort mid-instruction;
// completed cycles are not rolled back.
func (a *Accelerator) ExecuteInstruction(in inst.Instruction) error {
	n := int(in.Count) + 1
	glog.V(1).Infof("PC %s: %s cycles=%d", a.counter, in.Mem.Opcode, n)
	for i := 0; i < n; i++ {
		mi := in.Mem
		mi.MemAOffset = in.Mem.MemAOffset + uint32(i)*in.MemAInc
		mi.MemBOffset = in.Mem.MemBOffset + uint32(i)*in.MemBInc
		glog.V(2).Infof("cycle %d: mem %s mema=%d memb=%d pe %s", i, mi.Opcode, mi.MemAOffset, mi.MemBOffset, in.PE.Op)

		if mi.Opcode == inst.MEM_WRITE {
			outs := make([]bitvec.Vector, len(a.pes))
			for k, p := range a.pes {
				outs[k] = p.Output()
			}
			if err := a.buffer.WriteMem2Output(bitvec.Join(outs...)); err != nil {
				return err
			}
		}

		if err := a.buffer.ExecuteInstruction(mi); err != nil {
			return err
		}

		if mi.Opcode == inst.MEM_READ {
			m0 := a.m0Port.Output()
			m1 := a.m1Port.Output()
			for k, p := range a.pes {
				if err := p.InputA(m0.Slice(k*a.config.PE.InputBits, a.config.PE.InputBits)); err != nil {
					return err
				}
				if err := p.InputB(m1); err != nil {
					return err
				}
			}
		}

		for k, p := range a.pes {
			if err := p.ExecuteInstruction(in.PE); err != nil {
				return fmt.Errorf("PE %d cycle %d: %v", k, i, err)
			}
		}
	}
	a.counter = bitvec.FromUint64(a.counter.Uint64()+1, a.config.CounterBits)
	return nil
}
