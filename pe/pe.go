// Package pe implements the processing element datapath: a multi-lane
// MAC unit with an accumulator and an output register, operating on
// 8/16/32 bit sub-word SIMD lanes of its 32 bit inputs. All arithmetic
// is two's-complement signed and bit accurate.
package pe

import (
	"fmt"

	"github.com/jmchacon/simdaccel/bitvec"
	"github.com/jmchacon/simdaccel/inst"
)

// Config holds the register geometry of one processing element.
type Config struct {
	// InputBits is the width of the A and B input registers.
	InputBits int
	// AccumulationBits is the width of the accumulator register.
	AccumulationBits int
	// OutputBits is the width of the output register. The lane count for
	// every operation derives from this: n = OutputBits / mode.
	OutputBits int
}

// Validate checks the config invariants.
func (c Config) Validate() error {
	if c.InputBits <= 0 {
		return ShapeMismatch{fmt.Sprintf("input width %d must be positive", c.InputBits)}
	}
	if c.AccumulationBits < c.InputBits {
		return ShapeMismatch{fmt.Sprintf("accumulation width %d below input width %d", c.AccumulationBits, c.InputBits)}
	}
	if c.OutputBits <= 0 {
		return ShapeMismatch{fmt.Sprintf("output width %d must be positive", c.OutputBits)}
	}
	return nil
}

// ShapeMismatch represents a mode that does not divide the register
// geometry, or a register value of the wrong width.
type ShapeMismatch struct {
	Reason string
}

// Error implements the interface for error types.
func (e ShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch: %s", e.Reason)
}

// PE holds the architectural state of one processing element.
type PE struct {
	config Config
	a      bitvec.Vector // Input register A.
	b      bitvec.Vector // Input register B.
	acc    bitvec.Vector // Accumulator register.
	out    bitvec.Vector // Output register.
}

// Init returns a processing element with all registers zeroed.
func Init(c Config) (*PE, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p := &PE{config: c}
	p.PowerOn()
	return p, nil
}

// PowerOn resets every register to zero.
func (p *PE) PowerOn() {
	p.a = bitvec.New(p.config.InputBits)
	p.b = bitvec.New(p.config.InputBits)
	p.acc = bitvec.New(p.config.AccumulationBits)
	p.out = bitvec.New(p.config.OutputBits)
}

// InputA overwrites the A input register. The value width must equal
// the configured input width.
func (p *PE) InputA(v bitvec.Vector) error {
	if v.Width() != p.config.InputBits {
		return ShapeMismatch{fmt.Sprintf("input A width %d, register is %d", v.Width(), p.config.InputBits)}
	}
	p.a = v
	return nil
}

// InputB overwrites the B input register. The value width must equal
// the configured input width.
func (p *PE) InputB(v bitvec.Vector) error {
	if v.Width() != p.config.InputBits {
		return ShapeMismatch{fmt.Sprintf("input B width %d, register is %d", v.Width(), p.config.InputBits)}
	}
	p.b = v
	return nil
}

// Output returns the output register.
func (p *PE) Output() bitvec.Vector {
	return p.out
}

// Accumulation returns the accumulator register.
func (p *PE) Accumulation() bitvec.Vector {
	return p.acc
}

// lanes derives the lane geometry for a mode: n lanes of m input bits
// each, with w accumulator bits per lane. Both divisions must be exact
// and a lane must fit native 64 bit arithmetic.
func (p *PE) lanes(mode inst.Mode) (n, m, w int, err error) {
	if !mode.Valid() {
		return 0, 0, 0, inst.UnknownMode{Mode: mode}
	}
	m = mode.Bits()
	if p.config.OutputBits%m != 0 {
		return 0, 0, 0, ShapeMismatch{fmt.Sprintf("mode %s does not divide output width %d", mode, p.config.OutputBits)}
	}
	n = p.config.OutputBits / m
	if p.config.AccumulationBits%n != 0 {
		return 0, 0, 0, ShapeMismatch{fmt.Sprintf("%d lanes do not divide accumulation width %d", n, p.config.AccumulationBits)}
	}
	w = p.config.AccumulationBits / n
	if w > 64 {
		return 0, 0, 0, ShapeMismatch{fmt.Sprintf("accumulator lane width %d exceeds 64", w)}
	}
	return n, m, w, nil
}

// ExecuteInstruction applies one PE micro-op in its mode. A failed shape
// or opcode check leaves all registers unchanged.
func (p *PE) ExecuteInstruction(pi inst.PEInstruction) error {
	switch pi.Op {
	case inst.MAC:
		return p.mac(pi.Mode)
	case inst.NOP:
		if _, _, _, err := p.lanes(pi.Mode); err != nil {
			return err
		}
		return nil
	case inst.OUT:
		return p.output(pi.Mode)
	case inst.PASS:
		return p.pass(pi.Mode)
	case inst.CLR:
		p.acc = bitvec.New(p.config.AccumulationBits)
		p.out = bitvec.New(p.config.OutputBits)
		return nil
	case inst.RND:
		return p.rnd(pi.Mode, int(pi.Shift))
	}
	return inst.UnknownOpcode{Field: "pe.opcode", Value: int(pi.Op)}
}

// mac performs acc_i += a_i * b_i on every lane, wrapping modulo 2^w.
// Input lanes past the physical input width read as zero.
func (p *PE) mac(mode inst.Mode) error {
	n, m, w, err := p.lanes(mode)
	if err != nil {
		return err
	}
	acc := p.acc
	for i := 0; i < n; i++ {
		a := p.a.SliceInt64(i*m, m)
		b := p.b.SliceInt64(i*m, m)
		sum := acc.SliceUint64(i*w, w) + uint64(a*b)
		acc = acc.WithSliceUint64(i*w, w, sum)
	}
	p.acc = acc
	return nil
}

// pass loads acc_i with the sign extension of a_i on every lane.
func (p *PE) pass(mode inst.Mode) error {
	n, m, w, err := p.lanes(mode)
	if err != nil {
		return err
	}
	acc := p.acc
	for i := 0; i < n; i++ {
		acc = acc.WithSliceUint64(i*w, w, uint64(p.a.SliceInt64(i*m, m)))
	}
	p.acc = acc
	return nil
}

// rnd arithmetic shifts every accumulator lane right by s with sign
// preservation. Shifts of the full lane width or more collapse the lane
// to its sign.
func (p *PE) rnd(mode inst.Mode, s int) error {
	n, _, w, err := p.lanes(mode)
	if err != nil {
		return err
	}
	if s == 0 {
		return nil
	}
	acc := p.acc
	for i := 0; i < n; i++ {
		x := acc.SliceInt64(i*w, w)
		if s >= w {
			if x < 0 {
				x = -1
			} else {
				x = 0
			}
		} else {
			x >>= uint(s)
		}
		acc = acc.WithSliceUint64(i*w, w, uint64(x))
	}
	p.acc = acc
	return nil
}

// output latches the output register from the low m bits of each
// accumulator lane, most significant lane first. A result wider than the
// output register drops the high bits; a narrower one zero pads.
func (p *PE) output(mode inst.Mode) error {
	n, m, w, err := p.lanes(mode)
	if err != nil {
		return err
	}
	r := bitvec.New(n * m)
	for i := 0; i < n; i++ {
		r = r.WithSliceUint64(i*m, m, p.acc.SliceUint64(i*w, m))
	}
	p.out = r.Slice(0, p.config.OutputBits)
	return nil
}
