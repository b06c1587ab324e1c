// Package asm implements the textual assembler for the accelerator.
// Micro-op fragments use the mnemonic forms "MAC INT16", "RND INT16 8",
// "READ INT16 3 4" and "WRITE INT32 2". A full compound instruction is
// three semicolon separated groups:
//
//	MEM ; PE ; MEMA_INC MEMB_INC COUNT
//
// e.g. "READ INT8 0 4 ; MAC INT8 ; 1 0 7". A missing PE group assembles
// as NOP and a missing tail as zero strides and count.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jmchacon/simdaccel/inst"
)

// ParseError represents an unparseable line of assembly.
type ParseError struct {
	Line   int // 1-based line number, 0 for bare fragments.
	Text   string
	Reason string
}

// Error implements the interface for error types.
func (e ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: can't assemble %q: %s", e.Line, e.Text, e.Reason)
	}
	return fmt.Sprintf("can't assemble %q: %s", e.Text, e.Reason)
}

// Assembler converts mnemonic text into decoded instructions, range
// checking every field against the configured instruction layout.
type Assembler struct {
	config inst.Config
}

// New returns an assembler for the given instruction layout.
func New(c inst.Config) (*Assembler, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Assembler{config: c}, nil
}

// parseMode maps a mode suffix token.
func parseMode(tok string) (inst.Mode, bool) {
	switch tok {
	case "INT32":
		return inst.INT32, true
	case "INT16":
		return inst.INT16, true
	case "INT8":
		return inst.INT8, true
	}
	return 0, false
}

// parseField parses a decimal or 0x-prefixed field operand and range
// checks it against the field width.
func parseField(tok, name string, bits int) (uint32, error) {
	digits, base := tok, 10
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits, base = digits[2:], 16
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("bad %s operand %q", name, tok)
	}
	if bits < 32 && v >= uint64(1)<<uint(bits) {
		return 0, fmt.Errorf("%s operand %d does not fit in %d bits", name, v, bits)
	}
	return uint32(v), nil
}

// ConvertPEInstruction assembles one PE micro-op fragment such as
// "MAC INT16" or "RND INT16 8". A bare "NOP" defaults to INT32.
func (a *Assembler) ConvertPEInstruction(s string) (inst.PEInstruction, error) {
	toks := strings.Fields(s)
	fail := func(reason string) (inst.PEInstruction, error) {
		return inst.PEInstruction{}, ParseError{Text: s, Reason: reason}
	}
	if len(toks) == 0 {
		return fail("empty PE instruction")
	}

	var op inst.PEOp
	switch toks[0] {
	case "MAC":
		op = inst.MAC
	case "NOP":
		op = inst.NOP
	case "OUT":
		op = inst.OUT
	case "PASS":
		op = inst.PASS
	case "CLR":
		op = inst.CLR
	case "RND":
		op = inst.RND
	default:
		return fail(fmt.Sprintf("unknown PE mnemonic %q", toks[0]))
	}

	mode := inst.INT32
	rest := toks[1:]
	if len(rest) > 0 {
		m, ok := parseMode(rest[0])
		if !ok {
			return fail(fmt.Sprintf("unknown mode %q", rest[0]))
		}
		mode = m
		rest = rest[1:]
	} else if op != inst.NOP {
		return fail("missing mode")
	}

	pi := inst.PEInstruction{Op: op, Mode: mode}
	if op == inst.RND {
		if len(rest) != 1 {
			return fail("RND takes exactly one shift operand")
		}
		shift, err := parseField(rest[0], "shift", a.config.PE.ValueBits)
		if err != nil {
			return fail(err.Error())
		}
		pi.Shift = shift
		return pi, nil
	}
	if len(rest) != 0 {
		return fail(fmt.Sprintf("unexpected operand %q", rest[0]))
	}
	return pi, nil
}

// ConvertMemoryInstruction assembles one memory micro-op fragment:
// "NOP", "READ MODE MEMA MEMB", or "WRITE MODE MEMA". WRITE accepts and
// ignores a trailing MEMB operand.
func (a *Assembler) ConvertMemoryInstruction(s string) (inst.MemoryInstruction, error) {
	toks := strings.Fields(s)
	fail := func(reason string) (inst.MemoryInstruction, error) {
		return inst.MemoryInstruction{}, ParseError{Text: s, Reason: reason}
	}
	if len(toks) == 0 {
		return fail("empty memory instruction")
	}

	switch toks[0] {
	case "NOP":
		if len(toks) > 2 {
			return fail("NOP takes no operands")
		}
		mode := inst.INT32
		if len(toks) == 2 {
			m, ok := parseMode(toks[1])
			if !ok {
				return fail(fmt.Sprintf("unknown mode %q", toks[1]))
			}
			mode = m
		}
		return inst.MemoryInstruction{Opcode: inst.MEM_NOP, Mode: mode}, nil
	case "READ", "WRITE":
		opcode := inst.MEM_READ
		want := 4
		if toks[0] == "WRITE" {
			opcode = inst.MEM_WRITE
			want = 3
		}
		if len(toks) < want || len(toks) > 4 {
			return fail(fmt.Sprintf("%s takes mode and offset operands", toks[0]))
		}
		mode, ok := parseMode(toks[1])
		if !ok {
			return fail(fmt.Sprintf("unknown mode %q", toks[1]))
		}
		mi := inst.MemoryInstruction{Opcode: opcode, Mode: mode}
		var err error
		if mi.MemAOffset, err = parseField(toks[2], "mema_offset", a.config.Mem.MemAOffsetBits); err != nil {
			return fail(err.Error())
		}
		if len(toks) == 4 && opcode == inst.MEM_READ {
			if mi.MemBOffset, err = parseField(toks[3], "memb_offset", a.config.Mem.MemBOffsetBits); err != nil {
				return fail(err.Error())
			}
		}
		return mi, nil
	}
	return fail(fmt.Sprintf("unknown memory mnemonic %q", toks[0]))
}

// ConvertInstruction assembles one full compound line. Groups beyond the
// memory micro-op are optional.
func (a *Assembler) ConvertInstruction(line string) (inst.Instruction, error) {
	groups := strings.Split(line, ";")
	if len(groups) > 3 {
		return inst.Instruction{}, ParseError{Text: line, Reason: "too many instruction groups"}
	}

	out := inst.Instruction{
		PE: inst.PEInstruction{Op: inst.NOP, Mode: inst.INT32},
	}
	var err error
	if out.Mem, err = a.ConvertMemoryInstruction(groups[0]); err != nil {
		return inst.Instruction{}, err
	}
	if len(groups) > 1 && strings.TrimSpace(groups[1]) != "" {
		if out.PE, err = a.ConvertPEInstruction(groups[1]); err != nil {
			return inst.Instruction{}, err
		}
	}
	if len(groups) > 2 && strings.TrimSpace(groups[2]) != "" {
		toks := strings.Fields(groups[2])
		if len(toks) != 3 {
			return inst.Instruction{}, ParseError{Text: line, Reason: "loop group takes mema_inc memb_inc count"}
		}
		if out.MemAInc, err = parseField(toks[0], "mema_inc", a.config.MemAIncBits); err != nil {
			return inst.Instruction{}, ParseError{Text: line, Reason: err.Error()}
		}
		if out.MemBInc, err = parseField(toks[1], "memb_inc", a.config.MemBIncBits); err != nil {
			return inst.Instruction{}, ParseError{Text: line, Reason: err.Error()}
		}
		if out.Count, err = parseField(toks[2], "count", a.config.CountBits); err != nil {
			return inst.Instruction{}, ParseError{Text: line, Reason: err.Error()}
		}
	}
	return out, nil
}

// AssembleProgram reads a line oriented program, skipping blank lines and
// # comments, and returns the decoded instruction stream. Errors carry
// the 1-based line number.
func (a *Assembler) AssembleProgram(r io.Reader) ([]inst.Instruction, error) {
	var out []inst.Instruction
	scanner := bufio.NewScanner(r)
	l := 0
	for scanner.Scan() {
		l++
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		in, err := a.ConvertInstruction(line)
		if err != nil {
			if pe, ok := err.(ParseError); ok {
				pe.Line = l
				return nil, pe
			}
			return nil, fmt.Errorf("line %d: %v", l, err)
		}
		out = append(out, in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error after line %d: %v", l, err)
	}
	return out, nil
}
