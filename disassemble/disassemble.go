// Package disassemble renders decoded instructions back into the
// canonical mnemonic syntax accepted by the assembler.
package disassemble

import (
	"fmt"

	"github.com/jmchacon/simdaccel/inst"
	"github.com/jmchacon/simdaccel/memory"
)

// PEInstruction returns the mnemonic form of one PE micro-op.
func PEInstruction(p inst.PEInstruction) string {
	if p.Op == inst.RND {
		return fmt.Sprintf("RND %s %d", p.Mode, p.Shift)
	}
	return fmt.Sprintf("%s %s", p.Op, p.Mode)
}

// MemoryInstruction returns the mnemonic form of one memory micro-op.
func MemoryInstruction(m inst.MemoryInstruction) string {
	switch m.Opcode {
	case inst.MEM_NOP:
		return "NOP"
	case inst.MEM_READ:
		return fmt.Sprintf("READ %s %d %d", m.Mode, m.MemAOffset, m.MemBOffset)
	case inst.MEM_WRITE:
		return fmt.Sprintf("WRITE %s %d", m.Mode, m.MemAOffset)
	}
	return fmt.Sprintf("MEM(%d)", int(m.Opcode))
}

// Instruction returns the full compound line for one decoded instruction.
func Instruction(i inst.Instruction) string {
	return fmt.Sprintf("%s ; %s ; %d %d %d",
		MemoryInstruction(i.Mem), PEInstruction(i.PE), i.MemAInc, i.MemBInc, i.Count)
}

// Step disassembles the instruction word stored at pc in an instruction
// bank laid out per the config. Returns the text and the next pc.
func Step(pc int, bank memory.Bank, c inst.Config) (string, int, error) {
	word, err := bank.Read(pc)
	if err != nil {
		return "", pc, err
	}
	in, err := c.Unpack(word)
	if err != nil {
		return "", pc, err
	}
	return Instruction(in), pc + 1, nil
}
