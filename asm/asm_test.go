package asm

import (
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/jmchacon/simdaccel/inst"
)

func Setup(t *testing.T) *Assembler {
	t.Helper()
	a, err := New(inst.DefaultConfig())
	if err != nil {
		t.Fatalf("Can't initialize assembler - %v", err)
	}
	return a
}

func TestConvertPEInstruction(t *testing.T) {
	a := Setup(t)
	tests := []struct {
		in      string
		want    inst.PEInstruction
		wantErr bool
	}{
		{in: "MAC INT16", want: inst.PEInstruction{Op: inst.MAC, Mode: inst.INT16}},
		{in: "PASS INT32", want: inst.PEInstruction{Op: inst.PASS, Mode: inst.INT32}},
		{in: "OUT INT8", want: inst.PEInstruction{Op: inst.OUT, Mode: inst.INT8}},
		{in: "CLR INT32", want: inst.PEInstruction{Op: inst.CLR, Mode: inst.INT32}},
		{in: "RND INT16 8", want: inst.PEInstruction{Op: inst.RND, Mode: inst.INT16, Shift: 8}},
		{in: "  RND   INT8   31 ", want: inst.PEInstruction{Op: inst.RND, Mode: inst.INT8, Shift: 31}},
		{in: "NOP", want: inst.PEInstruction{Op: inst.NOP, Mode: inst.INT32}},
		{in: "NOP INT16", want: inst.PEInstruction{Op: inst.NOP, Mode: inst.INT16}},
		{in: "", wantErr: true},
		{in: "FMA INT16", wantErr: true},
		{in: "MAC", wantErr: true},
		{in: "MAC INT64", wantErr: true},
		{in: "MAC INT16 3", wantErr: true},
		{in: "RND INT16", wantErr: true},
		{in: "RND INT16 32", wantErr: true}, // 5 bit shift field.
		{in: "RND INT16 x", wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := a.ConvertPEInstruction(test.in)
			if test.wantErr {
				if err == nil {
					t.Fatalf("Didn't get error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error - %v", err)
			}
			if diff := deep.Equal(got, test.want); diff != nil {
				t.Errorf("Bad instruction: %v", diff)
			}
		})
	}
}

func TestConvertMemoryInstruction(t *testing.T) {
	a := Setup(t)
	tests := []struct {
		in      string
		want    inst.MemoryInstruction
		wantErr bool
	}{
		{in: "NOP", want: inst.MemoryInstruction{Opcode: inst.MEM_NOP, Mode: inst.INT32}},
		{in: "NOP INT8", want: inst.MemoryInstruction{Opcode: inst.MEM_NOP, Mode: inst.INT8}},
		{in: "READ INT16 3 4", want: inst.MemoryInstruction{Opcode: inst.MEM_READ, Mode: inst.INT16, MemAOffset: 3, MemBOffset: 4}},
		{in: "READ INT32 0x10 1023", want: inst.MemoryInstruction{Opcode: inst.MEM_READ, Mode: inst.INT32, MemAOffset: 16, MemBOffset: 1023}},
		{in: "WRITE INT32 2", want: inst.MemoryInstruction{Opcode: inst.MEM_WRITE, Mode: inst.INT32, MemAOffset: 2}},
		{in: "WRITE INT8 2 0", want: inst.MemoryInstruction{Opcode: inst.MEM_WRITE, Mode: inst.INT8, MemAOffset: 2}},
		{in: "", wantErr: true},
		{in: "LOAD INT16 0 0", wantErr: true},
		{in: "READ INT16 3", wantErr: true},
		{in: "READ INT16 1024 0", wantErr: true}, // 10 bit offset field.
		{in: "READ BYTE 0 0", wantErr: true},
		{in: "NOP INT8 3", wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := a.ConvertMemoryInstruction(test.in)
			if test.wantErr {
				if err == nil {
					t.Fatalf("Didn't get error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error - %v", err)
			}
			if diff := deep.Equal(got, test.want); diff != nil {
				t.Errorf("Bad instruction: %v", diff)
			}
		})
	}
}

func TestConvertInstruction(t *testing.T) {
	a := Setup(t)
	tests := []struct {
		name    string
		in      string
		want    inst.Instruction
		wantErr bool
	}{
		{
			name: "Full compound",
			in:   "READ INT8 0 4 ; MAC INT8 ; 1 0 7",
			want: inst.Instruction{
				Mem:     inst.MemoryInstruction{Opcode: inst.MEM_READ, Mode: inst.INT8, MemBOffset: 4},
				PE:      inst.PEInstruction{Op: inst.MAC, Mode: inst.INT8},
				MemAInc: 1,
				Count:   7,
			},
		},
		{
			name: "Memory only",
			in:   "WRITE INT16 2",
			want: inst.Instruction{
				Mem: inst.MemoryInstruction{Opcode: inst.MEM_WRITE, Mode: inst.INT16, MemAOffset: 2},
				PE:  inst.PEInstruction{Op: inst.NOP, Mode: inst.INT32},
			},
		},
		{
			name: "Missing tail",
			in:   "NOP ; RND INT16 8",
			want: inst.Instruction{
				Mem: inst.MemoryInstruction{Opcode: inst.MEM_NOP, Mode: inst.INT32},
				PE:  inst.PEInstruction{Op: inst.RND, Mode: inst.INT16, Shift: 8},
			},
		},
		{
			name: "Empty middle group",
			in:   "READ INT32 1 1 ; ; 0 0 3",
			want: inst.Instruction{
				Mem:   inst.MemoryInstruction{Opcode: inst.MEM_READ, Mode: inst.INT32, MemAOffset: 1, MemBOffset: 1},
				PE:    inst.PEInstruction{Op: inst.NOP, Mode: inst.INT32},
				Count: 3,
			},
		},
		{
			name:    "Too many groups",
			in:      "NOP ; NOP ; 0 0 0 ; 1",
			wantErr: true,
		},
		{
			name:    "Short tail",
			in:      "NOP ; NOP ; 0 0",
			wantErr: true,
		},
		{
			name:    "Count overflow",
			in:      "NOP ; NOP ; 0 0 1024",
			wantErr: true,
		},
		{
			name:    "Stride overflow",
			in:      "NOP ; NOP ; 2 0 0",
			wantErr: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := a.ConvertInstruction(test.in)
			if test.wantErr {
				if err == nil {
					t.Fatalf("Didn't get error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error - %v", err)
			}
			if diff := deep.Equal(got, test.want); diff != nil {
				t.Errorf("Bad instruction: %v", diff)
			}
		})
	}
}

func TestAssembleProgram(t *testing.T) {
	a := Setup(t)
	program := `
# Dot product of four MEM0 words against one MEM1 word.
READ INT32 0 0 ; MAC INT32 ; 1 0 3
NOP ; OUT INT32          # latch the result
WRITE INT32 0
`
	got, err := a.AssembleProgram(strings.NewReader(program))
	if err != nil {
		t.Fatalf("AssembleProgram - %v", err)
	}
	want := []inst.Instruction{
		{
			Mem:     inst.MemoryInstruction{Opcode: inst.MEM_READ, Mode: inst.INT32},
			PE:      inst.PEInstruction{Op: inst.MAC, Mode: inst.INT32},
			MemAInc: 1,
			Count:   3,
		},
		{
			Mem: inst.MemoryInstruction{Opcode: inst.MEM_NOP, Mode: inst.INT32},
			PE:  inst.PEInstruction{Op: inst.OUT, Mode: inst.INT32},
		},
		{
			Mem: inst.MemoryInstruction{Opcode: inst.MEM_WRITE, Mode: inst.INT32},
			PE:  inst.PEInstruction{Op: inst.NOP, Mode: inst.INT32},
		},
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("Bad program: %v", diff)
	}
}

func TestAssembleProgramErrorLine(t *testing.T) {
	a := Setup(t)
	program := "NOP\n\nREAD INT16 3\n"
	if _, err := a.AssembleProgram(strings.NewReader(program)); err == nil {
		t.Fatal("Didn't get error")
	} else if pe, ok := err.(ParseError); !ok || pe.Line != 3 {
		t.Errorf("Wrong error or line number - %v", err)
	}
}
