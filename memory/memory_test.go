package memory

import (
	"testing"

	"github.com/jmchacon/simdaccel/bitvec"
)

func TestNewBankErrors(t *testing.T) {
	tests := []struct {
		name  string
		width int
		depth int
	}{
		{"Zero width", 0, 4},
		{"Negative width", -1, 4},
		{"Zero depth", 32, 0},
		{"Negative depth", 32, -2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if b, err := NewBank(test.width, test.depth); err == nil {
				t.Errorf("Didn't get error, got bank %v", b)
			}
		})
	}
}

func TestReadWrite(t *testing.T) {
	b, err := NewBank(32, 4)
	if err != nil {
		t.Fatalf("Can't initialize bank - %v", err)
	}
	for i := 0; i < b.Depth(); i++ {
		v, err := b.Read(i)
		if err != nil {
			t.Fatalf("Read %d - %v", i, err)
		}
		if !v.IsZero() {
			t.Errorf("Fresh bank word %d not zero: %s", i, v)
		}
	}
	if err := b.Write(2, bitvec.FromUint64(0xDEADBEEF, 32)); err != nil {
		t.Fatalf("Write - %v", err)
	}
	v, err := b.Read(2)
	if err != nil {
		t.Fatalf("Read - %v", err)
	}
	if got, want := v.Uint64(), uint64(0xDEADBEEF); got != want {
		t.Errorf("Bad readback: got %X and want %X", got, want)
	}

	// Range errors on both sides.
	if _, err := b.Read(4); err == nil {
		t.Error("Didn't get error reading past depth")
	} else if _, ok := err.(AddressOutOfRange); !ok {
		t.Errorf("Wrong error type reading past depth - %v", err)
	}
	if _, err := b.Read(-1); err == nil {
		t.Error("Didn't get error reading negative address")
	}
	if err := b.Write(4, bitvec.New(32)); err == nil {
		t.Error("Didn't get error writing past depth")
	}

	// Width errors don't mutate.
	if err := b.Write(2, bitvec.New(16)); err == nil {
		t.Error("Didn't get error writing narrow word")
	} else if _, ok := err.(WidthMismatch); !ok {
		t.Errorf("Wrong error type writing narrow word - %v", err)
	}
	if v, _ := b.Read(2); v.Uint64() != 0xDEADBEEF {
		t.Errorf("Failed write mutated bank: %s", v)
	}
}

func TestLoad(t *testing.T) {
	b, err := NewBank(16, 3)
	if err != nil {
		t.Fatalf("Can't initialize bank - %v", err)
	}
	words := []bitvec.Vector{
		bitvec.FromUint64(1, 16),
		bitvec.FromUint64(2, 16),
		bitvec.FromUint64(3, 16),
	}
	if err := b.Load(words); err != nil {
		t.Fatalf("Load - %v", err)
	}
	for i, want := range []uint64{1, 2, 3} {
		v, _ := b.Read(i)
		if got := v.Uint64(); got != want {
			t.Errorf("Bad word %d: got %d and want %d", i, got, want)
		}
	}

	if err := b.Load(words[:2]); err == nil {
		t.Error("Didn't get error loading short slice")
	}
	if err := b.Load([]bitvec.Vector{bitvec.New(16), bitvec.New(8), bitvec.New(16)}); err == nil {
		t.Error("Didn't get error loading wrong width word")
	}
	// Failed loads leave contents alone.
	if v, _ := b.Read(0); v.Uint64() != 1 {
		t.Errorf("Failed load mutated bank: %s", v)
	}

	b.PowerOn()
	for i := 0; i < b.Depth(); i++ {
		if v, _ := b.Read(i); !v.IsZero() {
			t.Errorf("PowerOn left word %d nonzero: %s", i, v)
		}
	}
}

func TestContentsIsACopy(t *testing.T) {
	b, err := NewBank(8, 2)
	if err != nil {
		t.Fatalf("Can't initialize bank - %v", err)
	}
	c := b.Contents()
	c[0] = bitvec.FromUint64(0xFF, 8)
	if v, _ := b.Read(0); !v.IsZero() {
		t.Errorf("Mutating Contents() changed the bank: %s", v)
	}
}
