// Package memory defines the bank abstraction for the accelerator's
// scratchpad memories. Each bank is an addressable array of fixed-width
// words; the main buffer composes three of these with different widths
// and depths, so the bank itself is defined as an interface.
package memory

import (
	"fmt"

	"github.com/jmchacon/simdaccel/bitvec"
)

// AddressOutOfRange represents an access past the end of a bank.
type AddressOutOfRange struct {
	Addr  int
	Depth int
}

// Error implements the interface for error types.
func (e AddressOutOfRange) Error() string {
	return fmt.Sprintf("address %d out of range for bank depth %d", e.Addr, e.Depth)
}

// WidthMismatch represents a word or bulk load whose size disagrees with
// the bank geometry.
type WidthMismatch struct {
	Got  int
	Want int
}

// Error implements the interface for error types.
func (e WidthMismatch) Error() string {
	return fmt.Sprintf("width mismatch: got %d want %d", e.Got, e.Want)
}

// Bank is an addressable array of fixed-width words.
type Bank interface {
	// Read returns the word stored at addr.
	Read(addr int) (bitvec.Vector, error)
	// Write replaces the word at addr. The value width must equal the bank width.
	Write(addr int, val bitvec.Vector) error
	// Load replaces the entire bank contents. Length must equal the depth.
	Load(words []bitvec.Vector) error
	// Contents returns a copy of every word in the bank.
	Contents() []bitvec.Vector
	// Width returns the word width in bits.
	Width() int
	// Depth returns the number of addressable words.
	Depth() int
	// PowerOn resets every word to zero.
	PowerOn()
}

// bank is a pre-sized R/W word array. All storage is allocated at
// construction; nothing on the access path allocates.
type bank struct {
	width int
	words []bitvec.Vector
}

// NewBank creates a zeroed R/W bank of the given word width and depth.
func NewBank(width, depth int) (Bank, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid bank width %d", width)
	}
	if depth <= 0 {
		return nil, fmt.Errorf("invalid bank depth %d", depth)
	}
	b := &bank{
		width: width,
		words: make([]bitvec.Vector, depth),
	}
	b.PowerOn()
	return b, nil
}

// Read implements the interface for Bank.
func (b *bank) Read(addr int) (bitvec.Vector, error) {
	if addr < 0 || addr >= len(b.words) {
		return bitvec.Vector{}, AddressOutOfRange{addr, len(b.words)}
	}
	return b.words[addr], nil
}

// Write implements the interface for Bank.
func (b *bank) Write(addr int, val bitvec.Vector) error {
	if addr < 0 || addr >= len(b.words) {
		return AddressOutOfRange{addr, len(b.words)}
	}
	if val.Width() != b.width {
		return WidthMismatch{val.Width(), b.width}
	}
	b.words[addr] = val
	return nil
}

// Load implements the interface for Bank.
func (b *bank) Load(words []bitvec.Vector) error {
	if len(words) != len(b.words) {
		return WidthMismatch{len(words), len(b.words)}
	}
	for _, w := range words {
		if w.Width() != b.width {
			return WidthMismatch{w.Width(), b.width}
		}
	}
	copy(b.words, words)
	return nil
}

// Contents implements the interface for Bank.
func (b *bank) Contents() []bitvec.Vector {
	out := make([]bitvec.Vector, len(b.words))
	copy(out, b.words)
	return out
}

// Width implements the interface for Bank.
func (b *bank) Width() int {
	return b.width
}

// Depth implements the interface for Bank.
func (b *bank) Depth() int {
	return len(b.words)
}

// PowerOn implements the interface for Bank and zeroes the contents.
func (b *bank) PowerOn() {
	for i := range b.words {
		b.words[i] = bitvec.New(b.width)
	}
}
