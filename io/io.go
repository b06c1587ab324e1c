// Package io defines the port interfaces used to move data between the
// main buffer and the PE array. Buffer read ports are latches: they hold
// the value driven by the most recent READ until the next one, so a port
// is simply something whose current output can be observed.
package io

import "github.com/jmchacon/simdaccel/bitvec"

// PortOut defines a latched output port of a fixed width.
type PortOut interface {
	// Output returns the value currently held on the port.
	Output() bitvec.Vector
}
