// Package circuit builds the non-entangling parity-check program for one
// topology. The program prepares every data qubit in superposition (H),
// accumulates each parity group onto its ancilla (CX data -> ancilla),
// and measures the full register. Data qubits are never coupled to each
// other, which is what makes this the product-state control against the
// entangling experiment.
package circuit

import (
	"errors"
	"fmt"
	"strings"

	"qparity/internal/topology"
)

// DataQubits is the number of data qubits in every campaign circuit.
const DataQubits = 6

// Ancilla wire assignments. These are contractual: the analyzer reads
// ancilla bits at these positions regardless of topology.
const (
	AncillaGlobal = 6
	AncillaLocalA = 7
	AncillaLocalB = 8
)

// ErrGroupSize is returned when a topology's global group does not fill
// the circuit's data register.
var ErrGroupSize = errors.New("global group size does not match data register")

// Variant selects the register layout.
type Variant int

const (
	// DualAncilla is the legacy 8-wire layout: global + local-A ancillas only.
	DualAncilla Variant = iota
	// TripleAncilla is the 9-wire layout with a local-B ancilla.
	TripleAncilla
)

// ParseVariant maps a config string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "dual":
		return DualAncilla, nil
	case "triple":
		return TripleAncilla, nil
	}
	return 0, fmt.Errorf("unknown circuit variant %q (want dual or triple)", s)
}

func (v Variant) String() string {
	if v == DualAncilla {
		return "dual"
	}
	return "triple"
}

// Width returns the register width (qubits and classical bits).
func (v Variant) Width() int {
	if v == DualAncilla {
		return DataQubits + 2
	}
	return DataQubits + 3
}

// Op is the kind of a circuit operation.
type Op string

const (
	OpH       Op = "h"
	OpCX      Op = "cx"
	OpMeasure Op = "measure"
)

// Gate is one operation in the program. Control is -1 for single-qubit
// gates; for measurements Target is both the qubit and the classical bit.
type Gate struct {
	Op      Op
	Target  int
	Control int
}

// Program is an ordered gate sequence over a fixed-width register.
type Program struct {
	Width   int
	Variant Variant
	Label   string
	Gates   []Gate
}

// Build constructs the program for the given topology and variant.
// Emission order follows group order: global first, then local-A, then
// local-B when the variant wires it. Pure construction; Build never
// mutates the topology.
func Build(topo topology.Topology, variant Variant) (*Program, error) {
	if len(topo.Global) != DataQubits {
		return nil, fmt.Errorf("%w: topology %s has %d, register has %d",
			ErrGroupSize, topo.Label, len(topo.Global), DataQubits)
	}

	p := &Program{
		Width:   variant.Width(),
		Variant: variant,
		Label:   topo.Label,
	}

	switch variant {
	case DualAncilla:
		// The legacy layout wires the local ancilla to the first three
		// data qubits in emission order, so reorder the global group to
		// put the local-A members there.
		data := topo.OrderedData()
		for _, q := range data {
			p.h(q)
		}
		for _, q := range data {
			p.cx(q, AncillaGlobal)
		}
		for _, q := range data[:len(topo.LocalA)] {
			p.cx(q, AncillaLocalA)
		}
	case TripleAncilla:
		for _, q := range topo.Global {
			p.h(q)
		}
		for _, q := range topo.Global {
			p.cx(q, AncillaGlobal)
		}
		for _, q := range topo.LocalA {
			p.cx(q, AncillaLocalA)
		}
		for _, q := range topo.LocalB {
			p.cx(q, AncillaLocalB)
		}
	default:
		return nil, fmt.Errorf("unknown variant %d", variant)
	}

	for i := 0; i < p.Width; i++ {
		p.measure(i)
	}
	return p, nil
}

func (p *Program) h(q int)       { p.Gates = append(p.Gates, Gate{Op: OpH, Target: q, Control: -1}) }
func (p *Program) cx(c, t int)   { p.Gates = append(p.Gates, Gate{Op: OpCX, Target: t, Control: c}) }
func (p *Program) measure(q int) { p.Gates = append(p.Gates, Gate{Op: OpMeasure, Target: q, Control: -1}) }

// QASM renders the program as OpenQASM 2.0 text, the wire format the
// execution adapter submits.
func (p *Program) QASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", p.Width)
	fmt.Fprintf(&sb, "creg c[%d];\n\n", p.Width)
	for _, g := range p.Gates {
		switch g.Op {
		case OpH:
			fmt.Fprintf(&sb, "h q[%d];\n", g.Target)
		case OpCX:
			fmt.Fprintf(&sb, "cx q[%d], q[%d];\n", g.Control, g.Target)
		case OpMeasure:
			fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", g.Target, g.Target)
		}
	}
	return sb.String()
}
