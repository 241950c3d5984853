// Package analysis turns a raw outcome-count distribution into parity
// stability metrics. It is register-width agnostic: the same Analyze
// call serves the 8-wire and 9-wire circuits, differing only in the
// groups passed in.
package analysis

import (
	"math"
	"strings"

	"qparity/internal/circuit"
	"qparity/internal/topology"
)

// Group is one parity group: the data qubits it spans and the ancilla
// wire that records their parity.
type Group struct {
	Qubits  []int
	Ancilla int
}

// Groups carries the parity groups for one job. LocalB is nil when the
// circuit variant does not wire a local-B ancilla.
type Groups struct {
	Global Group
	LocalA Group
	LocalB *Group
}

// GroupsFor derives the analysis groups from a topology and circuit
// variant, using the ancilla wire conventions fixed by the builder.
func GroupsFor(topo topology.Topology, variant circuit.Variant) Groups {
	g := Groups{
		Global: Group{Qubits: topo.Global, Ancilla: circuit.AncillaGlobal},
		LocalA: Group{Qubits: topo.LocalA, Ancilla: circuit.AncillaLocalA},
	}
	if variant == circuit.TripleAncilla {
		g.LocalB = &Group{Qubits: topo.LocalB, Ancilla: circuit.AncillaLocalB}
	}
	return g
}

// Metrics is the per-job stability record. Stabilities and Asymmetry
// are fractions in [0,1]; Entropy is in bits.
type Metrics struct {
	Global    float64
	LocalA    float64
	LocalB    float64
	Asymmetry float64
	Entropy   float64
}

// Analyze computes stability metrics over an outcome-count distribution.
// Outcome keys are measurement bitstrings; they are normalized to width
// characters (separators stripped, zero-padded on the left) and then
// reversed so that position i addresses the measurement of qubit i.
// A zero-total distribution yields all-zero metrics.
func Analyze(counts map[string]int, groups Groups, width int) Metrics {
	var total int
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return Metrics{}
	}

	var globalOK, localAOK, localBOK int
	var entropy float64

	for state, c := range counts {
		if c <= 0 {
			continue
		}
		bits := reverse(normalize(state, width))

		if parityMatches(bits, groups.Global) {
			globalOK += c
		}
		if parityMatches(bits, groups.LocalA) {
			localAOK += c
		}
		if groups.LocalB != nil && parityMatches(bits, *groups.LocalB) {
			localBOK += c
		}

		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}

	m := Metrics{
		Global:  float64(globalOK) / float64(total),
		LocalA:  float64(localAOK) / float64(total),
		Entropy: entropy,
	}
	if groups.LocalB != nil {
		m.LocalB = float64(localBOK) / float64(total)
		m.Asymmetry = math.Abs(m.LocalA - m.LocalB)
	}
	return m
}

// parityMatches reports whether the ancilla bit agrees with the parity
// of the group's data bits. bits is in qubit order (LSB first).
func parityMatches(bits string, g Group) bool {
	parity := 0
	for _, q := range g.Qubits {
		if q < len(bits) && bits[q] == '1' {
			parity ^= 1
		}
	}
	measured := 0
	if g.Ancilla < len(bits) && bits[g.Ancilla] == '1' {
		measured = 1
	}
	return measured == parity
}

// normalize strips separators and left-pads the bitstring to width.
func normalize(s string, width int) string {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '_' {
			return -1
		}
		return r
	}, s)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// reverse flips the bitstring so position i corresponds to qubit i.
// Counts come back MSB-first; qubit 0 is the least significant bit.
func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
