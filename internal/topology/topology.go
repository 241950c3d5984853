// Package topology defines the fixed qubit-role assignments used by the
// parity-stability campaign. Each topology names which of the six data
// qubits belong to the global parity group and to the two local subgroups.
// The four configurations are fixed at design time; the registry is
// read-only.
package topology

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownLabel is returned by Get for a label outside A-D.
var ErrUnknownLabel = errors.New("unknown topology label")

// Topology is one named role-to-qubit assignment. Global lists all data
// qubits monitored by the global parity ancilla; LocalA and LocalB are
// subgroups of Global, each monitored by its own ancilla. LocalB is only
// wired in the triple-ancilla circuit variant.
type Topology struct {
	Label  string
	Global []int
	LocalA []int
	LocalB []int
}

var registry = map[string]Topology{
	"A": { // baseline
		Label:  "A",
		Global: []int{0, 1, 2, 3, 4, 5},
		LocalA: []int{0, 1, 2},
		LocalB: []int{3, 4, 5},
	},
	"B": { // rotation +1
		Label:  "B",
		Global: []int{1, 2, 3, 4, 5, 0},
		LocalA: []int{1, 2, 3},
		LocalB: []int{4, 5, 0},
	},
	"C": { // rotation +2
		Label:  "C",
		Global: []int{2, 3, 4, 5, 0, 1},
		LocalA: []int{2, 3, 4},
		LocalB: []int{5, 0, 1},
	},
	"D": { // interleaved
		Label:  "D",
		Global: []int{0, 1, 2, 3, 4, 5},
		LocalA: []int{0, 2, 4},
		LocalB: []int{1, 3, 5},
	},
}

// Labels returns the topology labels in campaign submission order.
func Labels() []string {
	return []string{"A", "B", "C", "D"}
}

// Get returns a copy of the topology for the given label.
// The copy owns its index slices, so callers cannot mutate the registry.
func Get(label string) (Topology, error) {
	t, ok := registry[label]
	if !ok {
		return Topology{}, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return t.clone(), nil
}

func (t Topology) clone() Topology {
	return Topology{
		Label:  t.Label,
		Global: slices.Clone(t.Global),
		LocalA: slices.Clone(t.LocalA),
		LocalB: slices.Clone(t.LocalB),
	}
}

// OrderedData returns the global group reordered so that the LocalA
// members come first. The dual-ancilla circuit wires its local ancilla
// to the first three data qubits in emission order, so this ordering is
// what makes data[:3] coincide with the LocalA group.
func (t Topology) OrderedData() []int {
	ordered := slices.Clone(t.LocalA)
	for _, q := range t.Global {
		if !slices.Contains(t.LocalA, q) {
			ordered = append(ordered, q)
		}
	}
	return ordered
}
