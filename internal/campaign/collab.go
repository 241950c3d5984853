// Package campaign drives the two-phase experiment loop: submit every
// (topology, repetition) job, then collect and analyze results in
// submission order. External collaborators (backend service, circuit
// optimizer, executor, ledger) are consumed through the interfaces in
// this file; adapters/ provides the implementations.
package campaign

import (
	"context"

	"qparity/internal/circuit"
)

// DefaultCountsField is the classical register name under which the
// execution service reports outcome counts.
const DefaultCountsField = "c"

// Backend is a handle to one quantum processing unit.
type Backend interface {
	Name() string
}

// NamedBackend adapts a stored backend name to the Backend interface,
// so collection can reattach without re-selecting a device.
type NamedBackend string

func (b NamedBackend) Name() string { return string(b) }

// Service connects the campaign to the remote processing provider.
// Implementations try the priority list in order, accepting the first
// operational backend with fewer than maxPending queued jobs, and fall
// back to the least busy operational non-simulator.
type Service interface {
	SelectBackend(ctx context.Context, priority []string, maxPending int) (Backend, error)
}

// PhysicalProgram is a program lowered for a specific backend.
// Source carries the abstract program for in-process executors; remote
// executors only read QASM.
type PhysicalProgram struct {
	QASM    string
	Width   int
	Backend string
	Source  *circuit.Program
}

// Optimizer lowers an abstract program for the target backend.
type Optimizer interface {
	Optimize(ctx context.Context, p *circuit.Program, backend Backend, level int) (PhysicalProgram, error)
}

// Job is a handle to one submitted execution. Result blocks until the
// job reaches a terminal state.
type Job interface {
	ID() string
	Result(ctx context.Context) (Result, error)
}

// Result exposes the outcome-count distribution through a named
// accessor. Field is the classical register name (DefaultCountsField
// unless the circuit declares otherwise); there is no dynamic field
// discovery.
type Result interface {
	Counts(field string) (map[string]int, error)
}

// Executor submits physical programs and reattaches to previously
// submitted jobs by identifier.
type Executor interface {
	Submit(ctx context.Context, p PhysicalProgram, shots int) (Job, error)
	Retrieve(ctx context.Context, jobID string) (Job, error)
}

// LedgerRow is one analyzed job. Stabilities and asymmetry are
// fractions in [0,1]; the ledger renders them as percentages.
type LedgerRow struct {
	Backend   string
	RunLabel  string
	JobID     string
	Global    float64
	LocalA    float64
	LocalB    float64
	Asymmetry float64
	Shots     int
}

// Ledger is the append-only campaign log. Append writes exactly one row
// per successfully analyzed job.
type Ledger interface {
	Append(row LedgerRow) error
}
