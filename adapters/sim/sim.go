// Package sim executes campaign programs on a local seeded sampler. The
// campaign circuits keep every superposed qubit out of further H gates,
// so sampling is exact: each H draws a uniform bit and each CX folds the
// control bit into the target. An optional readout-error rate flips
// measured bits to exercise the analyzer on noisy distributions.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"qparity/internal/campaign"
	"qparity/internal/circuit"
)

// BackendName identifies the local sampler in ledgers and job records.
const BackendName = "local_sim"

type backend struct{}

func (backend) Name() string { return BackendName }

// Service selects the local sampler regardless of the configured
// priority list.
type Service struct{}

func (Service) SelectBackend(_ context.Context, _ []string, _ int) (campaign.Backend, error) {
	return backend{}, nil
}

// Sampler implements the optimizer and executor collaborators against an
// in-process sampler. A fixed seed makes whole campaigns reproducible.
type Sampler struct {
	mu           sync.Mutex
	rng          *rand.Rand
	readoutError float64
	nextID       int
	byID         map[string]*job
}

// New returns a sampler seeded for reproducible campaigns.
func New(seed int64) *Sampler {
	return &Sampler{
		rng:  rand.New(rand.NewSource(seed)),
		byID: make(map[string]*job),
	}
}

// SetReadoutError makes each measured bit flip with probability p.
func (s *Sampler) SetReadoutError(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readoutError = p
}

// Optimize is a pass-through: the local sampler needs no lowering, so
// the physical program carries the abstract program unchanged.
func (s *Sampler) Optimize(_ context.Context, p *circuit.Program, b campaign.Backend, _ int) (campaign.PhysicalProgram, error) {
	return campaign.PhysicalProgram{
		QASM:    p.QASM(),
		Width:   p.Width,
		Backend: b.Name(),
		Source:  p,
	}, nil
}

// Submit samples the program immediately and returns a completed job.
func (s *Sampler) Submit(_ context.Context, p campaign.PhysicalProgram, shots int) (campaign.Job, error) {
	if p.Source == nil {
		return nil, fmt.Errorf("physical program carries no source circuit")
	}
	if shots <= 0 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for i := 0; i < shots; i++ {
		counts[s.sample(p.Source)]++
	}

	s.nextID++
	j := &job{
		id:     fmt.Sprintf("sim-%04d", s.nextID),
		counts: counts,
	}
	s.byID[j.id] = j
	return j, nil
}

// Retrieve reattaches to a job submitted earlier in this process.
// Sampler jobs do not survive a restart.
func (s *Sampler) Retrieve(_ context.Context, jobID string) (campaign.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.byID[jobID]; ok {
		return j, nil
	}
	return nil, fmt.Errorf("job %s not found: sampler jobs do not persist across processes", jobID)
}

// sample runs one shot. Qubit i lands at string position width-1-i,
// matching the provider's bit ordering.
func (s *Sampler) sample(p *circuit.Program) string {
	bits := make([]byte, p.Width)
	out := make([]byte, p.Width)
	for i := range out {
		out[i] = '0'
	}
	for _, g := range p.Gates {
		switch g.Op {
		case circuit.OpH:
			bits[g.Target] = byte(s.rng.Intn(2))
		case circuit.OpCX:
			bits[g.Target] ^= bits[g.Control]
		case circuit.OpMeasure:
			b := bits[g.Target]
			if s.readoutError > 0 && s.rng.Float64() < s.readoutError {
				b ^= 1
			}
			out[p.Width-1-g.Target] = '0' + b
		}
	}
	return string(out)
}

type job struct {
	id     string
	counts map[string]int
}

func (j *job) ID() string { return j.id }

func (j *job) Result(ctx context.Context) (campaign.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result{counts: j.counts}, nil
}

type result struct {
	counts map[string]int
}

func (r result) Counts(field string) (map[string]int, error) {
	if field != campaign.DefaultCountsField {
		return nil, fmt.Errorf("no classical register %q in result", field)
	}
	return r.counts, nil
}
