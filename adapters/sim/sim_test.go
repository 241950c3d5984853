package sim

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"qparity/internal/analysis"
	"qparity/internal/campaign"
	"qparity/internal/circuit"
	"qparity/internal/topology"
)

func submitLabel(t *testing.T, s *Sampler, label string, variant circuit.Variant, shots int) (map[string]int, topology.Topology) {
	t.Helper()
	topo, err := topology.Get(label)
	if err != nil {
		t.Fatalf("topology: %v", err)
	}
	prog, err := circuit.Build(topo, variant)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	phys, err := s.Optimize(context.Background(), prog, backend{}, 1)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	job, err := s.Submit(context.Background(), phys, shots)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	res, err := job.Result(context.Background())
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	counts, err := res.Counts(campaign.DefaultCountsField)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	return counts, topo
}

func TestIdealSampling_PerfectStability(t *testing.T) {
	s := New(7)
	for _, label := range topology.Labels() {
		counts, topo := submitLabel(t, s, label, circuit.TripleAncilla, 2000)

		total := 0
		for outcome, n := range counts {
			if len(outcome) != 9 {
				t.Fatalf("label %s: outcome %q has width %d", label, outcome, len(outcome))
			}
			total += n
		}
		if total != 2000 {
			t.Errorf("label %s: total counts = %d, want shots", label, total)
		}

		m := analysis.Analyze(counts, analysis.GroupsFor(topo, circuit.TripleAncilla), 9)
		if m.Global != 1 || m.LocalA != 1 || m.LocalB != 1 {
			t.Errorf("label %s: stabilities = %v/%v/%v, want all 1.0",
				label, m.Global, m.LocalA, m.LocalB)
		}
		if m.Asymmetry != 0 {
			t.Errorf("label %s: asymmetry = %v, want 0", label, m.Asymmetry)
		}
	}
}

func TestIdealSampling_DualVariant(t *testing.T) {
	s := New(11)
	counts, topo := submitLabel(t, s, "D", circuit.DualAncilla, 1000)

	for outcome := range counts {
		if len(outcome) != 8 {
			t.Fatalf("outcome %q has width %d, want 8", outcome, len(outcome))
		}
	}
	m := analysis.Analyze(counts, analysis.GroupsFor(topo, circuit.DualAncilla), 8)
	if m.Global != 1 || m.LocalA != 1 {
		t.Errorf("stabilities = %v/%v, want 1.0", m.Global, m.LocalA)
	}
	if m.LocalB != 0 || m.Asymmetry != 0 {
		t.Errorf("dual variant must report zero local-B and asymmetry, got %v/%v", m.LocalB, m.Asymmetry)
	}
}

func TestSeededDeterminism(t *testing.T) {
	a, _ := submitLabel(t, New(42), "B", circuit.TripleAncilla, 500)
	b, _ := submitLabel(t, New(42), "B", circuit.TripleAncilla, 500)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different counts (-a +b):\n%s", diff)
	}
}

func TestReadoutError_BreaksGlobalOnly(t *testing.T) {
	// Flipping every measured bit flips all six data bits, which leaves
	// the six-member global parity unchanged while the global ancilla
	// flips. The three-member local parities flip together with their
	// ancillas, so the local checks still pass.
	s := New(3)
	s.SetReadoutError(1)
	counts, topo := submitLabel(t, s, "A", circuit.TripleAncilla, 400)

	m := analysis.Analyze(counts, analysis.GroupsFor(topo, circuit.TripleAncilla), 9)
	if m.Global != 0 {
		t.Errorf("global = %v, want 0 under full readout inversion", m.Global)
	}
	if m.LocalA != 1 || m.LocalB != 1 {
		t.Errorf("locals = %v/%v, want 1.0", m.LocalA, m.LocalB)
	}
}

func TestRetrieve(t *testing.T) {
	s := New(5)
	submitLabel(t, s, "A", circuit.TripleAncilla, 10)

	job, err := s.Retrieve(context.Background(), "sim-0001")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if job.ID() != "sim-0001" {
		t.Errorf("job id = %s", job.ID())
	}

	if _, err := s.Retrieve(context.Background(), "sim-9999"); err == nil {
		t.Error("retrieve of unknown job must fail")
	}
	if _, err := New(5).Retrieve(context.Background(), "sim-0001"); err == nil {
		t.Error("retrieve in a fresh sampler must fail")
	}
}

func TestSubmitValidation(t *testing.T) {
	s := New(1)
	if _, err := s.Submit(context.Background(), campaign.PhysicalProgram{}, 10); err == nil {
		t.Error("submit without a source circuit must fail")
	}

	topo, _ := topology.Get("A")
	prog, _ := circuit.Build(topo, circuit.TripleAncilla)
	phys, _ := s.Optimize(context.Background(), prog, backend{}, 1)
	if _, err := s.Submit(context.Background(), phys, 0); err == nil {
		t.Error("submit with zero shots must fail")
	}
}

func TestCountsFieldName(t *testing.T) {
	s := New(1)
	topo, _ := topology.Get("A")
	prog, _ := circuit.Build(topo, circuit.TripleAncilla)
	phys, _ := s.Optimize(context.Background(), prog, backend{}, 1)
	job, err := s.Submit(context.Background(), phys, 10)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	res, _ := job.Result(context.Background())
	if _, err := res.Counts("meas"); err == nil {
		t.Error("unknown register name must fail")
	}
}

func TestServiceSelectsLocalBackend(t *testing.T) {
	b, err := Service{}.SelectBackend(context.Background(), []string{"ibm_torino"}, 500)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if b.Name() != BackendName {
		t.Errorf("backend = %s, want %s", b.Name(), BackendName)
	}
}
