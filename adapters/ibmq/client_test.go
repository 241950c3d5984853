package ibmq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"qparity/internal/campaign"
	"qparity/internal/circuit"
	"qparity/internal/topology"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:      server.URL,
		Token:        "test-token",
		Instance:     "test-instance",
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.HTTPClient = server.Client()
	return client, server
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_RequiresToken(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "https://example.com"}); err == nil {
		t.Error("client without a token must refuse to start")
	}
	if _, err := NewClient(Config{Token: "tok"}); err == nil {
		t.Error("client without a base URL must refuse to start")
	}
}

func TestSelectBackend_PriorityOrder(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token on %s", r.URL.Path)
		}
		writeJSON(w, []map[string]any{
			{"name": "ibm_torino", "operational": false, "pending_jobs": 2, "simulator": false},
			{"name": "ibm_fez", "operational": true, "pending_jobs": 900, "simulator": false},
			{"name": "ibm_sherbrooke", "operational": true, "pending_jobs": 40, "simulator": false},
			{"name": "ibm_brisbane", "operational": true, "pending_jobs": 5, "simulator": false},
		})
	}))

	priority := []string{"ibm_torino", "ibm_fez", "ibm_sherbrooke", "ibm_brisbane"}
	b, err := client.SelectBackend(context.Background(), priority, 500)
	if err != nil {
		t.Fatalf("SelectBackend: %v", err)
	}
	// torino is down, fez is over the pending threshold.
	if b.Name() != "ibm_sherbrooke" {
		t.Errorf("selected %s, want ibm_sherbrooke", b.Name())
	}
}

func TestSelectBackend_LeastBusyFallback(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"name": "ibm_other", "operational": true, "pending_jobs": 12, "simulator": false},
			{"name": "ibm_busy", "operational": true, "pending_jobs": 300, "simulator": false},
			{"name": "sim_fast", "operational": true, "pending_jobs": 0, "simulator": true},
		})
	}))

	b, err := client.SelectBackend(context.Background(), []string{"ibm_torino"}, 500)
	if err != nil {
		t.Fatalf("SelectBackend: %v", err)
	}
	// No priority device exists; the simulator must never be chosen.
	if b.Name() != "ibm_other" {
		t.Errorf("selected %s, want ibm_other", b.Name())
	}
}

func TestSelectBackend_NoneAvailable(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"name": "ibm_down", "operational": false, "pending_jobs": 0, "simulator": false},
			{"name": "sim_up", "operational": true, "pending_jobs": 0, "simulator": true},
		})
	}))

	_, err := client.SelectBackend(context.Background(), []string{"ibm_torino"}, 500)
	if !errors.Is(err, ErrNoBackend) {
		t.Errorf("err = %v, want ErrNoBackend", err)
	}
}

func TestConnect_AuthFailure(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))

	err := client.Connect(context.Background())
	if err == nil {
		t.Fatal("connect with rejected credentials must fail")
	}
	if want := "authentication failed"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not mention %q", err, want)
	}
}

func TestOptimize_ReturnsTranspiledQASM(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transpile" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			QASM    string `json:"qasm"`
			Backend string `json:"backend"`
			Level   int    `json:"optimization_level"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode transpile request: %v", err)
		}
		if req.Backend != "ibm_torino" || req.Level != 1 {
			t.Errorf("transpile request: backend=%s level=%d", req.Backend, req.Level)
		}
		writeJSON(w, map[string]string{"qasm": "// transpiled\n" + req.QASM})
	}))

	topo, _ := topology.Get("A")
	prog, _ := circuit.Build(topo, circuit.TripleAncilla)
	phys, err := client.Optimize(context.Background(), prog, Backend{name: "ibm_torino"}, 1)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if phys.Backend != "ibm_torino" || phys.Width != 9 {
		t.Errorf("physical program: backend=%s width=%d", phys.Backend, phys.Width)
	}
	if !strings.Contains(phys.QASM, "// transpiled") {
		t.Error("physical program does not carry the transpiled text")
	}
	if phys.Source != prog {
		t.Error("physical program must keep the source circuit")
	}
}

func TestSubmitAndResult_PollsUntilCompleted(t *testing.T) {
	var polls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/jobs":
			var req struct {
				Backend string `json:"backend"`
				Shots   int    `json:"shots"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Shots != 8192 {
				t.Errorf("submitted shots = %d", req.Shots)
			}
			writeJSON(w, map[string]string{"id": "job-abc"})
		case r.URL.Path == "/v1/jobs/job-abc":
			status := "QUEUED"
			if polls.Add(1) >= 3 {
				status = "COMPLETED"
			}
			writeJSON(w, map[string]string{"id": "job-abc", "status": status})
		case r.URL.Path == "/v1/jobs/job-abc/results":
			writeJSON(w, map[string]any{
				"counts": map[string]map[string]int{
					"c": {"000000000": 4096, "111111111": 4096},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	job, err := client.Submit(context.Background(), campaign.PhysicalProgram{Backend: "ibm_torino", QASM: "OPENQASM 2.0;"}, 8192)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.ID() != "job-abc" {
		t.Errorf("job id = %s", job.ID())
	}

	res, err := job.Result(context.Background())
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if polls.Load() < 3 {
		t.Errorf("polled %d times, want at least 3", polls.Load())
	}

	counts, err := res.Counts("c")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts["000000000"] != 4096 {
		t.Errorf("counts = %v", counts)
	}
	if _, err := res.Counts("meas"); err == nil {
		t.Error("missing register must be an error, not a fallback")
	}
}

func TestResult_JobFailed(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"id": "job-x", "status": "FAILED"})
	}))

	job, err := client.Retrieve(context.Background(), "job-x")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if _, err := job.Result(context.Background()); err == nil {
		t.Error("failed job must surface an error")
	}
}

func TestResult_ContextCancelled(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"id": "job-y", "status": "RUNNING"})
	}))

	job, err := client.Retrieve(context.Background(), "job-y")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := job.Result(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

