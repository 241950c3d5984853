package ledger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"qparity/internal/campaign"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return rows
}

func TestNewCSV_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.csv")

	if _, err := NewCSV(path); err != nil {
		t.Fatalf("NewCSV: %v", err)
	}
	if _, err := NewCSV(path); err != nil {
		t.Fatalf("NewCSV reopen: %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want header only", len(rows))
	}
	want := []string{
		"backend", "run_label", "job_id",
		"global_stability (%)", "local_A (%)", "local_B (%)", "asymmetry (%)",
		"shots",
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_FormatsPercentages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.csv")
	l, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV: %v", err)
	}

	err = l.Append(campaign.LedgerRow{
		Backend:   "ibm_torino",
		RunLabel:  "A",
		JobID:     "job-001",
		Global:    0.9812,
		LocalA:    1,
		LocalB:    0.5,
		Asymmetry: 0.0333,
		Shots:     8192,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	want := []string{"ibm_torino", "A", "job-001", "98.12", "100.00", "50.00", "3.33", "8192"}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_AccumulatesAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.csv")

	l1, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV: %v", err)
	}
	if err := l1.Append(campaign.LedgerRow{Backend: "ibm_fez", RunLabel: "A", JobID: "j1", Shots: 100}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	l2, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV reopen: %v", err)
	}
	if err := l2.Append(campaign.LedgerRow{Backend: "ibm_fez", RunLabel: "B", JobID: "j2", Shots: 100}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := readAll(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][1] != "A" || rows[2][1] != "B" {
		t.Errorf("rows out of order: %v", rows[1:])
	}
}

func TestNewCSV_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "campaign.csv")
	if _, err := NewCSV(path); err != nil {
		t.Fatalf("NewCSV: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("ledger file missing: %v", err)
	}
}
