package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestRunSimulator_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "campaign.csv")
	cfgPath := filepath.Join(dir, "campaign.yaml")
	cfgBody := "shots: 200\nrepetitions: 1\nvariant: triple\nsubmit_delay: 0s\n" +
		"ledger: " + ledgerPath + "\nstore: " + filepath.Join(dir, "jobs.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatal(err)
	}

	out := execute(t, "--config", cfgPath, "run", "--simulator", "--seed", "9")
	if !strings.Contains(out, "Campaign complete") {
		t.Errorf("output: %s", out)
	}

	f, err := os.Open(ledgerPath)
	if err != nil {
		t.Fatalf("ledger missing: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("ledger rows = %d, want header + 4", len(rows))
	}
	for _, row := range rows[1:] {
		if row[0] != "local_sim" {
			t.Errorf("backend column = %q", row[0])
		}
		if row[3] != "100.00" {
			t.Errorf("global stability = %q, want 100.00 on the noiseless sampler", row[3])
		}
	}
}

func TestAnalyze_FromCountsFile(t *testing.T) {
	dir := t.TempDir()
	countsPath := filepath.Join(dir, "counts.json")
	if err := os.WriteFile(countsPath, []byte(`{"000000000": 4096, "111111111": 4096}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out := execute(t, "analyze", "--counts", countsPath, "--label", "A", "--variant", "triple")
	if !strings.Contains(out, "Global stability") {
		t.Errorf("output missing metrics table:\n%s", out)
	}
	if !strings.Contains(out, "1.0000 bits") {
		t.Errorf("output missing entropy:\n%s", out)
	}
}

func TestCollect_RefusesSimulatorCampaigns(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "campaign.yaml")
	cfgBody := "shots: 50\nrepetitions: 1\nsubmit_delay: 0s\n" +
		"ledger: " + filepath.Join(dir, "campaign.csv") + "\nstore: " + filepath.Join(dir, "jobs.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatal(err)
	}

	execute(t, "--config", cfgPath, "run", "--simulator")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--config", cfgPath, "collect"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "local sampler") {
		t.Errorf("err = %v, want refusal for sampler campaigns", err)
	}
}
