package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runFlags struct {
	simulator bool
	seed      int64
	shots     int
	reps      int
	variant   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit a full campaign and collect its results",
	Long: "Run submits one job per (topology, repetition) pair, waits for\n" +
		"every result, and appends one ledger row per analyzed job.",
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&runFlags.simulator, "simulator", false, "Execute on the local seeded sampler instead of hardware")
	f.Int64Var(&runFlags.seed, "seed", 1, "Sampler seed (simulator only)")
	f.IntVar(&runFlags.shots, "shots", 0, "Override configured shots per job")
	f.IntVar(&runFlags.reps, "reps", 0, "Override configured repetitions per topology")
	f.StringVar(&runFlags.variant, "variant", "", "Override circuit variant: dual or triple")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.shots > 0 {
		cfg.Shots = runFlags.shots
	}
	if runFlags.reps > 0 {
		cfg.Repetitions = runFlags.reps
	}
	if runFlags.variant != "" {
		cfg.Variant = runFlags.variant
	}

	ctx := cmd.Context()
	runner, cleanup, err := buildRunner(ctx, cfg, runFlags.simulator, runFlags.seed)
	if err != nil {
		return err
	}
	defer cleanup()

	rec := &recordingLedger{inner: runner.Ledger}
	runner.Ledger = rec

	if err := runner.Run(ctx); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, rec.summary())
	fmt.Fprintf(out, "Campaign complete. Results appended to %s\n", cfg.LedgerPath)
	return nil
}
