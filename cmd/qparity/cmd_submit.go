package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var submitFlags struct {
	shots   int
	reps    int
	variant string
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a campaign's jobs without waiting for results",
	Long: "Submit enqueues every (topology, repetition) job and records it in\n" +
		"the job store, then exits. Collect the results later with\n" +
		"'qparity collect'.",
	RunE: runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.IntVar(&submitFlags.shots, "shots", 0, "Override configured shots per job")
	f.IntVar(&submitFlags.reps, "reps", 0, "Override configured repetitions per topology")
	f.StringVar(&submitFlags.variant, "variant", "", "Override circuit variant: dual or triple")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if submitFlags.shots > 0 {
		cfg.Shots = submitFlags.shots
	}
	if submitFlags.reps > 0 {
		cfg.Repetitions = submitFlags.reps
	}
	if submitFlags.variant != "" {
		cfg.Variant = submitFlags.variant
	}

	ctx := cmd.Context()
	runner, cleanup, err := buildRunner(ctx, cfg, false, 0)
	if err != nil {
		return err
	}
	defer cleanup()

	camp, jobs, err := runner.Submit(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Campaign #%d: %d jobs submitted to %s\n", camp.ID, len(jobs), camp.Backend)
	fmt.Fprintf(out, "Collect results with: qparity collect --campaign %d\n", camp.ID)
	return nil
}
