package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qparity/internal/analysis"
	"qparity/internal/circuit"
	"qparity/internal/format"
	"qparity/internal/topology"
)

var analyzeFlags struct {
	counts   string
	label    string
	variant  string
	markdown bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute stability metrics from a saved counts file",
	Long: "Analyze reads a JSON object mapping outcome bitstrings to counts\n" +
		"and prints the stability metrics for one topology, without touching\n" +
		"any remote service.",
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.counts, "counts", "", "Path to a JSON counts file (required)")
	f.StringVar(&analyzeFlags.label, "label", "", "Topology label: A, B, C or D (required)")
	f.StringVar(&analyzeFlags.variant, "variant", "triple", "Circuit variant: dual or triple")
	f.BoolVar(&analyzeFlags.markdown, "markdown", false, "Render the table as Markdown")

	_ = analyzeCmd.MarkFlagRequired("counts")
	_ = analyzeCmd.MarkFlagRequired("label")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	variant, err := circuit.ParseVariant(analyzeFlags.variant)
	if err != nil {
		return err
	}
	topo, err := topology.Get(analyzeFlags.label)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(analyzeFlags.counts)
	if err != nil {
		return fmt.Errorf("read counts: %w", err)
	}
	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		return fmt.Errorf("parse counts json: %w", err)
	}

	m := analysis.Analyze(counts, analysis.GroupsFor(topo, variant), variant.Width())

	total := 0
	for _, n := range counts {
		total += n
	}

	mode := format.ASCII
	if analyzeFlags.markdown {
		mode = format.Markdown
	}
	tbl := format.NewTable(mode)
	tbl.Header("Metric", "Value")
	tbl.AlignRight(2)
	tbl.Row("Topology", topo.Label)
	tbl.Row("Variant", variant.String())
	tbl.Row("Shots", total)
	tbl.Row("Global stability", fmt.Sprintf("%.2f%%", m.Global*100))
	tbl.Row("Local A stability", fmt.Sprintf("%.2f%%", m.LocalA*100))
	tbl.Row("Local B stability", fmt.Sprintf("%.2f%%", m.LocalB*100))
	tbl.Row("Asymmetry", fmt.Sprintf("%.2f%%", m.Asymmetry*100))
	tbl.Row("Entropy", fmt.Sprintf("%.4f bits", m.Entropy))
	fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
	return nil
}
