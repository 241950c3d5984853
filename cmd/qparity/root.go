package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qparity/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
	config    string
}

var rootCmd = &cobra.Command{
	Use:   "qparity",
	Short: "Parity-stability experiment campaigns on quantum backends",
	Long: "Qparity submits parity-check circuits for a fixed set of qubit\n" +
		"topologies to a quantum runtime service, then collects the results\n" +
		"and appends stability metrics to a CSV ledger.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		level, err := logging.ParseLevel(rootFlags.logLevel)
		if err != nil {
			return err
		}
		logging.Init(level, rootFlags.logFormat)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&rootFlags.config, "config", "", "Campaign config file (YAML); defaults apply when omitted")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
