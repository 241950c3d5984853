package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qparity/adapters/ibmq"
	"qparity/internal/config"
	"qparity/internal/format"
)

var backendsFlags struct {
	markdown bool
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the devices available to the account",
	RunE:  runBackends,
}

func init() {
	backendsCmd.Flags().BoolVar(&backendsFlags.markdown, "markdown", false, "Render the table as Markdown")
}

func runBackends(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return err
	}
	client, err := ibmq.NewClient(ibmq.Config{
		BaseURL:  cfg.ServiceURL,
		Token:    creds.Token,
		Instance: creds.Instance,
	})
	if err != nil {
		return err
	}

	backends, err := client.ListBackends(cmd.Context())
	if err != nil {
		return err
	}

	mode := format.ASCII
	if backendsFlags.markdown {
		mode = format.Markdown
	}
	tbl := format.NewTable(mode)
	tbl.Header("Backend", "Operational", "Pending", "Simulator")
	tbl.AlignRight(3)
	for _, b := range backends {
		tbl.Row(b.Name, b.Operational, b.PendingJobs, b.Simulator)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
	return nil
}
