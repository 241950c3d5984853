package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qparity/adapters/ibmq"
	"qparity/adapters/ledger"
	"qparity/adapters/sim"
	"qparity/internal/campaign"
	"qparity/internal/config"
	"qparity/internal/store"
)

var collectFlags struct {
	campaign int64
	parallel int
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect and analyze a previously submitted campaign",
	Long: "Collect reattaches to the jobs recorded by 'qparity submit', waits\n" +
		"for each result, and appends the stability metrics to the ledger.",
	RunE: runCollect,
}

func init() {
	f := collectCmd.Flags()
	f.Int64Var(&collectFlags.campaign, "campaign", 0, "Campaign ID (defaults to the most recent)")
	f.IntVar(&collectFlags.parallel, "parallel", 1, "Number of concurrent result waits")
}

func runCollect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	camp, err := resolveCampaign(st)
	if err != nil {
		return err
	}
	if camp.Backend == sim.BackendName {
		return fmt.Errorf("campaign #%d ran on the local sampler; its jobs do not survive the submitting process", camp.ID)
	}

	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return err
	}
	client, err := ibmq.NewClient(ibmq.Config{
		BaseURL:      cfg.ServiceURL,
		Token:        creds.Token,
		Instance:     creds.Instance,
		PollInterval: cfg.PollInterval.Std(),
	})
	if err != nil {
		return err
	}

	led, err := ledger.NewCSV(cfg.LedgerPath)
	if err != nil {
		return err
	}

	runner, err := campaign.NewRunner(cfg, campaign.NamedBackend(camp.Backend), client, client, led, st)
	if err != nil {
		return err
	}

	visited, err := runner.CollectStored(cmd.Context(), camp.ID, collectFlags.parallel)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Campaign #%d: %d jobs collected. Results appended to %s\n",
		camp.ID, visited, cfg.LedgerPath)
	return nil
}

func resolveCampaign(st store.Store) (*store.Campaign, error) {
	if collectFlags.campaign > 0 {
		camp, err := st.GetCampaign(collectFlags.campaign)
		if err != nil {
			return nil, err
		}
		if camp == nil {
			return nil, fmt.Errorf("campaign %d not found", collectFlags.campaign)
		}
		return camp, nil
	}
	camp, err := st.LatestCampaign()
	if err != nil {
		return nil, err
	}
	if camp == nil {
		return nil, fmt.Errorf("no campaigns in the job store; run 'qparity submit' first")
	}
	return camp, nil
}
