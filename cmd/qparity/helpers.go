package main

import (
	"context"
	"fmt"
	"sync"

	"qparity/adapters/ibmq"
	"qparity/adapters/ledger"
	"qparity/adapters/sim"
	"qparity/internal/campaign"
	"qparity/internal/config"
	"qparity/internal/format"
	"qparity/internal/store"
)

// recordingLedger tees appended rows so the run command can print an
// end-of-campaign summary without re-reading the CSV.
type recordingLedger struct {
	inner campaign.Ledger
	mu    sync.Mutex
	rows  []campaign.LedgerRow
}

func (l *recordingLedger) Append(row campaign.LedgerRow) error {
	if err := l.inner.Append(row); err != nil {
		return err
	}
	l.mu.Lock()
	l.rows = append(l.rows, row)
	l.mu.Unlock()
	return nil
}

func (l *recordingLedger) summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	tbl := format.NewTable(format.ASCII)
	tbl.Header("Label", "Job", "Global", "Local A", "Local B", "Asymmetry")
	tbl.AlignRight(3, 4, 5, 6)
	for _, row := range l.rows {
		tbl.Row(row.RunLabel, row.JobID,
			fmt.Sprintf("%.2f%%", row.Global*100),
			fmt.Sprintf("%.2f%%", row.LocalA*100),
			fmt.Sprintf("%.2f%%", row.LocalB*100),
			fmt.Sprintf("%.2f%%", row.Asymmetry*100))
	}
	return tbl.String()
}

func loadConfig() (config.Campaign, error) {
	if rootFlags.config == "" {
		return config.Default(), nil
	}
	return config.Load(rootFlags.config)
}

// collaborators bundles the provider-facing implementations one campaign
// needs.
type collaborators struct {
	service   campaign.Service
	optimizer campaign.Optimizer
	executor  campaign.Executor
}

// buildCollaborators wires either the local sampler or the runtime
// client. Hardware mode requires credentials from the environment and
// validates them before anything is submitted.
func buildCollaborators(ctx context.Context, cfg config.Campaign, simulator bool, seed int64) (collaborators, error) {
	if simulator {
		sampler := sim.New(seed)
		return collaborators{service: sim.Service{}, optimizer: sampler, executor: sampler}, nil
	}

	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return collaborators{}, err
	}
	client, err := ibmq.NewClient(ibmq.Config{
		BaseURL:      cfg.ServiceURL,
		Token:        creds.Token,
		Instance:     creds.Instance,
		PollInterval: cfg.PollInterval.Std(),
	})
	if err != nil {
		return collaborators{}, err
	}
	if err := client.Connect(ctx); err != nil {
		return collaborators{}, err
	}
	return collaborators{service: client, optimizer: client, executor: client}, nil
}

// buildRunner selects a backend and assembles a ready-to-use runner.
// The returned cleanup closes the job store.
func buildRunner(ctx context.Context, cfg config.Campaign, simulator bool, seed int64) (*campaign.Runner, func(), error) {
	collab, err := buildCollaborators(ctx, cfg, simulator, seed)
	if err != nil {
		return nil, nil, err
	}
	backend, err := collab.service.SelectBackend(ctx, cfg.BackendPriority, cfg.MaxPending)
	if err != nil {
		return nil, nil, fmt.Errorf("select backend: %w", err)
	}

	led, err := ledger.NewCSV(cfg.LedgerPath)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}

	runner, err := campaign.NewRunner(cfg, backend, collab.optimizer, collab.executor, led, st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return runner, func() { st.Close() }, nil
}
