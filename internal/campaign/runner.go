package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"qparity/internal/analysis"
	"qparity/internal/circuit"
	"qparity/internal/config"
	"qparity/internal/logging"
	"qparity/internal/store"
	"qparity/internal/topology"
)

// SubmittedJob pairs a persisted job record with its live handle and the
// topology it was built from. Owned by the runner; collaborators only
// ever see the physical program and the opaque handle.
type SubmittedJob struct {
	Record   *store.JobRecord
	Job      Job
	Topology topology.Topology
}

// Runner executes a campaign against one selected backend. Submission
// and collection are separate methods so the CLI can run them in one
// process (run) or two (submit, then collect).
type Runner struct {
	Backend     Backend
	Optimizer   Optimizer
	Executor    Executor
	Ledger      Ledger
	Store       store.Store
	Config      config.Campaign
	CountsField string

	// Sleep is the inter-submission delay hook; tests replace it.
	Sleep func(time.Duration)

	variant  circuit.Variant
	ledgerMu sync.Mutex
	log      *slog.Logger
}

// NewRunner validates the configuration and wires a runner.
func NewRunner(cfg config.Campaign, backend Backend, opt Optimizer, exec Executor, led Ledger, st store.Store) (*Runner, error) {
	variant, err := circuit.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	return &Runner{
		Backend:     backend,
		Optimizer:   opt,
		Executor:    exec,
		Ledger:      led,
		Store:       st,
		Config:      cfg,
		CountsField: DefaultCountsField,
		Sleep:       time.Sleep,
		variant:     variant,
		log:         logging.New("campaign"),
	}, nil
}

// Submit runs the submission phase: every topology label in fixed order
// times every repetition. A failure for one (label, repetition) is
// logged, recorded as failed, and never aborts the phase. A fixed delay
// follows each successful submission to respect provider rate limits.
func (r *Runner) Submit(ctx context.Context) (*store.Campaign, []SubmittedJob, error) {
	camp := &store.Campaign{
		Backend: r.Backend.Name(),
		Shots:   r.Config.Shots,
		Variant: r.variant.String(),
	}
	if _, err := r.Store.CreateCampaign(camp); err != nil {
		return nil, nil, fmt.Errorf("create campaign record: %w", err)
	}

	total := len(topology.Labels()) * r.Config.Repetitions
	r.log.Info("starting submission phase",
		"backend", camp.Backend, "variant", camp.Variant, "jobs", total)

	var submitted []SubmittedJob
	for _, label := range topology.Labels() {
		topo, err := topology.Get(label)
		if err != nil {
			return nil, nil, err
		}
		for rep := 1; rep <= r.Config.Repetitions; rep++ {
			if err := ctx.Err(); err != nil {
				return camp, submitted, err
			}
			r.log.Info("preparing job", "label", label, "rep", rep, "of", r.Config.Repetitions)

			job, err := r.submitOne(ctx, topo)
			if err != nil {
				r.log.Warn("submission failed", "label", label, "rep", rep, "error", err)
				r.recordJob(camp.ID, label, rep, "", store.StatusFailed)
				continue
			}

			rec := r.recordJob(camp.ID, label, rep, job.ID(), store.StatusSubmitted)
			submitted = append(submitted, SubmittedJob{Record: rec, Job: job, Topology: topo})
			r.log.Info("submitted", "label", label, "rep", rep, "job_id", job.ID())
			r.Sleep(r.Config.SubmitDelay.Std())
		}
	}
	return camp, submitted, nil
}

func (r *Runner) submitOne(ctx context.Context, topo topology.Topology) (Job, error) {
	prog, err := circuit.Build(topo, r.variant)
	if err != nil {
		return nil, fmt.Errorf("build circuit: %w", err)
	}
	phys, err := r.Optimizer.Optimize(ctx, prog, r.Backend, r.Config.OptimizationLevel)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	job, err := r.Executor.Submit(ctx, phys, r.Config.Shots)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	return job, nil
}

// recordJob persists a job record; persistence failures are logged but
// never abort the phase.
func (r *Runner) recordJob(campaignID int64, label string, rep int, jobID, status string) *store.JobRecord {
	rec := &store.JobRecord{
		CampaignID: campaignID,
		RunLabel:   label,
		Rep:        rep,
		JobID:      jobID,
		Status:     status,
	}
	if _, err := r.Store.CreateJob(rec); err != nil {
		r.log.Warn("persist job record failed", "label", label, "rep", rep, "error", err)
	}
	return rec
}

// Collect runs the collection phase over successfully submitted jobs in
// submission order, blocking on each result before moving to the next.
// A failure at any step for one job is logged and skipped; no ledger row
// is written for it.
func (r *Runner) Collect(ctx context.Context, jobs []SubmittedJob) error {
	r.log.Info("starting collection phase", "jobs", len(jobs))
	for _, sj := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.collectJob(ctx, sj)
	}
	return nil
}

// collectJob wraps collectOne with the per-job failure isolation shared
// by the sequential and parallel collection modes.
func (r *Runner) collectJob(ctx context.Context, sj SubmittedJob) {
	r.log.Info("waiting for result", "job_id", sj.Record.JobID, "label", sj.Record.RunLabel)
	if err := r.collectOne(ctx, sj); err != nil {
		r.log.Warn("collection failed",
			"job_id", sj.Record.JobID, "label", sj.Record.RunLabel, "error", err)
		if sj.Record.ID != 0 {
			if uerr := r.Store.UpdateJobStatus(sj.Record.ID, store.StatusError); uerr != nil {
				r.log.Warn("mark job errored failed", "job_id", sj.Record.JobID, "error", uerr)
			}
		}
	}
}

func (r *Runner) collectOne(ctx context.Context, sj SubmittedJob) error {
	res, err := sj.Job.Result(ctx)
	if err != nil {
		return fmt.Errorf("wait for result: %w", err)
	}
	counts, err := res.Counts(r.CountsField)
	if err != nil {
		return fmt.Errorf("extract counts: %w", err)
	}

	groups := analysis.GroupsFor(sj.Topology, r.variant)
	m := analysis.Analyze(counts, groups, r.variant.Width())

	row := LedgerRow{
		Backend:   r.Backend.Name(),
		RunLabel:  sj.Record.RunLabel,
		JobID:     sj.Record.JobID,
		Global:    m.Global,
		LocalA:    m.LocalA,
		LocalB:    m.LocalB,
		Asymmetry: m.Asymmetry,
		Shots:     r.Config.Shots,
	}

	r.ledgerMu.Lock()
	err = r.Ledger.Append(row)
	r.ledgerMu.Unlock()
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	if sj.Record.ID != 0 {
		if err := r.Store.UpdateJobStatus(sj.Record.ID, store.StatusAnalyzed); err != nil {
			r.log.Warn("mark job analyzed failed", "job_id", sj.Record.JobID, "error", err)
		}
	}
	r.log.Info("analyzed",
		"job_id", sj.Record.JobID, "label", sj.Record.RunLabel,
		"global", fmt.Sprintf("%.1f%%", m.Global*100),
		"asymmetry", fmt.Sprintf("%.1f%%", m.Asymmetry*100))
	return nil
}

// CollectStored reattaches to a previously submitted campaign's pending
// jobs and collects them with the given worker count (1 means
// sequential). Returns the number of jobs visited.
func (r *Runner) CollectStored(ctx context.Context, campaignID int64, workers int) (int, error) {
	camp, err := r.Store.GetCampaign(campaignID)
	if err != nil {
		return 0, err
	}
	if camp == nil {
		return 0, fmt.Errorf("campaign %d not found", campaignID)
	}
	variant, err := circuit.ParseVariant(camp.Variant)
	if err != nil {
		return 0, err
	}
	r.variant = variant
	r.Config.Shots = camp.Shots

	records, err := r.Store.ListJobs(campaignID)
	if err != nil {
		return 0, err
	}

	var jobs []SubmittedJob
	for _, rec := range records {
		if rec.Status != store.StatusSubmitted {
			continue
		}
		topo, err := topology.Get(rec.RunLabel)
		if err != nil {
			r.log.Warn("skipping job with unknown label", "label", rec.RunLabel, "job_id", rec.JobID)
			continue
		}
		job, err := r.Executor.Retrieve(ctx, rec.JobID)
		if err != nil {
			r.log.Warn("reattach failed", "job_id", rec.JobID, "error", err)
			continue
		}
		jobs = append(jobs, SubmittedJob{Record: rec, Job: job, Topology: topo})
	}

	return len(jobs), r.CollectParallel(ctx, jobs, workers)
}

// Run executes both phases back to back.
func (r *Runner) Run(ctx context.Context) error {
	_, jobs, err := r.Submit(ctx)
	if err != nil {
		return err
	}
	r.log.Info("all jobs submitted, waiting for results")
	return r.Collect(ctx, jobs)
}
