package campaign

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CollectParallel collects results with a bounded worker pool instead of
// the strictly sequential Collect. Per-job failure isolation still
// holds: a worker never returns an error for a failed job, so one slow
// or broken job cannot sink the phase. Ledger appends stay serialized
// behind the runner's ledger mutex.
func (r *Runner) CollectParallel(ctx context.Context, jobs []SubmittedJob, workers int) error {
	if workers <= 1 {
		return r.Collect(ctx, jobs)
	}
	r.log.Info("starting collection phase", "jobs", len(jobs), "workers", workers)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, sj := range jobs {
		sj := sj
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.collectJob(ctx, sj)
			return nil
		})
	}
	return g.Wait()
}
