package ibmq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qparity/internal/campaign"
)

// Job is a handle to one queued execution on the service.
type Job struct {
	client *Client
	id     string
}

func (j *Job) ID() string { return j.id }

// Result polls the job until it reaches a terminal status, then fetches
// the outcome counts. Polling stops when ctx is cancelled.
func (j *Job) Result(ctx context.Context) (campaign.Result, error) {
	for {
		status, err := j.status(ctx)
		if err != nil {
			return nil, err
		}
		switch {
		case strings.EqualFold(status, "completed"):
			return j.fetchResult(ctx)
		case strings.EqualFold(status, "failed"):
			return nil, fmt.Errorf("job %s failed on the service", j.id)
		case strings.EqualFold(status, "cancelled"):
			return nil, fmt.Errorf("job %s was cancelled", j.id)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(j.client.Config.PollInterval):
		}
	}
}

func (j *Job) status(ctx context.Context) (string, error) {
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := j.client.get(ctx, "/v1/jobs/"+j.id, &resp); err != nil {
		return "", fmt.Errorf("poll job %s: %w", j.id, err)
	}
	return resp.Status, nil
}

func (j *Job) fetchResult(ctx context.Context) (campaign.Result, error) {
	var resp struct {
		Counts map[string]map[string]int `json:"counts"`
	}
	if err := j.client.get(ctx, "/v1/jobs/"+j.id+"/results", &resp); err != nil {
		return nil, fmt.Errorf("fetch result for job %s: %w", j.id, err)
	}
	return jobResult{jobID: j.id, counts: resp.Counts}, nil
}

type jobResult struct {
	jobID  string
	counts map[string]map[string]int
}

// Counts returns the distribution for one classical register. There is
// no fallback to other registers; a missing field is an error.
func (r jobResult) Counts(field string) (map[string]int, error) {
	c, ok := r.counts[field]
	if !ok {
		return nil, fmt.Errorf("job %s result has no register %q", r.jobID, field)
	}
	return c, nil
}
