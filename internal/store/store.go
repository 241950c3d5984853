// Package store persists campaign and job records so that submission and
// collection can run in separate processes. Backends on real hardware
// hold jobs for hours; the store is what lets `qparity submit` finish and
// a later `qparity collect` pick the same jobs up.
package store

// DefaultDBPath is the default relative path for the SQLite DB.
// Open() creates the parent directory (e.g. .qparity) if needed.
const DefaultDBPath = ".qparity/qparity.db"

// Job statuses.
const (
	StatusSubmitted = "submitted" // accepted by the backend, result pending
	StatusFailed    = "failed"    // submission failed; never collected
	StatusAnalyzed  = "analyzed"  // result collected and ledger row written
	StatusError     = "error"     // collection or analysis failed; no ledger row
)

// Campaign is one campaign run: a backend, a circuit variant, and the
// per-job shot count, shared by all jobs submitted under it.
type Campaign struct {
	ID        int64
	Backend   string
	Shots     int
	Variant   string
	CreatedAt string
}

// JobRecord is one (label, repetition) submission. JobID is the
// externally assigned identifier; it is empty for failed submissions.
type JobRecord struct {
	ID          int64
	CampaignID  int64
	RunLabel    string
	Rep         int
	JobID       string
	Status      string
	SubmittedAt string
	AnalyzedAt  string
}

// Store is the persistence facade. The campaign runner and CLI use only
// this interface; the implementation is SQLite or in-memory.
type Store interface {
	CreateCampaign(c *Campaign) (int64, error)
	GetCampaign(id int64) (*Campaign, error)
	// LatestCampaign returns the most recently created campaign, or nil.
	LatestCampaign() (*Campaign, error)

	CreateJob(j *JobRecord) (int64, error)
	// ListJobs returns the campaign's jobs in submission order.
	ListJobs(campaignID int64) ([]*JobRecord, error)
	UpdateJobStatus(id int64, status string) error

	Close() error
}
