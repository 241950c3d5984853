package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

const schemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS campaigns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	backend    TEXT NOT NULL,
	shots      INTEGER NOT NULL,
	variant    TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id  INTEGER NOT NULL REFERENCES campaigns(id),
	run_label    TEXT NOT NULL,
	rep          INTEGER NOT NULL,
	job_id       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	submitted_at TEXT NOT NULL,
	analyzed_at  TEXT
);

CREATE INDEX IF NOT EXISTS idx_jobs_campaign ON jobs(campaign_id);
`

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path, creating the parent
// directory and the schema if needed.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory opens an in-memory SQLite store for tests.
func OpenMemory() (*SqlStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open memory sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) init() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", v, schemaVersion)
	}
	return nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

func (s *SqlStore) CreateCampaign(c *Campaign) (int64, error) {
	if c == nil {
		return 0, errors.New("campaign is nil")
	}
	if c.CreatedAt == "" {
		c.CreatedAt = nowUTC()
	}
	res, err := s.db.Exec(
		"INSERT INTO campaigns(backend, shots, variant, created_at) VALUES(?, ?, ?, ?)",
		c.Backend, c.Shots, c.Variant, c.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert campaign: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return id, nil
}

func (s *SqlStore) GetCampaign(id int64) (*Campaign, error) {
	var c Campaign
	err := s.db.QueryRow(
		"SELECT id, backend, shots, variant, created_at FROM campaigns WHERE id = ?", id,
	).Scan(&c.ID, &c.Backend, &c.Shots, &c.Variant, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

func (s *SqlStore) LatestCampaign() (*Campaign, error) {
	var c Campaign
	err := s.db.QueryRow(
		"SELECT id, backend, shots, variant, created_at FROM campaigns ORDER BY id DESC LIMIT 1",
	).Scan(&c.ID, &c.Backend, &c.Shots, &c.Variant, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest campaign: %w", err)
	}
	return &c, nil
}

func (s *SqlStore) CreateJob(j *JobRecord) (int64, error) {
	if j == nil {
		return 0, errors.New("job record is nil")
	}
	if j.SubmittedAt == "" {
		j.SubmittedAt = nowUTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO jobs(campaign_id, run_label, rep, job_id, status, submitted_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		j.CampaignID, j.RunLabel, j.Rep, j.JobID, j.Status, j.SubmittedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	j.ID = id
	return id, nil
}

func (s *SqlStore) ListJobs(campaignID int64) ([]*JobRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, campaign_id, run_label, rep, job_id, status, submitted_at, analyzed_at
		 FROM jobs WHERE campaign_id = ? ORDER BY id`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var list []*JobRecord
	for rows.Next() {
		var j JobRecord
		var analyzedAt sql.NullString
		if err := rows.Scan(&j.ID, &j.CampaignID, &j.RunLabel, &j.Rep,
			&j.JobID, &j.Status, &j.SubmittedAt, &analyzedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.AnalyzedAt = nullStr(analyzedAt)
		list = append(list, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return list, nil
}

func (s *SqlStore) UpdateJobStatus(id int64, status string) error {
	var analyzedAt any
	if status == StatusAnalyzed || status == StatusError {
		analyzedAt = nowUTC()
	}
	_, err := s.db.Exec(
		"UPDATE jobs SET status = ?, analyzed_at = COALESCE(?, analyzed_at) WHERE id = ?",
		status, analyzedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}
