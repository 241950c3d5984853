package store

import (
	"errors"
	"sync"
	"time"
)

// MemStore is an in-memory Store used by tests and simulator runs.
type MemStore struct {
	mu           sync.Mutex
	campaigns    map[int64]*Campaign
	nextCampaign int64
	jobs         map[int64]*JobRecord
	jobOrder     []int64
	nextJob      int64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		campaigns: make(map[int64]*Campaign),
		jobs:      make(map[int64]*JobRecord),
	}
}

func (s *MemStore) CreateCampaign(c *Campaign) (int64, error) {
	if c == nil {
		return 0, errors.New("campaign is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCampaign++
	c.ID = s.nextCampaign
	if c.CreatedAt == "" {
		c.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	cp := *c
	s.campaigns[c.ID] = &cp
	return c.ID, nil
}

func (s *MemStore) GetCampaign(id int64) (*Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MemStore) LatestCampaign() (*Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextCampaign == 0 {
		return nil, nil
	}
	cp := *s.campaigns[s.nextCampaign]
	return &cp, nil
}

func (s *MemStore) CreateJob(j *JobRecord) (int64, error) {
	if j == nil {
		return 0, errors.New("job record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextJob++
	j.ID = s.nextJob
	if j.SubmittedAt == "" {
		j.SubmittedAt = time.Now().UTC().Format(time.RFC3339)
	}
	cp := *j
	s.jobs[j.ID] = &cp
	s.jobOrder = append(s.jobOrder, j.ID)
	return j.ID, nil
}

func (s *MemStore) ListJobs(campaignID int64) ([]*JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*JobRecord
	for _, id := range s.jobOrder {
		j := s.jobs[id]
		if j.CampaignID == campaignID {
			cp := *j
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (s *MemStore) UpdateJobStatus(id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	j.Status = status
	if status == StatusAnalyzed || status == StatusError {
		j.AnalyzedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

func (s *MemStore) Close() error { return nil }
