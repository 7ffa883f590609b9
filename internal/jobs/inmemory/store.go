package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/jobs"
	"github.com/dvloznov/household-ledger/internal/store"
)

// DefaultRetention is how many jobs a Store keeps before evicting the
// oldest finished ones.
const DefaultRetention = 500

// Store is an in-memory implementation of JobStore.
// Data is lost on service restart. Snapshots are never retained.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*jobs.SnapshotJob
	retention int
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{
		jobs:      make(map[string]*jobs.SnapshotJob),
		retention: DefaultRetention,
	}
}

// SaveJob implements the JobStore interface.
func (s *Store) SaveJob(ctx context.Context, job *jobs.SnapshotJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	jobCopy.Snapshot = store.Snapshot{}
	s.jobs[job.JobID] = &jobCopy
	s.evict()

	return nil
}

// evict drops the oldest finished jobs beyond the retention limit.
func (s *Store) evict() {
	if len(s.jobs) <= s.retention {
		return
	}
	var finished []*jobs.SnapshotJob
	for _, j := range s.jobs {
		if j.Finished() {
			finished = append(finished, j)
		}
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].CreatedAt.Before(finished[j].CreatedAt) })
	for _, j := range finished {
		if len(s.jobs) <= s.retention {
			return
		}
		delete(s.jobs, j.JobID)
	}
}

// GetJob implements the JobStore interface.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.SnapshotJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements the JobStore interface.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.SnapshotJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.SnapshotJob{}
	for _, job := range s.jobs {
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].Revision > result[j].Revision
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.SnapshotJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

var _ jobs.JobStore = (*Store)(nil)
