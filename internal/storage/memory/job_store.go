// Package memory provides store implementations for development/testing.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// ErrStoreFull indicates the capacity bound was hit with no terminal job
// available to evict.
var ErrStoreFull = errors.New("job store full")

// DefaultCapacity bounds the job table when no capacity is configured.
const DefaultCapacity = 1000

// JobStore is an in-memory scrape.JobStore. Jobs are retained up to a
// fixed capacity; inserting beyond it evicts the oldest terminal job.
// Queued and running jobs are never evicted.
type JobStore struct {
	mu       sync.RWMutex
	jobs     map[string]scrape.Job
	order    []string // job IDs in creation order
	capacity int
}

// NewJobStore constructs a JobStore with the given capacity.
// Non-positive capacities fall back to DefaultCapacity.
func NewJobStore(capacity int) *JobStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &JobStore{
		jobs:     make(map[string]scrape.Job),
		capacity: capacity,
	}
}

// PutJob inserts or replaces a job record.
func (s *JobStore) PutJob(_ context.Context, job scrape.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		s.jobs[job.ID] = job
		return nil
	}
	if len(s.order) >= s.capacity {
		if !s.evictOldestTerminal() {
			return ErrStoreFull
		}
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (scrape.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scrape.Job{}, scrape.ErrNotFound
	}
	return job, nil
}

// ListJobs returns a page of jobs ordered by creation time, most recent
// first.
func (s *JobStore) ListJobs(_ context.Context, limit, offset int) ([]scrape.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	n := len(s.order)
	out := make([]scrape.Job, 0, limit)
	for i := n - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.jobs[s.order[i]])
	}
	return out, nil
}

// CountJobs returns a snapshot of the job table by state.
func (s *JobStore) CountJobs(_ context.Context) (scrape.JobStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := scrape.JobStats{Total: len(s.jobs)}
	for _, job := range s.jobs {
		switch job.Status {
		case scrape.JobStatusQueued:
			stats.Queued++
		case scrape.JobStatusRunning:
			stats.Running++
		case scrape.JobStatusCompleted:
			stats.Completed++
		case scrape.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// evictOldestTerminal removes the oldest terminal job. Returns false when
// every stored job is still queued or running. Caller holds the lock.
func (s *JobStore) evictOldestTerminal() bool {
	for i, id := range s.order {
		if s.jobs[id].Status.Terminal() {
			delete(s.jobs, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			return true
		}
	}
	return false
}
