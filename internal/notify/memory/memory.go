// Package memory contains an in-memory notifier for tests.
package memory

import (
	"context"
	"sync"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// Notifier records notified jobs for inspection.
type Notifier struct {
	mu   sync.RWMutex
	jobs []scrape.Job
	err  error
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// FailWith makes subsequent Notify calls return err.
func (n *Notifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// Notify records the job.
func (n *Notifier) Notify(_ context.Context, job scrape.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.jobs = append(n.jobs, job)
	return nil
}

// Jobs returns the recorded notifications.
func (n *Notifier) Jobs() []scrape.Job {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]scrape.Job, len(n.jobs))
	copy(out, n.jobs)
	return out
}
