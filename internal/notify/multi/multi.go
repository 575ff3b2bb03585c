// Package multi fans a terminal-job notification out to several sinks.
package multi

import (
	"context"
	"errors"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// Notifier delivers each notification to every wrapped sink. Delivery
// is attempted on all sinks even when one fails.
type Notifier struct {
	sinks []scrape.Notifier
}

// New creates a Notifier over the given sinks, skipping nil entries.
func New(sinks ...scrape.Notifier) *Notifier {
	kept := make([]scrape.Notifier, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Notifier{sinks: kept}
}

// Notify forwards the job to every sink and joins any errors.
func (n *Notifier) Notify(ctx context.Context, job scrape.Job) error {
	var errs []error
	for _, s := range n.sinks {
		if err := s.Notify(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
