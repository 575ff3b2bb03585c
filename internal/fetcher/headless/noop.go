package headless

import (
	"context"
	"errors"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// Noop implements Fetcher but always returns an error to indicate that
// headless browsing is not available in the current build.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch returns an error since this is a stub implementation.
func (Noop) Fetch(_ context.Context, _ scrape.FetchRequest) (scrape.RawPage, error) {
	return scrape.RawPage{}, errors.New("headless fetcher not configured")
}
