package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

func TestNotifierRecordsJobs(t *testing.T) {
	t.Parallel()

	n := New()
	if err := n.Notify(context.Background(), scrape.Job{ID: "job-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := n.Notify(context.Background(), scrape.Job{ID: "job-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jobs := n.Jobs()
	if len(jobs) != 2 || jobs[0].ID != "job-1" || jobs[1].ID != "job-2" {
		t.Fatalf("unexpected recorded jobs: %+v", jobs)
	}
}

func TestNotifierFailWith(t *testing.T) {
	t.Parallel()

	n := New()
	n.FailWith(errors.New("down"))
	if err := n.Notify(context.Background(), scrape.Job{ID: "job-1"}); err == nil {
		t.Fatal("expected configured error")
	}
	if len(n.Jobs()) != 0 {
		t.Fatal("failed notify must not record the job")
	}
}
