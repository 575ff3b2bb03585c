package scrape

import (
	"context"
	"time"
)

// JobStore persists job records. Put replaces the stored record wholesale;
// callers own transition validation.
type JobStore interface {
	PutJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]Job, error)
	CountJobs(ctx context.Context) (JobStats, error)
}

// Fetcher retrieves raw page content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (RawPage, error)
}

// DocumentParser turns raw markup into a normalized document. It is
// best-effort and never fails on malformed input.
type DocumentParser interface {
	Parse(page RawPage) NormalizedDocument
}

// ComplianceChecker issues a crawl-permission verdict for a URL.
type ComplianceChecker interface {
	Check(ctx context.Context, rawURL string) ComplianceVerdict
}

// SemanticExtractor derives an instruction-shaped result from a document.
type SemanticExtractor interface {
	Extract(ctx context.Context, doc NormalizedDocument, instruction string, opts ExtractOptions) (ExtractionResult, error)
}

// CompletionService is the narrow interface to the external reasoning
// service behind the semantic extractor.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Exporter renders an extraction result into one export format.
type Exporter interface {
	Render(result ExtractionResult, format Format) (Artifact, error)
}

// Notifier delivers a terminal job record to an external receiver.
// Delivery is best-effort; failures must not affect the job.
type Notifier interface {
	Notify(ctx context.Context, job Job) error
}

// Hasher fingerprints fetched content.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Queue provides enqueue/dequeue semantics for submitted jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
