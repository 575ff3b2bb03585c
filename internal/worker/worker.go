// Package worker implements the extraction pipeline execution loop.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/jobs"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/metrics"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/parser"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// Config controls Worker behavior.
type Config struct {
	DefaultFetchTimeout time.Duration
	MaxFetchTimeout     time.Duration
	ComplianceTimeout   time.Duration
	ExtractTimeout      time.Duration
}

// Worker consumes queue items and runs each job through the five
// pipeline stages: compliance, fetch, parse, extract, export.
type Worker struct {
	queue      scrape.Queue
	manager    *jobs.Manager
	compliance scrape.ComplianceChecker
	fetcher    scrape.Fetcher
	headless   scrape.Fetcher
	parser     scrape.DocumentParser
	extractor  scrape.SemanticExtractor
	exporter   scrape.Exporter
	hasher     scrape.Hasher
	notifier   scrape.Notifier
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker. The headless fetcher, hasher and notifier may be nil.
func New(
	queue scrape.Queue,
	manager *jobs.Manager,
	compliance scrape.ComplianceChecker,
	fetcher scrape.Fetcher,
	headless scrape.Fetcher,
	docParser scrape.DocumentParser,
	extractor scrape.SemanticExtractor,
	exporter scrape.Exporter,
	hasher scrape.Hasher,
	notifier scrape.Notifier,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultFetchTimeout <= 0 {
		cfg.DefaultFetchTimeout = 30 * time.Second
	}
	if cfg.MaxFetchTimeout <= 0 {
		cfg.MaxFetchTimeout = 120 * time.Second
	}
	if cfg.ComplianceTimeout <= 0 {
		cfg.ComplianceTimeout = 5 * time.Second
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = 60 * time.Second
	}
	return &Worker{
		queue:      queue,
		manager:    manager,
		compliance: compliance,
		fetcher:    fetcher,
		headless:   headless,
		parser:     docParser,
		extractor:  extractor,
		exporter:   exporter,
		hasher:     hasher,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item scrape.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	if _, err := w.manager.MarkRunning(ctx, item.JobID); err != nil {
		w.logger.Error("mark running failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}

	result, stageErr := w.runPipeline(ctx, item)
	if stageErr != nil {
		w.failJob(ctx, item.JobID, stageErr)
		return
	}

	job, err := w.manager.Complete(ctx, item.JobID, *result)
	if err != nil {
		w.logger.Error("complete failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}
	w.notify(ctx, job)
}

func (w *Worker) runPipeline(ctx context.Context, item scrape.QueueItem) (*scrape.JobResult, *scrape.StageError) {
	verdict, stageErr := w.runCompliance(ctx, item)
	if stageErr != nil {
		return nil, stageErr
	}
	if _, err := w.manager.AttachCompliance(ctx, item.JobID, verdict); err != nil {
		w.logger.Error("attach compliance failed", zap.String("job_id", item.JobID), zap.Error(err))
	}
	if !verdict.Allowed {
		return nil, scrape.NewStageError(scrape.StageCompliance,
			fmt.Errorf("%w: %s", scrape.ErrComplianceDenied, verdict.Reason))
	}

	page, stageErr := w.runFetch(ctx, item)
	if stageErr != nil {
		return nil, stageErr
	}

	doc := w.runParse(item, page)

	extraction, stageErr := w.runExtract(ctx, item, doc)
	if stageErr != nil {
		return nil, stageErr
	}

	artifacts, stageErr := w.runExport(item, extraction)
	if stageErr != nil {
		return nil, stageErr
	}

	stats := parser.Stats(doc)
	if w.hasher != nil {
		if digest, err := w.hasher.Hash(page.Body); err == nil {
			stats.ContentHash = digest
		}
	}

	return &scrape.JobResult{
		Document:   doc,
		Extraction: extraction,
		Artifacts:  artifacts,
		Stats:      stats,
	}, nil
}

func (w *Worker) runCompliance(ctx context.Context, item scrape.QueueItem) (scrape.ComplianceVerdict, *scrape.StageError) {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, w.cfg.ComplianceTimeout)
	defer cancel()

	verdict := w.compliance.Check(checkCtx, item.Input.URL)
	metrics.ObserveStage(scrape.StageCompliance, time.Since(start), !verdict.Allowed)
	metrics.ObserveComplianceVerdict(verdict.Allowed)
	return verdict, nil
}

func (w *Worker) runFetch(ctx context.Context, item scrape.QueueItem) (scrape.RawPage, *scrape.StageError) {
	fetcher := w.fetcher
	needsRender := item.Input.Render || item.Input.AntiDetection
	if needsRender && w.headless != nil {
		fetcher = w.headless
	}

	timeout := w.fetchTimeout(item.Input.TimeoutSeconds)
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	page, err := fetcher.Fetch(fetchCtx, scrape.FetchRequest{
		URL:           item.Input.URL,
		Timeout:       timeout,
		Render:        needsRender,
		AntiDetection: item.Input.AntiDetection,
	})
	metrics.ObserveStage(scrape.StageFetch, time.Since(start), err != nil)
	if err != nil {
		return scrape.RawPage{}, scrape.NewStageError(scrape.StageFetch, err)
	}
	return page, nil
}

func (w *Worker) runParse(item scrape.QueueItem, page scrape.RawPage) scrape.NormalizedDocument {
	start := time.Now()
	doc := w.parser.Parse(page)
	metrics.ObserveStage(scrape.StageParse, time.Since(start), false)
	if doc.Text == "" {
		w.logger.Debug("parse yielded no text", zap.String("job_id", item.JobID))
	}
	return doc
}

func (w *Worker) runExtract(ctx context.Context, item scrape.QueueItem, doc scrape.NormalizedDocument) (scrape.ExtractionResult, *scrape.StageError) {
	extractCtx, cancel := context.WithTimeout(ctx, w.cfg.ExtractTimeout)
	defer cancel()

	start := time.Now()
	extraction, err := w.extractor.Extract(extractCtx, doc, item.Input.Instruction, scrape.ExtractOptions{
		StructuredExtraction: item.Input.StructuredExtraction,
		StrictSchema:         item.Input.StrictSchema,
	})
	metrics.ObserveStage(scrape.StageExtract, time.Since(start), err != nil)
	if err != nil {
		return scrape.ExtractionResult{}, scrape.NewStageError(scrape.StageExtract, err)
	}
	return extraction, nil
}

func (w *Worker) runExport(item scrape.QueueItem, extraction scrape.ExtractionResult) (map[scrape.Format]scrape.Artifact, *scrape.StageError) {
	start := time.Now()
	artifact, err := w.exporter.Render(extraction, item.Input.Format)
	metrics.ObserveStage(scrape.StageExport, time.Since(start), err != nil)
	if err != nil {
		return nil, scrape.NewStageError(scrape.StageExport, err)
	}
	return map[scrape.Format]scrape.Artifact{artifact.Format: artifact}, nil
}

func (w *Worker) failJob(ctx context.Context, jobID string, stageErr *scrape.StageError) {
	job, err := w.manager.Fail(ctx, jobID, stageErr)
	if err != nil {
		w.logger.Error("fail transition failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	w.notify(ctx, job)
}

// notify delivers the terminal record. Failures are logged and dropped;
// delivery never changes job state.
func (w *Worker) notify(ctx context.Context, job scrape.Job) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, job); err != nil {
		w.logger.Warn("terminal notification failed",
			zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (w *Worker) fetchTimeout(requestedSeconds int) time.Duration {
	if requestedSeconds <= 0 {
		return w.cfg.DefaultFetchTimeout
	}
	requested := time.Duration(requestedSeconds) * time.Second
	if requested > w.cfg.MaxFetchTimeout {
		return w.cfg.MaxFetchTimeout
	}
	return requested
}
