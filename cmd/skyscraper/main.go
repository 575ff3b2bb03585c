// Package main wires together the skyscraper extraction service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/api"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/clock/system"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/compliance"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/config"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/dispatcher"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/export"
	collyfetcher "github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/fetcher/colly"
	headlessfetcher "github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/fetcher/headless"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/hash/sha256"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/id/uuid"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/jobs"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/logging"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/metrics"
	multinotify "github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/notify/multi"
	pubsubnotify "github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/notify/pubsub"
	webhooknotify "github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/notify/webhook"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/parser"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/queue/memory"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/semantic"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/semantic/gemini"
	memorystorage "github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/storage/memory"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/storage/postgres"
	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var jobStore scrape.JobStore
	if cfg.DB.DSN != "" {
		pgStore, err := postgres.NewJobStore(ctx, postgres.JobStoreConfig{DSN: cfg.DB.DSN})
		if err != nil {
			logger.Fatal("postgres job store init failed", zap.Error(err))
		}
		defer pgStore.Close()
		jobStore = pgStore
	} else {
		jobStore = memorystorage.NewJobStore(cfg.Jobs.StoreCapacity)
	}

	queue := memory.NewQueue(cfg.Pipeline.QueueDepth)
	clock := system.New()
	idGen := uuid.New()
	manager := jobs.New(jobStore, queue, clock, idGen, logger.Named("jobs"))

	checker := compliance.New(compliance.Config{
		UserAgent: cfg.Compliance.UserAgent,
		Timeout:   cfg.ComplianceTimeout(),
	}, logger.Named("compliance"))

	staticFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(0),
	})
	var headless scrape.Fetcher = headlessfetcher.NewNoop()
	if cfg.Headless.Enabled {
		headlessFetcher, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
			DomainQPS:         cfg.Headless.DomainQPS,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			headless = headlessFetcher
		}
	}

	geminiClient, err := gemini.NewClient(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		logger.Fatal("gemini client init failed", zap.Error(err))
	}
	extractor := semantic.New(gemini.NewService(geminiClient, cfg.Gemini.Model), logger.Named("semantic"))

	notifiers := []scrape.Notifier{
		webhooknotify.New(cfg.WebhookTimeout(), logger.Named("webhook")),
	}
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		psNotifier, err := pubsubnotify.NewFromProject(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			logger.Warn("pubsub notifier init failed", zap.Error(err))
		} else {
			defer func() {
				if closeErr := psNotifier.Close(); closeErr != nil {
					logger.Warn("pubsub notifier close failed", zap.Error(closeErr))
				}
			}()
			notifiers = append(notifiers, psNotifier)
		}
	}
	notifier := multinotify.New(notifiers...)

	workerCfg := worker.Config{
		DefaultFetchTimeout: cfg.FetchTimeout(0),
		MaxFetchTimeout:     time.Duration(cfg.Fetch.MaxTimeoutSeconds) * time.Second,
		ComplianceTimeout:   cfg.ComplianceTimeout(),
	}

	var workers []*worker.Worker
	for i := 0; i < cfg.Pipeline.Concurrency; i++ {
		workers = append(workers, worker.New(
			queue,
			manager,
			checker,
			staticFetcher,
			headless,
			parser.New(),
			extractor,
			export.New(),
			sha256.New(),
			notifier,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(manager, checker, clock, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Pipeline.Concurrency))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
}
