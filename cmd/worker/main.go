package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/config"
	"github.com/dvloznov/household-ledger/internal/jobs"
	"github.com/dvloznov/household-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/household-ledger/internal/logger"
	"github.com/dvloznov/household-ledger/internal/mirror"
	"github.com/dvloznov/household-ledger/internal/persist"
)

// The worker mirrors a ledger written by another process (the CLI, or an
// API server without mirrors enabled). It polls storage and publishes a
// sync job per mirror whenever the stored revision moves forward.
func main() {
	cfg, err := config.Load(os.Getenv("LEDGER_CONFIG"))
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.RegisterFlags(flag.CommandLine)
	interval := flag.Duration("interval", time.Minute, "How often to check storage for a new revision")
	once := flag.Bool("once", false, "Sync the current revision and exit")
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	snapshots, closeStore, err := persist.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open snapshot store")
	}
	defer closeStore()

	router := jobs.NewRouter()
	closers := mirror.Register(ctx, cfg, router, log)
	defer mirror.CloseAll(closers, log)
	if len(router.Types()) == 0 {
		log.Fatal().Msg("No mirrors enabled - set warehouse.enabled or notion.enabled")
	}

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Jobs.BufferSize, jobStore,
		inmemory.WithWorkers(len(router.Types())),
		inmemory.WithMaxRetries(cfg.Jobs.MaxRetries),
		inmemory.WithBackoff(5*time.Second),
		inmemory.WithLogger(log))

	log.Info().Str("storage", cfg.Storage.Backend).Int("mirrors", len(router.Types())).Msg("Starting worker service")

	if err := jobQueue.Start(ctx, router.Process); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	p := &poller{store: snapshots, queue: jobQueue, types: router.Types(), log: log}
	if *once {
		p.poll(ctx)
	} else {
		go p.run(ctx, *interval)

		log.Info().Dur("interval", *interval).Msg("Worker service started, watching for new revisions...")

		// Wait for interrupt signal
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
	}

	log.Info().Msg("Shutting down worker service...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}
	cancel()

	log.Info().Msg("Worker service exited")
}

type poller struct {
	store persist.Store
	queue jobs.Publisher
	types []jobs.JobType
	log   zerolog.Logger
	last  int64
	seen  bool
}

func (p *poller) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll publishes the stored snapshot if its revision is newer than the
// last one published.
func (p *poller) poll(ctx context.Context) {
	s, err := p.store.Load(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to load snapshot")
		return
	}
	if p.seen && s.Revision <= p.last {
		return
	}
	p.last, p.seen = s.Revision, true

	for _, t := range p.types {
		job := &jobs.SnapshotJob{Type: t, Revision: s.Revision, Mutation: "poll", Snapshot: s}
		if err := p.queue.Publish(ctx, job); err != nil {
			p.log.Warn().Err(err).Str("job_type", string(t)).Int64("revision", s.Revision).Msg("Failed to publish snapshot job")
		}
	}
	p.log.Info().Int64("revision", s.Revision).Msg("Published sync jobs")
}
