package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/household-ledger/internal/api/handlers"
	"github.com/dvloznov/household-ledger/internal/api/middleware"
	"github.com/dvloznov/household-ledger/internal/assistant"
	"github.com/dvloznov/household-ledger/internal/config"
	"github.com/dvloznov/household-ledger/internal/jobs"
	"github.com/dvloznov/household-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/logger"
	"github.com/dvloznov/household-ledger/internal/mirror"
	"github.com/dvloznov/household-ledger/internal/persist"
	"github.com/dvloznov/household-ledger/internal/store"
)

func main() {
	// Load settings: LEDGER_CONFIG file, then environment, then flags
	cfg, err := config.Load(os.Getenv("LEDGER_CONFIG"))
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	// Initialize logger
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	// Open persistence and restore the ledger
	snapshots, closeStore, err := persist.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open snapshot store")
	}
	defer closeStore()

	initial, err := persist.LoadOrSeed(ctx, snapshots, time.Now(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load snapshot")
	}

	// Initialize job infrastructure. Persistence runs on its own
	// single-worker queue so snapshots are written in commit order.
	jobStore := inmemory.NewStore()
	persistQueue := inmemory.NewQueue(cfg.Jobs.BufferSize, jobStore,
		inmemory.WithWorkers(1),
		inmemory.WithMaxRetries(cfg.Jobs.MaxRetries),
		inmemory.WithLogger(log))
	syncQueue := inmemory.NewQueue(cfg.Jobs.BufferSize, jobStore,
		inmemory.WithWorkers(2),
		inmemory.WithMaxRetries(cfg.Jobs.MaxRetries),
		inmemory.WithBackoff(5*time.Second),
		inmemory.WithLogger(log))

	persistRouter := jobs.NewRouter()
	persistRouter.Handle(jobs.JobTypePersistSnapshot, func(ctx context.Context, s store.Snapshot) error {
		return snapshots.Save(ctx, s)
	})

	syncRouter := jobs.NewRouter()
	closers := mirror.Register(ctx, cfg, syncRouter, log)
	defer mirror.CloseAll(closers, log)

	// Start workers in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting persistence worker")
		if err := persistQueue.Start(workerCtx, persistRouter.Process); err != nil {
			log.Error().Err(err).Msg("Persistence worker stopped with error")
		}
	}()
	go func() {
		log.Info().Int("mirrors", len(syncRouter.Types())).Msg("Starting sync worker")
		if err := syncQueue.Start(workerCtx, syncRouter.Process); err != nil {
			log.Error().Err(err).Msg("Sync worker stopped with error")
		}
	}()

	// The dispatcher is the only writer; observers fan committed snapshots
	// out to the queues.
	dispatcher := ledger.NewDispatcher(initial, log,
		jobs.NewSnapshotPublisher(persistQueue, log, jobs.JobTypePersistSnapshot))
	if types := syncRouter.Types(); len(types) > 0 {
		dispatcher.Subscribe(jobs.NewSnapshotPublisher(syncQueue, log, types...))
	}

	for _, d := range ledger.Audit(initial) {
		log.Warn().Str("account_id", d.AccountID).Str("actual", d.Actual.String()).Str("expected", d.Expected.String()).Msg("Account balance does not match its transactions")
	}

	// AI assistant is optional
	var (
		model   assistant.Model
		session *assistant.Session
	)
	if cfg.AI.APIKey != "" {
		gm, err := assistant.NewGeminiModel(ctx, assistant.GeminiConfig{
			APIKey:      cfg.AI.APIKey,
			ChatModel:   cfg.AI.ChatModel,
			FastModel:   cfg.AI.FastModel,
			ReportModel: cfg.AI.ReportModel,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		model = gm
		session = assistant.NewSession(model, dispatcher,
			assistant.WithMatcher(assistant.KeywordMatcher{Window: time.Duration(cfg.AI.MatchDays) * 24 * time.Hour}),
			assistant.WithLogger(log))
	} else {
		log.Warn().Msg("No GEMINI_API_KEY configured - AI assistant will be disabled")
	}

	// Initialize handlers and router
	mux := handlers.NewRouter(handlers.Handlers{
		Transactions: handlers.NewTransactionsHandler(dispatcher, log),
		Accounts:     handlers.NewAccountsHandler(dispatcher, log),
		Categories:   handlers.NewCategoriesHandler(dispatcher, log),
		Settings:     handlers.NewSettingsHandler(dispatcher, log),
		Budgets:      handlers.NewBudgetsHandler(dispatcher, log),
		Investments:  handlers.NewInvestmentsHandler(dispatcher, log),
		Reports:      handlers.NewReportsHandler(dispatcher, log),
		Export:       handlers.NewExportHandler(dispatcher, log),
		Assistant:    handlers.NewAssistantHandler(session, model, dispatcher, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
	})

	// Apply middleware
	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)

	// Create HTTP server
	port := strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", port).Str("storage", cfg.Storage.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop queues and wait for in-flight jobs; the persistence queue drains
	// so the last committed snapshot reaches storage.
	for name, q := range map[string]*inmemory.Queue{"persist": persistQueue, "sync": syncQueue} {
		if err := q.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Str("queue", name).Msg("Error stopping job queue")
		}
		if err := q.Close(); err != nil {
			log.Error().Err(err).Str("queue", name).Msg("Failed to close job queue")
		}
	}

	// Write the final state directly in case the last job was dropped
	if err := snapshots.Save(shutdownCtx, dispatcher.Snapshot()); err != nil {
		log.Error().Err(err).Msg("Failed to save final snapshot")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
