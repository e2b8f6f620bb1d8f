package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/toddhamam/members-automation/internal/automation/app"
	"github.com/toddhamam/members-automation/internal/automation/domain"
	"github.com/toddhamam/members-automation/internal/automation/repository/postgres"
	"github.com/toddhamam/members-automation/internal/platform/config"
	"github.com/toddhamam/members-automation/internal/platform/database"
	"github.com/toddhamam/members-automation/internal/platform/logger"
	"github.com/toddhamam/members-automation/internal/platform/messagebroker"
)

const (
	serviceName     = "automation-service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	log.Info("Starting service")

	mainCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		log.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("Database connection pool initialized")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, log, serviceName)
	if err != nil {
		log.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()

	strategy := domain.ConversationStrategy(cfg.ConversationStrategy)
	if !strategy.Valid() {
		log.Warn("Unknown conversation strategy, falling back to per_recipient", "strategy", cfg.ConversationStrategy)
		strategy = domain.StrategyPerRecipient
	}

	ruleRepo := postgres.NewPgRuleRepository(dbPool, log)
	logRepo := postgres.NewPgDeliveryLogRepository(dbPool, log)
	memberRepo := postgres.NewPgMemberRepository(dbPool, log)
	conversationRepo := postgres.NewPgConversationRepository(dbPool, log, strategy)
	senderResolver := postgres.NewPgSenderResolver(dbPool, log)

	sender := app.NewMessageSender(logRepo, conversationRepo, senderResolver, log)
	dispatcher := app.NewDispatcher(ruleRepo, logRepo, memberRepo, sender, log)
	worker := app.NewWorker(logRepo, ruleRepo, sender, log, app.WorkerConfig{
		PollingInterval: cfg.WorkerPollingInterval,
		BatchSize:       cfg.WorkerBatchSize,
	})
	consumer := app.NewEventConsumer(dispatcher, log)

	g, groupCtx := errgroup.WithContext(mainCtx)

	// Delivery worker loop: drain due deferred deliveries on a fixed cadence.
	g.Go(func() error {
		log.Info("Starting delivery worker", "polling_interval", cfg.WorkerPollingInterval, "batch_size", cfg.WorkerBatchSize)
		ticker := time.NewTicker(cfg.WorkerPollingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				processed, err := worker.ProcessPendingAutomations(groupCtx)
				if err != nil {
					log.ErrorContext(groupCtx, "Delivery worker pass failed", "error", err)
					continue
				}
				if processed > 0 {
					log.InfoContext(groupCtx, "Delivery worker pass complete", "processed", processed)
				}
			case <-groupCtx.Done():
				log.Info("Delivery worker stopping")
				return groupCtx.Err()
			}
		}
	})

	// Lifecycle event consumer.
	g.Go(func() error {
		if err := consumer.Start(natsClient, cfg.EventsSubject, cfg.EventsQueueGroup); err != nil {
			return fmt.Errorf("start event consumer: %w", err)
		}
		<-groupCtx.Done()
		consumer.Stop()
		return groupCtx.Err()
	})

	// Ops HTTP server: liveness and metrics only, no business API.
	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbPool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	opsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	g.Go(func() error {
		log.Info("Starting ops HTTP server", "addr", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return opsServer.Shutdown(shutdownCtx)
	})

	log.Info("Service components initialized, service is ready")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("Service stopped")
}
