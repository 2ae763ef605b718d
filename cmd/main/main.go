package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/ai"
	"github.com/chatlead/convo-pipeline/internal/cache"
	"github.com/chatlead/convo-pipeline/internal/channel"
	"github.com/chatlead/convo-pipeline/internal/config"
	"github.com/chatlead/convo-pipeline/internal/healthcheck"
	"github.com/chatlead/convo-pipeline/internal/ingestion"
	"github.com/chatlead/convo-pipeline/internal/jetstream"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/internal/storage"
	"github.com/chatlead/convo-pipeline/internal/usecase"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting Convo Pipeline",
		zap.String("environment", cfg.Environment),
		zap.Int("server_port", cfg.Server.Port),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
	)

	// Initialize repositories
	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Create repository adapters for the service
	threadRepo := storage.NewThreadRepoAdapter(postgresRepo)
	messageRepo := storage.NewMessageRepoAdapter(postgresRepo)
	customerRepo := storage.NewCustomerRepoAdapter(postgresRepo)
	leadRepo := storage.NewLeadRepoAdapter(postgresRepo)
	usageRepo := storage.NewUsageRepoAdapter(postgresRepo)
	businessRepo := storage.NewBusinessRepoAdapter(postgresRepo)
	crmRepo := storage.NewCrmRepoAdapter(postgresRepo)

	// Optional domain event publisher
	var jsClient *jetstream.Client
	var publisher jetstream.EventPublisher = jetstream.NoopPublisher{}
	if cfg.NATS.Enabled {
		jsClient, err = jetstream.NewClient(cfg.NATS.URL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
		}
		setupCtx, setupCancel := context.WithTimeout(context.Background(), cfg.NATS.PublishTimeout)
		publisher, err = jetstream.NewPublisher(setupCtx, jsClient, cfg.NATS.EventStream, cfg.NATS.SubjectPrefix)
		setupCancel()
		if err != nil {
			logger.Log.Fatal("Failed to provision event stream", zap.Error(err))
		}
	}

	// Business context cache
	contextCache := cache.NewBusinessContextCache(businessRepo, cfg.Cache.ContextTTL)

	// AI collaborators and the reply chain
	modelClient := ai.NewOpenAIClient(
		cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model,
		cfg.AI.MaxTokens, cfg.AI.Temperature, cfg.AI.RequestTimeout,
	)
	retriever := ai.NewHTTPKnowledgeRetriever(cfg.AI.KnowledgeBaseURL, cfg.AI.KnowledgeTimeout)
	replier := usecase.NewReplyGenerator(modelClient, retriever, messageRepo, cfg.AI.HistoryWindow, cfg.AI.ServiceSummary)

	// Outbound channel transports
	senders := []channel.Sender{
		channel.NewWhatsAppSender(cfg.Channels.WhatsApp.AccessToken, cfg.Channels.WhatsApp.APIBaseURL, cfg.Channels.WhatsApp.SendTimeout),
		channel.NewInstagramSender(cfg.Channels.Instagram.AccessToken, cfg.Channels.Instagram.APIBaseURL, cfg.Channels.Instagram.SendTimeout),
	}

	// CRM sync worker pool
	crmWorker, err := usecase.NewCrmSyncWorker(cfg.WorkerPools.CrmSync, customerRepo, messageRepo, crmRepo, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize CRM sync worker pool", zap.Error(err))
	}

	// Pipeline service and webhook server
	pipeline := usecase.NewPipelineService(
		threadRepo, messageRepo, customerRepo, leadRepo, usageRepo,
		contextCache, replier, crmWorker, senders, publisher, cfg,
	)
	webhookServer := ingestion.NewServer(pipeline, cfg)

	// Health check server on the metrics port
	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Metrics.Port), logger.Log)
	healthServer.RegisterReadinessCheck("postgres", func(ctx context.Context) error {
		return postgresRepo.Ping(ctx)
	})
	if metricsEnabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Metrics.Port))
	}
	healthServer.Start()

	logger.Log.Info("Health check endpoints available",
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Metrics.Port)),
	)

	// Start webhook server
	sigChan := make(chan os.Signal, 1)
	go func() {
		if err := webhookServer.Start(); err != nil {
			logger.Log.Error("Webhook server failed, initiating shutdown", zap.Error(err))
			select {
			case sigChan <- syscall.SIGTERM:
			default:
				logger.Log.Warn("Could not send SIGTERM to signal channel immediately")
			}
		}
	}()

	// Wait for termination signal
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	var wg sync.WaitGroup
	wg.Add(4)

	// Stop accepting webhooks first so no new work enters the pipeline.
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping webhook server")
		start := time.Now()
		if err := webhookServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping webhook server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Webhook server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping webhook server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Drain the CRM sync worker pool
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping CRM sync worker pool")
		start := time.Now()
		crmWorker.Stop()
		logger.Log.Info("[shutdown] CRM sync worker pool stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping CRM sync worker pool",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown health check server (includes metrics if enabled)
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping health check server")
		start := time.Now()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Health check server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping health check server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Close database and NATS connections
	utils.SafeGo(func() {
		defer wg.Done()

		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		pgStart := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed",
				zap.Duration("duration", time.Since(pgStart)))
		}

		if jsClient != nil {
			logger.Log.Info("[shutdown] Closing JetStream connection")
			jsStart := time.Now()
			jsClient.Close()
			logger.Log.Info("[shutdown] JetStream connection closed",
				zap.Duration("duration", time.Since(jsStart)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Wait with a timeout for all components to shut down
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Convo Pipeline shutdown complete")
}

// Initialize PostgreSQL repository
func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}
