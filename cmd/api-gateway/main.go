package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/scholarship-api/api/swagger"
	"github.com/noah-isme/scholarship-api/internal/handler"
	"github.com/noah-isme/scholarship-api/internal/repository"
	"github.com/noah-isme/scholarship-api/internal/service"
	"github.com/noah-isme/scholarship-api/internal/workflow"
	"github.com/noah-isme/scholarship-api/pkg/cache"
	"github.com/noah-isme/scholarship-api/pkg/config"
	"github.com/noah-isme/scholarship-api/pkg/database"
	"github.com/noah-isme/scholarship-api/pkg/export"
	"github.com/noah-isme/scholarship-api/pkg/logger"
	"github.com/noah-isme/scholarship-api/pkg/middleware/ratelimit"
	"github.com/noah-isme/scholarship-api/pkg/pinning"
	"github.com/noah-isme/scholarship-api/pkg/storage"
)

// @title Scholarship API
// @version 1.0.0
// @description Scholarship application workflow: wallet sessions, role-gated voting, pooled disbursement.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	applicationRepo := repository.NewApplicationRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	poolRepo := repository.NewPoolRepository(db)
	operationRepo := repository.NewOperationRepository(db)
	schemeRepo := repository.NewSchemeRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	nonceRepo := repository.NewNonceRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, true)

	sessions := service.NewSessionService(identityRepo, nonceRepo, cacheSvc, auditRepo, validate, logr, service.SessionConfig{
		Secret:        cfg.JWT.Secret,
		Expiration:    cfg.JWT.Expiration,
		Issuer:        cfg.JWT.Issuer,
		ChainID:       cfg.Chain.ChainID,
		NetworkName:   cfg.Chain.NetworkName,
		NonceTTL:      cfg.Chain.NonceTTL,
		CapabilityTTL: cfg.Workflow.CapabilityCacheTTL,
	})
	gate := service.NewGate(sessions, logr)

	runner := service.NewOperationRunner(operationRepo, metrics, logr, service.OperationRunnerConfig{
		Workers:        cfg.Workflow.RunnerWorkers,
		ConfirmTimeout: cfg.Workflow.ConfirmTimeout,
		PendingTTL:     cfg.Workflow.PendingTTL,
	})
	runner.Start(ctx)
	defer runner.Stop()

	hub := service.NewEventHub(cfg.Events.BufferSize, metrics, logr)
	bridge := service.NewRedisEventBridge(redisClient, cfg.Events.RedisChannel, hub, logr)
	go func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("event bridge stopped", zap.Error(err))
		}
	}()

	exporter := service.NewExportService(export.NewCSVExporter(), export.NewPDFExporter())
	applications := service.NewApplicationService(applicationRepo, poolRepo, gate, runner, hub, cacheSvc, exporter, auditRepo, metrics, validate, logr, service.ApplicationServiceConfig{
		Rules:          workflow.Rules{SagThreshold: cfg.Workflow.SagThreshold, AdminThreshold: cfg.Workflow.AdminThreshold},
		StandardAmount: cfg.Workflow.StandardAmount,
		DashboardTTL:   cfg.Dashboard.CacheTTL,
	})
	identities := service.NewIdentityService(identityRepo, gate, runner, sessions, hub, auditRepo, validate, logr)
	treasury := service.NewTreasuryService(poolRepo, gate, runner, hub, cacheSvc, auditRepo, validate, logr)
	schemes := service.NewSchemeService(schemeRepo, gate, auditRepo, validate, logr)

	if cfg.Chain.OwnerAddress != "" {
		if err := identities.SeedOwner(ctx, cfg.Chain.OwnerAddress); err != nil {
			logr.Fatal("failed to seed owner", zap.Error(err))
		}
	}

	documents, err := newDocumentService(cfg, metrics, logr)
	if err != nil {
		logr.Fatal("failed to init document store", zap.Error(err))
	}

	documentHandler := handler.NewDocumentHandler(documents, nil)
	if cfg.Verifier.Enabled {
		verifier := service.NewVerifierService(verificationRepo, documents, applicationRepo, gate, metrics, logr, service.VerifierServiceConfig{
			Endpoint:    cfg.Verifier.URL,
			Timeout:     cfg.Verifier.Timeout,
			Retries:     cfg.Verifier.Retries,
			RetryDelay:  cfg.Verifier.RetryDelay,
			Workers:     cfg.Verifier.Workers,
			MaxFileSize: cfg.Documents.MaxFileSizeBytes,
		})
		verifier.Start(ctx)
		defer verifier.Stop()
		documentHandler = handler.NewDocumentHandler(documents, verifier)
	}

	assistantHandler := handler.NewAssistantHandler(nil)
	if cfg.Assistant.Enabled {
		assistantHandler = handler.NewAssistantHandler(service.NewAssistantService(cfg.Assistant.URL, cfg.Assistant.Timeout, validate, metrics, logr))
	}

	eventsHandler := handler.NewEventsHandler(nil, nil, 0, nil, logr)
	if cfg.Events.WebsocketEnabled {
		eventsHandler = handler.NewEventsHandler(hub, poolRepo, cfg.Events.PollInterval, cfg.CORS.AllowedOrigins, logr)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	scheduler := service.NewScheduler(logr, time.Minute)
	mustSchedule(logr, scheduler, "operation-sweep", cfg.Workflow.SweepSchedule, func(ctx context.Context) error {
		if _, err := runner.Sweep(ctx); err != nil {
			return err
		}
		pending, err := operationRepo.CountPending(ctx)
		if err != nil {
			return err
		}
		if pending > 0 {
			logr.Info("operations awaiting outcome", zap.Int("pending", pending))
		}
		return nil
	})
	mustSchedule(logr, scheduler, "dashboard-warm", cfg.Dashboard.WarmSchedule, func(ctx context.Context) error {
		_, err := applications.WarmDashboard(ctx)
		return err
	})
	if limiter != nil {
		mustSchedule(logr, scheduler, "ratelimit-cleanup", "@every 5m", func(context.Context) error {
			limiter.Cleanup()
			return nil
		})
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		RateLimiter:    limiter,
		Sessions:       sessions,
		Gate:           gate,
		Audit:          auditRepo,
		Session:        handler.NewSessionHandler(sessions),
		Application:    handler.NewApplicationHandler(applications, documents, cfg.Exports.Enabled),
		Identity:       handler.NewIdentityHandler(identities),
		Treasury:       handler.NewTreasuryHandler(treasury),
		Operation:      handler.NewOperationHandler(runner),
		Document:       documentHandler,
		Assistant:      assistantHandler,
		Scheme:         handler.NewSchemeHandler(schemes),
		Events:         eventsHandler,
		Observe:        handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newDocumentService(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.DocumentService, error) {
	local, err := storage.NewContentStore(cfg.Documents.LocalDir)
	if err != nil {
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	docCfg := service.DocumentServiceConfig{
		GatewayURL:   cfg.Documents.GatewayURL,
		APIPrefix:    cfg.APIPrefix,
		MaxFileSize:  cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Documents.AllowedMIMEs,
		FetchTimeout: cfg.Documents.Timeout,
	}
	if cfg.Documents.PinningURL == "" {
		logr.Warn("no pinning endpoint configured, documents are stored locally", zap.String("dir", cfg.Documents.LocalDir))
		return service.NewDocumentService(nil, local, signer, metrics, logr, docCfg), nil
	}
	pinner := pinning.New(cfg.Documents.PinningURL, cfg.Documents.PinningJWT, cfg.Documents.Timeout)
	return service.NewDocumentService(pinner, local, signer, metrics, logr, docCfg), nil
}

func readinessChecks(db *sqlx.DB, client *redis.Client) map[string]handler.ReadinessCheck {
	return map[string]handler.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
		"redis":    func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
}

func mustSchedule(logr *zap.Logger, scheduler *service.Scheduler, name, spec string, task service.ScheduledTask) {
	if spec == "" {
		logr.Info("scheduled task disabled", zap.String("task", name))
		return
	}
	if err := scheduler.Add(name, spec, task); err != nil {
		logr.Fatal("invalid schedule", zap.String("task", name), zap.Error(err))
	}
}
