package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/scholarship-api/internal/middleware"
	"github.com/noah-isme/scholarship-api/internal/models"
	"github.com/noah-isme/scholarship-api/internal/service"
	"github.com/noah-isme/scholarship-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/scholarship-api/pkg/middleware/cors"
	"github.com/noah-isme/scholarship-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/scholarship-api/pkg/middleware/requestid"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type tokenValidator interface {
	ValidateToken(token string) (*models.SessionClaims, error)
}

type roleGate interface {
	RequireAny(ctx context.Context, caller string, roles ...models.Role) (models.Capability, error)
}

// RouterConfig collects everything the HTTP surface is built from.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	RateLimiter    *ratelimit.Limiter
	Sessions       tokenValidator
	Gate           roleGate
	Audit          auditWriter

	Session     *SessionHandler
	Application *ApplicationHandler
	Identity    *IdentityHandler
	Treasury    *TreasuryHandler
	Operation   *OperationHandler
	Document    *DocumentHandler
	Assistant   *AssistantHandler
	Scheme      *SchemeHandler
	Events      *EventsHandler
	Observe     *MetricsHandler
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", cfg.Observe.Health)
	r.GET("/ready", cfg.Observe.Ready)
	r.GET("/metrics", cfg.Observe.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(strings.TrimRight(prefix, "/"))
	api.Use(middleware.OptionalSession(cfg.Sessions))
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware(rateLimitKey))
	}

	auth := middleware.Session(cfg.Sessions)
	bureau := middleware.RequireRoles(cfg.Gate, models.RoleSagBureau, models.RoleAdmin, models.RoleFinanceBureau)

	api.POST("/auth/challenge", cfg.Session.Challenge)
	api.POST("/auth/login", cfg.Session.Login)
	api.GET("/auth/session", auth, cfg.Session.Current)
	api.POST("/auth/logout", auth, cfg.Session.Logout)

	api.POST("/students/register", auth, cfg.Identity.RegisterStudent)

	apps := api.Group("/applications", auth)
	apps.POST("", cfg.Application.Submit)
	apps.GET("", cfg.Application.List)
	apps.GET("/mine", cfg.Application.Mine)
	apps.GET("/export", middleware.Audit(cfg.Audit, models.AuditActionExport, "application"), cfg.Application.Export)
	apps.GET("/status/:status", cfg.Application.ByStatus)
	apps.GET("/:id", cfg.Application.Get)
	apps.GET("/:id/votes/:stage", cfg.Application.Votes)
	apps.GET("/:id/votes/:stage/:address", cfg.Application.HasVoted)
	apps.GET("/:id/documents", cfg.Application.Documents)
	apps.POST("/:id/verify", cfg.Application.Verify)
	apps.POST("/:id/approve", cfg.Application.Approve)
	apps.POST("/:id/disburse", cfg.Application.Disburse)
	apps.POST("/:id/verifications", cfg.Document.QueueApplicationCheck)
	apps.GET("/:id/verifications", cfg.Document.Verdicts)

	api.GET("/dashboard", auth, bureau, cfg.Application.Dashboard)

	api.GET("/roles/:address", cfg.Identity.GetRole)
	api.GET("/roles", auth, cfg.Identity.List)
	api.PUT("/roles/:address", auth, cfg.Identity.AssignRole)
	api.DELETE("/roles/:address", auth, cfg.Identity.RevokeRole)
	api.GET("/owner", cfg.Identity.Owner)
	api.POST("/owner/transfer", auth, cfg.Identity.TransferOwnership)

	api.GET("/pool", cfg.Treasury.Balance)
	api.POST("/pool/deposits", auth, cfg.Treasury.Deposit)
	api.GET("/pool/ledger", auth, cfg.Treasury.Ledger)

	api.GET("/operations/:id", auth, cfg.Operation.Get)

	api.POST("/documents", auth, middleware.Audit(cfg.Audit, models.AuditActionDocumentUpload, "document"), cfg.Document.Upload)
	api.POST("/documents/verify", auth, cfg.Document.Verify)
	api.GET("/documents/:id", cfg.Document.Download)

	api.POST("/assistant/messages", cfg.Assistant.Message)

	api.GET("/schemes", cfg.Scheme.List)
	api.POST("/schemes", auth, cfg.Scheme.Create)
	api.GET("/schemes/registrations/mine", auth, cfg.Scheme.Registrations)
	api.GET("/schemes/:id", cfg.Scheme.Get)
	api.DELETE("/schemes/:id", auth, cfg.Scheme.Deactivate)
	api.POST("/schemes/:id/register", auth, cfg.Scheme.Register)

	api.GET("/events/ws", cfg.Events.Stream)
	api.GET("/metrics/summary", auth, bureau, cfg.Observe.Snapshot)

	return r
}

// rateLimitKey buckets authenticated callers by wallet and anonymous ones by IP.
func rateLimitKey(c *gin.Context) string {
	if caller := middleware.Caller(c); caller != "" {
		return "wallet:" + strings.ToLower(caller)
	}
	return "ip:" + c.ClientIP()
}
