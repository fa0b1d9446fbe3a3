package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/hostguard/guardian-backend/internal/http/handlers"
	httpMW "github.com/hostguard/guardian-backend/internal/http/middleware"
	"github.com/hostguard/guardian-backend/internal/observability"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics
	InternalKey string

	AuthMiddleware  *httpMW.AuthMiddleware
	HealthHandler   *httpH.HealthHandler
	GuardianHandler *httpH.GuardianHandler
	ExchangeHandler *httpH.ExchangeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")

	// Service-to-service
	if cfg.ExchangeHandler != nil {
		internal := api.Group("/internal")
		internal.Use(httpMW.RequireInternalKey(cfg.InternalKey))
		internal.POST("/conversations/:id/exchanges", cfg.ExchangeHandler.RecordExchange)
	}

	// Host dashboard
	if cfg.GuardianHandler != nil && cfg.AuthMiddleware != nil {
		g := api.Group("/guardian")
		g.Use(cfg.AuthMiddleware.RequireAuth())
		g.GET("/alerts", cfg.GuardianHandler.ListAlerts)
		g.POST("/alerts/:id/resolve", cfg.GuardianHandler.ResolveAlert)
		g.POST("/conversations/:id/notify-guest", cfg.GuardianHandler.NotifyGuest)
		g.GET("/conversations/:id/analyses", cfg.GuardianHandler.ListAnalyses)
		g.GET("/statistics", cfg.GuardianHandler.Statistics)
	}

	return r
}
