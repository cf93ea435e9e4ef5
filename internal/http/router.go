package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/skintwin-backend/internal/http/handlers"
	httpMW "github.com/yungbote/skintwin-backend/internal/http/middleware"
	"github.com/yungbote/skintwin-backend/internal/observability"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	TwinHandler   *httpH.TwinHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "skintwin"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Digital twin
		if cfg.TwinHandler != nil {
			protected.POST("/digital-twin/snapshot", cfg.TwinHandler.CreateSnapshot)
			protected.GET("/digital-twin/current", cfg.TwinHandler.GetCurrent)
			protected.GET("/digital-twin/timeline", cfg.TwinHandler.GetTimeline)
			protected.POST("/digital-twin/simulate", cfg.TwinHandler.Simulate)
		}
	}

	return r
}
