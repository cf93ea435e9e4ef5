package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/skintwin-backend/internal/http"
	httpH "github.com/yungbote/skintwin-backend/internal/http/handlers"
	httpMW "github.com/yungbote/skintwin-backend/internal/http/middleware"
	"github.com/yungbote/skintwin-backend/internal/observability"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health *httpH.HealthHandler
	Twin   *httpH.TwinHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(db),
		Twin: httpH.NewTwinHandler(httpH.TwinHandlerDeps{
			Log:           log,
			Engine:        services.Twin,
			DebugWarnings: cfg.DebugWarnings,
		}),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY is the development default")
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSOrigins,
		AuthMiddleware: middleware.Auth,
		TwinHandler:    handlers.Twin,
		HealthHandler:  handlers.Health,
	})
}
