package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	httpH "github.com/yungbote/skintwin-backend/internal/http/handlers"
	httpMW "github.com/yungbote/skintwin-backend/internal/http/middleware"
	"github.com/yungbote/skintwin-backend/internal/observability"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

func TestRouterAuthAndOperationalRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "test-secret"
	metrics := observability.NewMetrics()
	r := NewRouter(RouterConfig{
		Log:            logger.Nop(),
		Metrics:        metrics,
		AuthMiddleware: httpMW.NewAuthMiddleware(logger.Nop(), secret),
		TwinHandler:    httpH.NewTwinHandler(httpH.TwinHandlerDeps{}),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})

	post := func(target, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(nethttp.MethodPost, target, strings.NewReader(`not json`))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	health := httptest.NewRecorder()
	r.ServeHTTP(health, httptest.NewRequest(nethttp.MethodGet, "/healthcheck", nil))
	if health.Code != nethttp.StatusOK {
		t.Fatalf("healthcheck: got=%d", health.Code)
	}
	if health.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	if rec := post("/api/digital-twin/snapshot", ""); rec.Code != nethttp.StatusUnauthorized {
		t.Fatalf("missing token: want 401 got %d", rec.Code)
	}
	if rec := post("/api/digital-twin/snapshot", "garbage"); rec.Code != nethttp.StatusUnauthorized {
		t.Fatalf("bad token: want 401 got %d", rec.Code)
	}
	wrongKey, err := httpMW.SignAccessToken("other-secret", uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := post("/api/digital-twin/snapshot", wrongKey); rec.Code != nethttp.StatusUnauthorized {
		t.Fatalf("wrong key: want 401 got %d", rec.Code)
	}
	expired, err := httpMW.SignAccessToken(secret, uuid.New(), -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := post("/api/digital-twin/snapshot", expired); rec.Code != nethttp.StatusUnauthorized {
		t.Fatalf("expired: want 401 got %d", rec.Code)
	}

	token, err := httpMW.SignAccessToken(secret, uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	// authenticated; the handler itself rejects the body
	if rec := post("/api/digital-twin/snapshot", token); rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("valid token: want 400 got %d body=%s", rec.Code, rec.Body.String())
	}

	scrape := httptest.NewRecorder()
	r.ServeHTTP(scrape, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	if scrape.Code != nethttp.StatusOK {
		t.Fatalf("metrics: got=%d", scrape.Code)
	}
	if !strings.Contains(scrape.Body.String(), "skintwin_api_requests_total") {
		t.Fatalf("expected api request counter in scrape output")
	}
}
