package app

import (
	"os"
	"strings"
	"time"

	twinmod "github.com/yungbote/skintwin-backend/internal/modules/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
	"github.com/yungbote/skintwin-backend/internal/observability"
	"github.com/yungbote/skintwin-backend/internal/platform/envutil"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	JWTSecretKey    string

	// DBDriver is "postgres" (default) or "sqlite".
	DBDriver   string
	SQLitePath string

	Twin            twinmod.Config
	AdjustmentsPath string
	DebugWarnings   bool

	MetricsAddr string
	ServiceName string
	Environment string
	Version     string
	Otel        observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	hours := func(name string, def time.Duration) time.Duration {
		h := envutil.Float(name, def.Hours(), log)
		if h <= 0 {
			return def
		}
		return time.Duration(h * float64(time.Hour))
	}
	cfg := Config{
		HTTPAddr:        envutil.String("HTTP_ADDR", ":8080", log),
		ShutdownTimeout: envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second, log),
		CORSOrigins:     splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", "defaultsecret", log),

		DBDriver:   strings.ToLower(envutil.String("DB_DRIVER", "postgres", log)),
		SQLitePath: envutil.String("SQLITE_PATH", "skintwin.db", log),

		Twin: twinmod.Config{
			EnvironmentWindow:   hours("TWIN_ENV_WINDOW_HOURS", steps.DefaultEnvironmentWindow),
			RoutineWindow:       hours("TWIN_ROUTINE_WINDOW_HOURS", steps.DefaultRoutineWindow),
			RegressionPoints:    envutil.Int("TWIN_REGRESSION_POINTS", steps.DefaultRegressionPoints, log),
			DefaultModelVersion: envutil.String("TWIN_MODEL_VERSION_DEFAULT", "unknown", log),
		},
		AdjustmentsPath: envutil.String("TWIN_ADJUSTMENTS_PATH", "", log),
		DebugWarnings:   envutil.Bool("TWIN_DEBUG_WARNINGS", false, log),

		MetricsAddr: envutil.String("METRICS_ADDR", "", log),
		ServiceName: envutil.String("SERVICE_NAME", "skintwin", log),
		Environment: envutil.String("APP_ENV", "development", log),
		Version:     envutil.String("APP_VERSION", "dev", log),
	}
	cfg.Otel = observability.OtelConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
		Headers:     observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1, log),
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
