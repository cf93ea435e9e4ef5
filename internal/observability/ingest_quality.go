package observability

import (
	"context"
	"strings"

	"github.com/yungbote/skintwin-backend/internal/platform/ctxutil"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

// ReportIngestWarnings counts recoverable ingest issues by kind and logs a
// summary at Debug. Warnings use the "<kind>:<key>" shape; anything without a
// colon is counted as "other".
func ReportIngestWarnings(ctx context.Context, log *logger.Logger, m *Metrics, stage string, warnings []string, meta map[string]any) map[string]int {
	if len(warnings) == 0 {
		return nil
	}
	stage = strings.TrimSpace(stage)
	if stage == "" {
		stage = "unknown"
	}
	if meta == nil {
		meta = map[string]any{}
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			meta["trace_id"] = td.TraceID
		}
		if td.RequestID != "" {
			meta["request_id"] = td.RequestID
		}
	}

	counts := map[string]int{}
	samples := make([]string, 0, 3)
	for _, w := range warnings {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if len(samples) < 3 {
			samples = append(samples, w)
		}
		kind := WarningKind(w)
		counts[kind]++
		m.IncIngestWarning(stage, kind)
	}

	if log != nil && len(counts) > 0 {
		log.Debug("ingest warnings",
			"stage", stage,
			"issues", counts,
			"sample_warnings", samples,
			"meta", meta,
		)
	}
	return counts
}

func WarningKind(w string) string {
	kind, _, ok := strings.Cut(strings.TrimSpace(w), ":")
	kind = strings.TrimSpace(kind)
	if !ok || kind == "" {
		return "other"
	}
	return kind
}
