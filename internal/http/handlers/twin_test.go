package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	twinmod "github.com/yungbote/skintwin-backend/internal/modules/twin"
	"github.com/yungbote/skintwin-backend/internal/platform/ctxutil"
)

type fakeEngine struct {
	buildRes  twinmod.BuildResult
	buildErr  error
	lastBuild twinmod.BuildInput

	current    *types.SkinSnapshot
	currentErr error

	timelineErr  error
	lastTimeline twinmod.TimelineInput

	simErr  error
	lastSim twinmod.SimulateInput
}

func (f *fakeEngine) Build(_ context.Context, in twinmod.BuildInput) (twinmod.BuildResult, error) {
	f.lastBuild = in
	return f.buildRes, f.buildErr
}

func (f *fakeEngine) GetCurrentSnapshot(context.Context, uuid.UUID) (*types.SkinSnapshot, error) {
	return f.current, f.currentErr
}

func (f *fakeEngine) GetTimeline(_ context.Context, in twinmod.TimelineInput) (types.Timeline, error) {
	f.lastTimeline = in
	return types.Timeline{UserID: in.UserID}, f.timelineErr
}

func (f *fakeEngine) Simulate(_ context.Context, in twinmod.SimulateInput) (*types.ScenarioSimulation, error) {
	f.lastSim = in
	if f.simErr != nil {
		return nil, f.simErr
	}
	return &types.ScenarioSimulation{UserID: in.UserID, HorizonDays: in.HorizonDays}, nil
}

func newTwinRouter(h *TwinHandler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: userID})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	r.POST("/snapshot", h.CreateSnapshot)
	r.GET("/current", h.GetCurrent)
	r.GET("/timeline", h.GetTimeline)
	r.POST("/simulate", h.Simulate)
	return r
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

func TestCreateSnapshotStatuses(t *testing.T) {
	userID := uuid.New()
	snap := &types.SkinSnapshot{ID: uuid.New(), UserID: userID}
	body := `{"scan_id":"scan-1","taken_at":"2026-05-01T10:00:00Z","analysis":{"global_metrics":{"hydration_index":80}}}`

	cases := []struct {
		name   string
		res    twinmod.BuildResult
		err    error
		status int
		code   string
	}{
		{"created", twinmod.BuildResult{Snapshot: snap, Warnings: []string{"defaulted:oiliness_level"}}, nil, http.StatusCreated, ""},
		{"duplicate", twinmod.BuildResult{Snapshot: snap, Duplicate: true}, nil, http.StatusOK, ""},
		{"malformed", twinmod.BuildResult{}, fmt.Errorf("ingest: %w", types.ErrMalformedAnalysis), http.StatusUnprocessableEntity, "malformed_analysis"},
		{"other owner", twinmod.BuildResult{}, types.ErrDuplicateSnapshot, http.StatusConflict, "duplicate_snapshot"},
		{"store failure", twinmod.BuildResult{}, errors.New("connection refused"), http.StatusInternalServerError, "build_snapshot_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := &fakeEngine{buildRes: tc.res, buildErr: tc.err}
			r := newTwinRouter(NewTwinHandler(TwinHandlerDeps{Engine: eng}), userID)
			rec := do(r, http.MethodPost, "/snapshot", body)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.code != "" {
				if got := errorCode(t, rec); got != tc.code {
					t.Fatalf("code: want=%q got=%q", tc.code, got)
				}
				if strings.Contains(rec.Body.String(), "connection refused") {
					t.Fatalf("internal error leaked: %s", rec.Body.String())
				}
				return
			}
			if eng.lastBuild.ScanID != "scan-1" || eng.lastBuild.UserID != userID {
				t.Fatalf("unexpected build input: %+v", eng.lastBuild)
			}
			if !eng.lastBuild.TakenAt.Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)) {
				t.Fatalf("taken_at: got=%s", eng.lastBuild.TakenAt)
			}
			if strings.Contains(rec.Body.String(), "warnings") {
				t.Fatalf("warnings must not be returned by default: %s", rec.Body.String())
			}
		})
	}
}

func TestCreateSnapshotDebugWarnings(t *testing.T) {
	eng := &fakeEngine{buildRes: twinmod.BuildResult{
		Snapshot: &types.SkinSnapshot{ID: uuid.New()},
		Warnings: []string{"unknown_region:jawline"},
	}}
	r := newTwinRouter(NewTwinHandler(TwinHandlerDeps{Engine: eng, DebugWarnings: true}), uuid.New())
	rec := do(r, http.MethodPost, "/snapshot", `{"analysis":{"global_metrics":{}}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown_region:jawline") {
		t.Fatalf("expected warnings in debug mode: %s", rec.Body.String())
	}
}

func TestCreateSnapshotRejectsBadBodies(t *testing.T) {
	r := newTwinRouter(NewTwinHandler(TwinHandlerDeps{Engine: &fakeEngine{}}), uuid.New())
	for _, body := range []string{`not json`, `{}`, `{"analysis":null}`} {
		if rec := do(r, http.MethodPost, "/snapshot", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: want 400 got %d", body, rec.Code)
		}
	}
}

func TestTwinRoutesRequireUser(t *testing.T) {
	r := newTwinRouter(NewTwinHandler(TwinHandlerDeps{Engine: &fakeEngine{}}), uuid.Nil)
	if rec := do(r, http.MethodGet, "/current", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 got %d", rec.Code)
	}
}

func TestGetCurrentNotFound(t *testing.T) {
	eng := &fakeEngine{currentErr: fmt.Errorf("%w: none", types.ErrSnapshotNotFound)}
	r := newTwinRouter(NewTwinHandler(TwinHandlerDeps{Engine: eng}), uuid.New())
	rec := do(r, http.MethodGet, "/current", "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "snapshot_not_found" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetTimelineQuery(t *testing.T) {
	eng := &fakeEngine{}
	r := newTwinRouter(NewTwinHandler(TwinHandlerDeps{Engine: eng}), uuid.New())

	rec := do(r, http.MethodGet, "/timeline", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d", rec.Code)
	}
	if eng.lastTimeline.MaxPoints != 200 || eng.lastTimeline.Start != nil || eng.lastTimeline.End != nil {
		t.Fatalf("defaults not applied: %+v", eng.lastTimeline)
	}

	rec = do(r, http.MethodGet, "/timeline?start_at=2026-01-01T00:00:00Z&end_at=2026-02-01T00:00:00Z&max_points=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d", rec.Code)
	}
	if eng.lastTimeline.MaxPoints != 3 || eng.lastTimeline.Start == nil || eng.lastTimeline.End == nil {
		t.Fatalf("query not parsed: %+v", eng.lastTimeline)
	}

	for target, code := range map[string]string{
		"/timeline?start_at=yesterday": "invalid_start_at",
		"/timeline?max_points=lots":    "invalid_max_points",
	} {
		rec := do(r, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest || errorCode(t, rec) != code {
			t.Fatalf("%s: unexpected response %d %s", target, rec.Code, rec.Body.String())
		}
	}

	eng.timelineErr = types.ErrInvalidMaxPoints
	rec = do(r, http.MethodGet, "/timeline?max_points=5000", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("engine validation error: want 400 got %d", rec.Code)
	}
}

func TestSimulate(t *testing.T) {
	eng := &fakeEngine{}
	r := newTwinRouter(NewTwinHandler(TwinHandlerDeps{Engine: eng}), uuid.New())

	rec := do(r, http.MethodPost, "/simulate", `{"changes":[{"kind":"routine","key":"add_sunscreen"}],"horizon_days":30}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if !eng.lastSim.IncludeTimeline || eng.lastSim.HorizonDays != 30 || len(eng.lastSim.Changes) != 1 {
		t.Fatalf("unexpected simulate input: %+v", eng.lastSim)
	}

	cases := map[error]int{
		fmt.Errorf("%w: 0", types.ErrInvalidHorizon): http.StatusBadRequest,
		types.ErrNoBaselineAvailable:                  http.StatusNotFound,
		types.ErrSnapshotNotFound:                     http.StatusNotFound,
	}
	for err, status := range cases {
		eng.simErr = err
		if rec := do(r, http.MethodPost, "/simulate", `{"horizon_days":0,"include_timeline":false}`); rec.Code != status {
			t.Fatalf("%v: want %d got %d", err, status, rec.Code)
		}
		if eng.lastSim.IncludeTimeline {
			t.Fatalf("include_timeline=false ignored")
		}
	}
}
