package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/http/response"
	twinmod "github.com/yungbote/skintwin-backend/internal/modules/twin"
	"github.com/yungbote/skintwin-backend/internal/platform/apierr"
	"github.com/yungbote/skintwin-backend/internal/platform/ctxutil"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

const maxPayloadBytes = 4 << 20

// TwinEngine is the subset of the twin engine the handler serves.
type TwinEngine interface {
	Build(ctx context.Context, in twinmod.BuildInput) (twinmod.BuildResult, error)
	GetCurrentSnapshot(ctx context.Context, userID uuid.UUID) (*types.SkinSnapshot, error)
	GetTimeline(ctx context.Context, in twinmod.TimelineInput) (types.Timeline, error)
	Simulate(ctx context.Context, in twinmod.SimulateInput) (*types.ScenarioSimulation, error)
}

type TwinHandlerDeps struct {
	Log    *logger.Logger
	Engine TwinEngine
	// DebugWarnings includes ingestion warnings in snapshot responses.
	DebugWarnings bool
}

type TwinHandler struct {
	log           *logger.Logger
	engine        TwinEngine
	debugWarnings bool
}

func NewTwinHandler(deps TwinHandlerDeps) *TwinHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &TwinHandler{
		log:           log.With("handler", "TwinHandler"),
		engine:        deps.Engine,
		debugWarnings: deps.DebugWarnings,
	}
}

type createSnapshotRequest struct {
	ScanID   string          `json:"scan_id"`
	TakenAt  *time.Time      `json:"taken_at"`
	Analysis json.RawMessage `json:"analysis"`
}

type snapshotResponse struct {
	Snapshot  *types.SkinSnapshot `json:"snapshot"`
	Duplicate bool                `json:"duplicate,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
}

// POST /api/digital-twin/snapshot
func (h *TwinHandler) CreateSnapshot(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(body) > maxPayloadBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Errorf("payload exceeds %d bytes", maxPayloadBytes))
		return
	}
	var req createSnapshotRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Analysis) == 0 || string(req.Analysis) == "null" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("missing analysis"))
		return
	}

	in := twinmod.BuildInput{UserID: userID, ScanID: req.ScanID, Payload: req.Analysis}
	if req.TakenAt != nil {
		in.TakenAt = *req.TakenAt
	}
	res, err := h.engine.Build(c.Request.Context(), in)
	if err != nil {
		h.respondEngineError(c, "build_snapshot_failed", err)
		return
	}
	out := snapshotResponse{Snapshot: res.Snapshot, Duplicate: res.Duplicate}
	if h.debugWarnings {
		out.Warnings = res.Warnings
	}
	if res.Duplicate {
		response.RespondOK(c, out)
		return
	}
	response.RespondCreated(c, out)
}

// GET /api/digital-twin/current
func (h *TwinHandler) GetCurrent(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	snap, err := h.engine.GetCurrentSnapshot(c.Request.Context(), userID)
	if err != nil {
		h.respondEngineError(c, "load_snapshot_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"snapshot": snap})
}

// GET /api/digital-twin/timeline?start_at=&end_at=&max_points=
func (h *TwinHandler) GetTimeline(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	start, err := parseTimeQuery(c, "start_at")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_start_at", err)
		return
	}
	end, err := parseTimeQuery(c, "end_at")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_end_at", err)
		return
	}
	maxPoints := 200
	if raw := strings.TrimSpace(c.Query("max_points")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_max_points", err)
			return
		}
		maxPoints = n
	}

	tl, err := h.engine.GetTimeline(c.Request.Context(), twinmod.TimelineInput{
		UserID:    userID,
		Start:     start,
		End:       end,
		MaxPoints: maxPoints,
	})
	if err != nil {
		h.respondEngineError(c, "load_timeline_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"timeline": tl})
}

type simulateRequest struct {
	BaseSnapshotID  *uuid.UUID             `json:"base_snapshot_id"`
	Changes         []types.ScenarioChange `json:"changes"`
	HorizonDays     int                    `json:"horizon_days"`
	IncludeTimeline *bool                  `json:"include_timeline"`
}

// POST /api/digital-twin/simulate
func (h *TwinHandler) Simulate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	include := true
	if req.IncludeTimeline != nil {
		include = *req.IncludeTimeline
	}
	sim, err := h.engine.Simulate(c.Request.Context(), twinmod.SimulateInput{
		UserID:          userID,
		BaseSnapshotID:  req.BaseSnapshotID,
		Changes:         req.Changes,
		HorizonDays:     req.HorizonDays,
		IncludeTimeline: include,
	})
	if err != nil {
		h.respondEngineError(c, "simulate_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"simulation": sim})
}

var engineErrorRules = []apierr.Rule{
	{Target: types.ErrMalformedAnalysis, Status: http.StatusUnprocessableEntity, Code: "malformed_analysis"},
	{Target: types.ErrDuplicateSnapshot, Status: http.StatusConflict, Code: "duplicate_snapshot"},
	{Target: types.ErrSnapshotNotFound, Status: http.StatusNotFound, Code: "snapshot_not_found"},
	{Target: types.ErrNoBaselineAvailable, Status: http.StatusNotFound, Code: "no_baseline_available"},
	{Target: types.ErrInvalidHorizon, Status: http.StatusBadRequest, Code: "invalid_horizon"},
	{Target: types.ErrInvalidMaxPoints, Status: http.StatusBadRequest, Code: "invalid_max_points"},
	{Target: types.ErrInvalidRange, Status: http.StatusBadRequest, Code: "invalid_range"},
	{Target: context.DeadlineExceeded, Status: http.StatusGatewayTimeout, Code: "timeout"},
}

func (h *TwinHandler) respondEngineError(c *gin.Context, fallbackCode string, err error) {
	ae := apierr.Classify(err, engineErrorRules, fallbackCode)
	if !ae.Public() {
		h.log.Error("twin request failed", "path", c.FullPath(), "code", ae.Code, "error", err)
		response.RespondError(c, ae.Status, ae.Code, errors.New("internal error"))
		return
	}
	response.RespondError(c, ae.Status, ae.Code, ae)
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC3339: %w", key, err)
	}
	return &t, nil
}
