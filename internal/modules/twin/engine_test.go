package twin_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/skintwin-backend/internal/data/aggregates"
	"github.com/yungbote/skintwin-backend/internal/data/repos"
	"github.com/yungbote/skintwin-backend/internal/data/repos/testutil"
	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin"
	"github.com/yungbote/skintwin-backend/internal/modules/twin/steps"
	"github.com/yungbote/skintwin-backend/internal/platform/dbctx"
)

func newEngine(t *testing.T, db *gorm.DB, table *steps.AdjustmentTable) *twin.Engine {
	t.Helper()
	return newEngineWithContexts(t, db, table, repos.NewContextRepo(db, testutil.Logger(t)))
}

func newEngineWithContexts(t *testing.T, db *gorm.DB, table *steps.AdjustmentTable, contexts repos.ContextRepo) *twin.Engine {
	t.Helper()
	log := testutil.Logger(t)
	snaps := repos.NewSnapshotRepo(db, log)
	regions := repos.NewSnapshotRegionRepo(db, log)
	return twin.New(twin.EngineDeps{
		DB:        db,
		Log:       log,
		Snapshots: snaps,
		Regions:   regions,
		Contexts:  contexts,
		SnapshotAgg: aggregates.NewSnapshotAggregate(aggregates.SnapshotAggregateDeps{
			Base:      aggregates.BaseDeps{DB: db, Log: log},
			Snapshots: snaps,
			Regions:   regions,
		}),
		Adjustments: steps.StaticAdjustmentSource{Table: table},
	})
}

func payload(t *testing.T, globals map[string]any, regions map[string]any) json.RawMessage {
	t.Helper()
	body := map[string]any{"global_metrics": globals, "model_version": "vision-3.2", "confidence": 0.87}
	if regions != nil {
		body["regions"] = regions
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw
}

func cleanupScan(t *testing.T, db *gorm.DB, scanID string) {
	t.Cleanup(func() {
		var ids []uuid.UUID
		db.Model(&types.SkinSnapshot{}).Where("scan_id = ?", scanID).Pluck("id", &ids)
		if len(ids) > 0 {
			db.Where("snapshot_id IN ?", ids).Delete(&types.SkinRegionState{})
			db.Where("id IN ?", ids).Delete(&types.SkinSnapshot{})
		}
	})
}

func TestBuildLinksContextAndClassifiesMood(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	userID := uuid.New()
	takenAt := time.Date(2026, 7, 14, 12, 0, 0, 0, time.UTC)

	near := testutil.SeedEnvironment(t, ctx, db, userID, takenAt.Add(-time.Hour), 9)
	testutil.SeedEnvironment(t, ctx, db, userID, takenAt.Add(3*time.Hour), 2)
	routine := testutil.SeedRoutine(t, ctx, db, userID, takenAt.Add(-3*time.Hour), "AM")

	eng := newEngine(t, db, nil)
	res, err := eng.Build(ctx, twin.BuildInput{
		UserID:  userID,
		Payload: payload(t, map[string]any{"pigmentation_index": 72}, nil),
		TakenAt: takenAt,
	})
	require.NoError(t, err)
	snap := res.Snapshot
	require.NotNil(t, snap.EnvironmentContextID)
	assert.Equal(t, near.ID, *snap.EnvironmentContextID)
	require.NotNil(t, snap.RoutineContextID)
	assert.Equal(t, routine.ID, *snap.RoutineContextID)
	assert.Equal(t, types.MoodUVOverexposed, snap.SkinMood)
	assert.Equal(t, "vision-3.2", snap.ModelVersion)
	assert.Nil(t, snap.ScanID)
	assert.Len(t, res.Warnings, 7)
	assert.False(t, res.Duplicate)
}

func TestBuildWithoutContextIsBalanced(t *testing.T) {
	db := testutil.DB(t)
	res, err := newEngine(t, db, nil).Build(context.Background(), twin.BuildInput{
		UserID:  uuid.New(),
		Payload: payload(t, map[string]any{"hydration_index": 60}, nil),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot.EnvironmentContextID)
	assert.Nil(t, res.Snapshot.RoutineContextID)
	assert.Equal(t, types.MoodBalanced, res.Snapshot.SkinMood)
}

func TestBuildMalformedWritesNothing(t *testing.T) {
	db := testutil.DB(t)
	userID := uuid.New()
	eng := newEngine(t, db, nil)

	_, err := eng.Build(context.Background(), twin.BuildInput{
		UserID:  userID,
		ScanID:  "scan-" + uuid.NewString(),
		Payload: json.RawMessage(`{"regions":{"forehead":{"metrics":{"texture_score":40}}}}`),
	})
	require.True(t, errors.Is(err, types.ErrMalformedAnalysis), "got %v", err)

	_, err = eng.GetCurrentSnapshot(context.Background(), userID)
	assert.True(t, errors.Is(err, types.ErrSnapshotNotFound))
}

func TestBuildIsIdempotentPerScan(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	userID := uuid.New()
	scan := "scan-" + uuid.NewString()
	cleanupScan(t, db, scan)
	eng := newEngine(t, db, nil)

	in := twin.BuildInput{
		UserID:  userID,
		ScanID:  scan,
		Payload: payload(t, map[string]any{"hydration_index": 80}, map[string]any{"forehead": map[string]any{"metrics": map[string]any{"texture_score": 40}}}),
	}
	first, err := eng.Build(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := eng.Build(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Snapshot.ID, second.Snapshot.ID)
	assert.Len(t, second.Snapshot.Regions, 1)

	count, err := repos.NewSnapshotRepo(db, testutil.Logger(t)).CountByUser(dbctx.Context{Ctx: ctx}, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = eng.Build(ctx, twin.BuildInput{UserID: uuid.New(), ScanID: scan, Payload: in.Payload})
	assert.True(t, errors.Is(err, types.ErrDuplicateSnapshot), "got %v", err)
}

func TestConcurrentBuildsShareOneSnapshot(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	userID := uuid.New()
	const scan = "scan-123"
	cleanupScan(t, db, scan)

	// Separate engines stand in for separate server instances.
	engines := []*twin.Engine{newEngine(t, db, nil), newEngine(t, db, nil), newEngine(t, db, nil)}
	raw := payload(t, map[string]any{"hydration_index": 50}, nil)

	const callers = 6
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := engines[i%len(engines)].Build(ctx, twin.BuildInput{UserID: userID, ScanID: scan, Payload: raw})
			errs[i] = err
			if err == nil {
				ids[i] = res.Snapshot.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, ids[0], ids[i], "caller %d", i)
	}
	count, err := repos.NewSnapshotRepo(db, testutil.Logger(t)).CountByUser(dbctx.Context{Ctx: ctx}, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

// gatedContexts holds context lookups until release is closed or the
// lookup's context is done.
type gatedContexts struct {
	repos.ContextRepo
	entered     chan struct{}
	enteredOnce sync.Once
	release     chan struct{}
}

func (g *gatedContexts) FindInWindow(dbc dbctx.Context, userID uuid.UUID, kind types.ContextKind, center time.Time, window time.Duration) ([]types.ContextCandidate, error) {
	g.enteredOnce.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-dbc.Ctx.Done():
		return nil, dbc.Ctx.Err()
	}
	return g.ContextRepo.FindInWindow(dbc, userID, kind, center, window)
}

func TestCancelledBuildDoesNotFailWaitingCaller(t *testing.T) {
	db := testutil.DB(t)
	userID := uuid.New()
	const scan = "scan-cancelled-leader"
	cleanupScan(t, db, scan)

	gate := &gatedContexts{
		ContextRepo: repos.NewContextRepo(db, testutil.Logger(t)),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	eng := newEngineWithContexts(t, db, nil, gate)
	raw := payload(t, map[string]any{"hydration_index": 55}, nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := eng.Build(leaderCtx, twin.BuildInput{UserID: userID, ScanID: scan, Payload: raw})
		leaderErr <- err
	}()
	<-gate.entered

	type outcome struct {
		res twin.BuildResult
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		res, err := eng.Build(context.Background(), twin.BuildInput{UserID: userID, ScanID: scan, Payload: raw})
		follower <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.True(t, errors.Is(<-leaderErr, context.Canceled))

	close(gate.release)
	got := <-follower
	require.NoError(t, got.err)
	require.NotNil(t, got.res.Snapshot)
	assert.Equal(t, 55.0, got.res.Snapshot.Vector.HydrationIndex)

	count, err := repos.NewSnapshotRepo(db, testutil.Logger(t)).CountByUser(dbctx.Context{Ctx: context.Background()}, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSimulateWithNilAdjustmentTable(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	userID := uuid.New()
	testutil.SeedSnapshot(t, ctx, db, userID, time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC), 45)

	eng := twin.New(twin.EngineDeps{
		DB:          db,
		Log:         testutil.Logger(t),
		Snapshots:   repos.NewSnapshotRepo(db, testutil.Logger(t)),
		Regions:     repos.NewSnapshotRegionRepo(db, testutil.Logger(t)),
		Contexts:    repos.NewContextRepo(db, testutil.Logger(t)),
		Adjustments: nilTableSource{},
	})
	sim, err := eng.Simulate(ctx, twin.SimulateInput{
		UserID:      userID,
		Changes:     []types.ScenarioChange{{Kind: types.ChangeRoutine, Key: "add_moisturizer"}},
		HorizonDays: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, steps.EmptyAdjustmentTable().Version, sim.AdjustmentVersion)
	assert.Equal(t, []string{"unknown_change:add_moisturizer"}, sim.Warnings)
}

type nilTableSource struct{}

func (nilTableSource) Load(context.Context) (*steps.AdjustmentTable, error) { return nil, nil }

func TestCurrentSnapshotRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	userID := uuid.New()
	takenAt := time.Date(2026, 3, 2, 9, 30, 0, 123456000, time.UTC)
	testutil.SeedEnvironment(t, ctx, db, userID, takenAt.Add(30*time.Minute), 4)
	eng := newEngine(t, db, nil)

	_, err := eng.Build(ctx, twin.BuildInput{
		UserID:  userID,
		Payload: payload(t, map[string]any{"hydration_index": 20}, nil),
		TakenAt: takenAt.Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	built, err := eng.Build(ctx, twin.BuildInput{
		UserID: userID,
		Payload: payload(t,
			map[string]any{"hydration_index": 61.25, "oiliness_level": 33, "barrier_risk": 12.5},
			map[string]any{
				"forehead":   map[string]any{"metrics": map[string]any{"texture_score": 40}, "bounding_box": map[string]any{"x": 0.1, "y": 0.05, "width": 0.8, "height": 0.2}},
				"Left Cheek": map[string]any{"metrics": map[string]any{"redness": 12}, "concerns": []string{"dryness"}},
				"jawline":    map[string]any{"metrics": map[string]any{"acne": 3}},
			}),
		TakenAt: takenAt,
	})
	require.NoError(t, err)

	current, err := eng.GetCurrentSnapshot(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, built.Snapshot.ID, current.ID)
	require.NotNil(t, current.Environment)

	want, err := json.Marshal(built.Snapshot)
	require.NoError(t, err)
	got, err := json.Marshal(current)
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(got))
}

func TestTimelineThroughEngine(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	userID := uuid.New()
	eng := newEngine(t, db, nil)
	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	// built out of order; the timeline follows taken_at
	for _, i := range []int{2, 0, 1} {
		_, err := eng.Build(ctx, twin.BuildInput{
			UserID:  userID,
			Payload: payload(t, map[string]any{"hydration_index": 40 + 15*i}, nil),
			TakenAt: base.AddDate(0, 0, 7*i),
		})
		require.NoError(t, err)
	}

	tl, err := eng.GetTimeline(ctx, twin.TimelineInput{UserID: userID, MaxPoints: 3})
	require.NoError(t, err)
	require.Len(t, tl.Points, 3)
	assert.False(t, tl.Downsampled)
	assert.Equal(t, 40.0, tl.Points[0].Vector.HydrationIndex)
	require.Len(t, tl.Deltas, 2)
	assert.Equal(t, 15.0, tl.Deltas[0].Changes[types.HydrationIndex])
	assert.Equal(t, 15.0, tl.Deltas[1].Changes[types.HydrationIndex])
	assert.Equal(t, types.TrendImproving, tl.Trends[types.HydrationIndex])

	end := base.AddDate(0, 0, 7)
	ranged, err := eng.GetTimeline(ctx, twin.TimelineInput{UserID: userID, End: &end})
	require.NoError(t, err)
	assert.Len(t, ranged.Points, 2)

	_, err = eng.GetTimeline(ctx, twin.TimelineInput{UserID: userID, MaxPoints: 1001})
	assert.True(t, errors.Is(err, types.ErrInvalidMaxPoints))

	empty, err := eng.GetTimeline(ctx, twin.TimelineInput{UserID: uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, empty.Points)
}

func TestSimulateHorizonAndBaseline(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	userID := uuid.New()
	eng := newEngine(t, db, nil)

	for _, h := range []int{0, 366} {
		_, err := eng.Simulate(ctx, twin.SimulateInput{UserID: userID, HorizonDays: h})
		assert.True(t, errors.Is(err, types.ErrInvalidHorizon), "horizon %d: %v", h, err)
	}

	_, err := eng.Simulate(ctx, twin.SimulateInput{UserID: userID, HorizonDays: 30})
	assert.True(t, errors.Is(err, types.ErrNoBaselineAvailable), "got %v", err)

	other := testutil.SeedSnapshot(t, ctx, db, uuid.New(), time.Now(), 50)
	_, err = eng.Simulate(ctx, twin.SimulateInput{UserID: userID, BaseSnapshotID: &other.ID, HorizonDays: 30})
	assert.True(t, errors.Is(err, types.ErrSnapshotNotFound), "got %v", err)

	missing := uuid.New()
	_, err = eng.Simulate(ctx, twin.SimulateInput{UserID: userID, BaseSnapshotID: &missing, HorizonDays: 30})
	assert.True(t, errors.Is(err, types.ErrSnapshotNotFound), "got %v", err)

	testutil.SeedSnapshot(t, ctx, db, userID, time.Now(), 50)
	for _, h := range []int{1, 365} {
		sim, err := eng.Simulate(ctx, twin.SimulateInput{UserID: userID, HorizonDays: h, IncludeTimeline: true})
		require.NoError(t, err, "horizon %d", h)
		assert.Len(t, sim.Timeline, h+1)
		for i := 1; i < len(sim.Timeline); i++ {
			assert.LessOrEqual(t, sim.Timeline[i].Confidence, sim.Timeline[i-1].Confidence)
		}
	}
}

func TestSimulateUsesHistoryAndAdjustments(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	userID := uuid.New()
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	first := testutil.SeedSnapshot(t, ctx, db, userID, start, 40)
	testutil.SeedSnapshot(t, ctx, db, userID, start.AddDate(0, 0, 7), 47)
	latest := testutil.SeedSnapshot(t, ctx, db, userID, start.AddDate(0, 0, 14), 54)

	table := &steps.AdjustmentTable{
		Version: "v-test",
		Entries: []steps.AdjustmentEntry{{
			Kind:  types.ChangeRoutine,
			Key:   "add_moisturizer",
			Shift: map[types.Dimension]float64{types.HydrationIndex: 5},
		}},
	}
	eng := newEngine(t, db, table)

	sim, err := eng.Simulate(ctx, twin.SimulateInput{
		UserID:      userID,
		Changes:     []types.ScenarioChange{{Kind: types.ChangeRoutine, Key: "add_moisturizer"}, {Kind: types.ChangeEnvironment, Key: "move_to_mars"}},
		HorizonDays: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, latest.ID, sim.BaseSnapshotID)
	assert.Equal(t, 3, sim.HistoryPoints)
	assert.Equal(t, "v-test", sim.AdjustmentVersion)
	assert.InDelta(t, 1.0, sim.Slopes[types.HydrationIndex], 1e-9)
	assert.InDelta(t, 54+10+5, sim.ExpectedVector.HydrationIndex, 1e-9)
	assert.InDelta(t, 64, sim.ExpectedVector.BarrierRisk, 1e-9)
	assert.Equal(t, []string{"unknown_change:move_to_mars"}, sim.Warnings)
	assert.Nil(t, sim.Timeline)
	assert.InDelta(t, steps.ConfidenceFloor, sim.FinalConfidence, 1e-12)

	fromFirst, err := eng.Simulate(ctx, twin.SimulateInput{UserID: userID, BaseSnapshotID: &first.ID, HorizonDays: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, fromFirst.HistoryPoints)
	assert.Equal(t, 0.0, fromFirst.Slopes[types.HydrationIndex])
	assert.Equal(t, 40.0, fromFirst.ExpectedVector.HydrationIndex)
	assert.NotNil(t, fromFirst.Changes)
}
