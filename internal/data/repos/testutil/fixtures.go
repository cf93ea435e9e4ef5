package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
)

func SeedEnvironment(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, recordedAt time.Time, uv float64) *types.EnvironmentContext {
	tb.Helper()
	humidity := 45.0
	row := &types.EnvironmentContext{
		ID:              uuid.New(),
		UserID:          userID,
		RecordedAt:      types.StorageTime(recordedAt),
		UVIndex:         &uv,
		HumidityPercent: &humidity,
		Season:          "summer",
		DataSource:      "test",
		CreatedAt:       types.StorageTime(time.Now()),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed environment: %v", err)
	}
	return row
}

func SeedRoutine(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, executedAt time.Time, routineType string) *types.RoutineContext {
	tb.Helper()
	row := &types.RoutineContext{
		ID:          uuid.New(),
		UserID:      userID,
		RoutineType: routineType,
		RoutineName: routineType + " routine",
		ExecutedAt:  types.StorageTime(executedAt),
		Completed:   true,
		CreatedAt:   types.StorageTime(time.Now()),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed routine: %v", err)
	}
	return row
}

// SeedSnapshot inserts a bare snapshot row with every dimension set to score.
func SeedSnapshot(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, takenAt time.Time, score float64) *types.SkinSnapshot {
	tb.Helper()
	v := types.NeutralVector()
	for _, d := range types.Dimensions {
		v.Set(d, score)
	}
	row := &types.SkinSnapshot{
		ID:           uuid.New(),
		UserID:       userID,
		TakenAt:      types.StorageTime(takenAt),
		Vector:       v,
		SkinMood:     types.MoodBalanced,
		ModelVersion: "test",
		Confidence:   0.9,
		CreatedAt:    types.StorageTime(time.Now()),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed snapshot: %v", err)
	}
	return row
}

func PtrString(v string) *string { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
