package twin

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/platform/dbctx"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

// ContextRepo is the read-only view over the environment and routine streams.
type ContextRepo interface {
	// FindInWindow returns the user's records of the given kind within
	// center±window, closest first; equal distances put the most recently
	// created record first.
	FindInWindow(dbc dbctx.Context, userID uuid.UUID, kind types.ContextKind, center time.Time, window time.Duration) ([]types.ContextCandidate, error)
	GetEnvironment(dbc dbctx.Context, id uuid.UUID) (*types.EnvironmentContext, error)
	GetRoutine(dbc dbctx.Context, id uuid.UUID) (*types.RoutineContext, error)
}

type contextRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContextRepo(db *gorm.DB, baseLog *logger.Logger) ContextRepo {
	return &contextRepo{db: db, log: baseLog.With("repo", "ContextRepo")}
}

type candidateRow struct {
	ID        uuid.UUID
	At        time.Time
	CreatedAt time.Time
}

func (r *contextRepo) FindInWindow(dbc dbctx.Context, userID uuid.UUID, kind types.ContextKind, center time.Time, window time.Duration) ([]types.ContextCandidate, error) {
	if userID == uuid.Nil || window < 0 {
		return nil, nil
	}
	var (
		table  string
		column string
	)
	switch kind {
	case types.ContextEnvironment:
		table, column = types.EnvironmentContext{}.TableName(), "recorded_at"
	case types.ContextRoutine:
		table, column = types.RoutineContext{}.TableName(), "executed_at"
	default:
		return nil, fmt.Errorf("unknown context kind %q", kind)
	}

	lower := types.StorageTime(center.Add(-window))
	upper := types.StorageTime(center.Add(window))

	var rows []candidateRow
	if err := dbc.DB(r.db).
		Table(table).
		Select(fmt.Sprintf("id, %s AS at, created_at", column)).
		Where(fmt.Sprintf("user_id = ? AND %s >= ? AND %s <= ?", column, column), userID, lower, upper).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]types.ContextCandidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.ContextCandidate{ID: row.ID, At: row.At, CreatedAt: row.CreatedAt})
	}
	types.SortCandidates(out, center)
	return out, nil
}

func (r *contextRepo) GetEnvironment(dbc dbctx.Context, id uuid.UUID) (*types.EnvironmentContext, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.EnvironmentContext
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *contextRepo) GetRoutine(dbc dbctx.Context, id uuid.UUID) (*types.RoutineContext, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.RoutineContext
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
