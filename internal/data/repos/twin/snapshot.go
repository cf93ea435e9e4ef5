package twin

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/platform/dbctx"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

// SnapshotRepo reads and inserts skin_snapshot rows. Snapshots are append-only.
type SnapshotRepo interface {
	Create(dbc dbctx.Context, row *types.SkinSnapshot) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SkinSnapshot, error)
	GetByScanID(dbc dbctx.Context, scanID string) (*types.SkinSnapshot, error)
	GetLatestByUser(dbc dbctx.Context, userID uuid.UUID) (*types.SkinSnapshot, error)
	ListByUserRange(dbc dbctx.Context, userID uuid.UUID, start, end *time.Time) ([]*types.SkinSnapshot, error)
	ListRecentByUser(dbc dbctx.Context, userID uuid.UUID, notAfter time.Time, limit int) ([]*types.SkinSnapshot, error)
	CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo")}
}

func (r *snapshotRepo) Create(dbc dbctx.Context, row *types.SkinSnapshot) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = types.StorageTime(time.Now())
	}
	return dbc.DB(r.db).Omit(clause.Associations).Create(row).Error
}

func (r *snapshotRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SkinSnapshot, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("id = ?", id))
}

func (r *snapshotRepo) GetByScanID(dbc dbctx.Context, scanID string) (*types.SkinSnapshot, error) {
	if scanID == "" {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("scan_id = ?", scanID))
}

func (r *snapshotRepo) GetLatestByUser(dbc dbctx.Context, userID uuid.UUID) (*types.SkinSnapshot, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("taken_at DESC").
		Order("created_at DESC").
		Order("id DESC"))
}

// ListByUserRange returns snapshots ordered by taken_at ascending. Bounds are inclusive.
func (r *snapshotRepo) ListByUserRange(dbc dbctx.Context, userID uuid.UUID, start, end *time.Time) ([]*types.SkinSnapshot, error) {
	var out []*types.SkinSnapshot
	if userID == uuid.Nil {
		return out, nil
	}
	q := dbc.DB(r.db).Where("user_id = ?", userID)
	if start != nil {
		q = q.Where("taken_at >= ?", types.StorageTime(*start))
	}
	if end != nil {
		q = q.Where("taken_at <= ?", types.StorageTime(*end))
	}
	if err := q.Order("taken_at ASC").Order("created_at ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecentByUser returns up to limit snapshots taken at or before notAfter, newest first.
func (r *snapshotRepo) ListRecentByUser(dbc dbctx.Context, userID uuid.UUID, notAfter time.Time, limit int) ([]*types.SkinSnapshot, error) {
	var out []*types.SkinSnapshot
	if userID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ? AND taken_at <= ?", userID, types.StorageTime(notAfter)).
		Order("taken_at DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *snapshotRepo) CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil {
		return 0, nil
	}
	err := dbc.DB(r.db).Model(&types.SkinSnapshot{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *snapshotRepo) first(q *gorm.DB) (*types.SkinSnapshot, error) {
	var out types.SkinSnapshot
	if err := q.Limit(1).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
