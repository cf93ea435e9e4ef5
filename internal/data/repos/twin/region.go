package twin

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/platform/dbctx"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

type SnapshotRegionRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.SkinRegionState) error
	ListBySnapshotIDs(dbc dbctx.Context, snapshotIDs []uuid.UUID) (map[uuid.UUID][]*types.SkinRegionState, error)
}

type snapshotRegionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRegionRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRegionRepo {
	return &snapshotRegionRepo{db: db, log: baseLog.With("repo", "SnapshotRegionRepo")}
}

func (r *snapshotRegionRepo) CreateBatch(dbc dbctx.Context, rows []*types.SkinRegionState) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).CreateInBatches(rows, 100).Error
}

// ListBySnapshotIDs groups region rows by snapshot, each group ordered by position.
func (r *snapshotRegionRepo) ListBySnapshotIDs(dbc dbctx.Context, snapshotIDs []uuid.UUID) (map[uuid.UUID][]*types.SkinRegionState, error) {
	out := map[uuid.UUID][]*types.SkinRegionState{}
	if len(snapshotIDs) == 0 {
		return out, nil
	}
	var rows []*types.SkinRegionState
	if err := dbc.DB(r.db).
		Where("snapshot_id IN ?", snapshotIDs).
		Order("snapshot_id ASC").
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SnapshotID] = append(out[row.SnapshotID], row)
	}
	return out, nil
}
