package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/skintwin-backend/internal/data/repos/twin"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

type SnapshotRepo = twin.SnapshotRepo
type SnapshotRegionRepo = twin.SnapshotRegionRepo
type ContextRepo = twin.ContextRepo

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return twin.NewSnapshotRepo(db, baseLog)
}
func NewSnapshotRegionRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRegionRepo {
	return twin.NewSnapshotRegionRepo(db, baseLog)
}
func NewContextRepo(db *gorm.DB, baseLog *logger.Logger) ContextRepo {
	return twin.NewContextRepo(db, baseLog)
}
