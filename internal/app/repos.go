package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/skintwin-backend/internal/data/repos"
	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

type Repos struct {
	Snapshots repos.SnapshotRepo
	Regions   repos.SnapshotRegionRepo
	Contexts  repos.ContextRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Snapshots: repos.NewSnapshotRepo(db, log),
		Regions:   repos.NewSnapshotRegionRepo(db, log),
		Contexts:  repos.NewContextRepo(db, log),
	}
}
