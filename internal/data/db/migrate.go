package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Externally-owned context streams (read-only to the engine)
		&twin.EnvironmentContext{},
		&twin.RoutineContext{},

		// Digital twin
		&twin.SkinSnapshot{},
		&twin.SkinRegionState{},
	)
}
