package db

import (
	"fmt"

	"github.com/ayusetu/setu/internal/config"
	"github.com/ayusetu/setu/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Batch{},
		&models.BatchLink{},
		&models.BatchHistory{},
		&models.Notification{},
		&models.UserRole{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedRoles upserts UserRole rows from configuration so the recall
// fan-out has a stakeholder directory to notify.
func SeedRoles(db *gorm.DB, users []config.UserConfig) error {
	for _, u := range users {
		role := models.UserRole{
			UserID: u.ID,
			Role:   u.Role,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).Create(&role).Error
		if err != nil {
			return fmt.Errorf("db: seed role for %q: %w", u.ID, err)
		}
	}
	return nil
}
