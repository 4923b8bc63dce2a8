package db

import (
	"fmt"

	"github.com/zulandar/leadyard/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model Leadyard persists.
func AllModels() []interface{} {
	return []interface{}{
		&models.Lead{},
		&models.Preference{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
