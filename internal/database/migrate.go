package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/handout-api/internal/models"
)

// Migrate creates or updates the schema of every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.ExerciseTag{},
		&models.Exercise{},
		&models.TelemetryData{},
	)
}
