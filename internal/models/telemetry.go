package models

import (
	"time"

	"gorm.io/datatypes"
)

// TelemetryData is a single exercise attempt submitted by a student. Last marks the most
// recent submission of an (author, exercise) pair and is maintained by the write path;
// a partial unique index rejects a second last row for the pair.
type TelemetryData struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	AuthorID       uint           `gorm:"not null;index:idx_telemetry_author_exercise;index:idx_telemetry_single_last,unique,where:is_last = true" json:"author_id"`
	ExerciseID     uint           `gorm:"not null;index:idx_telemetry_author_exercise;index:idx_telemetry_single_last,unique,where:is_last = true" json:"exercise_id"`
	Points         float64        `gorm:"not null;default:0" json:"points"`
	SubmissionDate time.Time      `gorm:"not null;index" json:"submission_date"`
	Log            datatypes.JSON `json:"log"`
	Last           bool           `gorm:"column:is_last;not null;default:false;index" json:"last"`
	Author         User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Exercise       Exercise       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// TableName keeps the historical table name.
func (TelemetryData) TableName() string {
	return "telemetry_data"
}
