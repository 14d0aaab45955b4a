package models

import "time"

// Course groups exercises and tags under a unique name. StartDate and EndDate bound the
// period in which submissions count towards date-based dashboards.
type Course struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;uniqueIndex;not null" json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HasWindow reports whether both date bounds are set.
func (c Course) HasWindow() bool {
	return c.StartDate != nil && c.EndDate != nil
}
