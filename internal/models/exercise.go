package models

import (
	"time"

	"gorm.io/gorm"
)

// ExerciseTag labels exercises of a single course. Slug is the stable key referenced by
// tag trees; Name is the display label and may be renamed by instructors.
type ExerciseTag struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CourseID uint   `gorm:"not null;uniqueIndex:idx_exercise_tags_course_slug" json:"course_id"`
	Slug     string `gorm:"size:255;not null;uniqueIndex:idx_exercise_tags_course_slug" json:"slug"`
	Name     string `gorm:"size:255;not null" json:"name"`
}

// BeforeCreate names new tags after their slug until an instructor renames them.
func (t *ExerciseTag) BeforeCreate(*gorm.DB) error {
	if t.Name == "" {
		t.Name = t.Slug
	}
	return nil
}

// Exercise is a single interactive exercise discovered in a course handout.
type Exercise struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	CourseID  uint          `gorm:"not null;uniqueIndex:idx_exercises_course_slug" json:"course_id"`
	Slug      string        `gorm:"size:255;not null;uniqueIndex:idx_exercises_course_slug" json:"slug"`
	Enabled   bool          `gorm:"not null;default:true" json:"enabled"`
	Tags      []ExerciseTag `gorm:"many2many:exercise_tag_links;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"tags"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TagSlugs lists the slugs of the exercise's tags in their loaded order.
func (e Exercise) TagSlugs() []string {
	slugs := make([]string, 0, len(e.Tags))
	for _, tag := range e.Tags {
		slugs = append(slugs, tag.Slug)
	}
	return slugs
}
