package dto

import (
	"time"

	"github.com/noah-isme/handout-api/internal/models"
)

// CourseResponse describes a course.
type CourseResponse struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// CourseStats summarises a course's telemetry. TotalExercises counts submissions.
type CourseStats struct {
	TotalExercises int64 `json:"total_exercises"`
	Students       int64 `json:"students"`
}

// NewCourseResponse converts a course model.
func NewCourseResponse(course models.Course) CourseResponse {
	return CourseResponse{
		ID:        course.ID,
		Name:      course.Name,
		StartDate: course.StartDate,
		EndDate:   course.EndDate,
	}
}

// NewCourseResponseSlice converts courses.
func NewCourseResponseSlice(courses []models.Course) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course))
	}
	return responses
}
