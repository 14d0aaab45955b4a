package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/repository"
)

// CourseService lists courses and their telemetry totals.
type CourseService interface {
	List(ctx context.Context) ([]dto.CourseResponse, error)
	Stats(ctx context.Context) (map[string]dto.CourseStats, error)
}

type courseService struct {
	courses   repository.CourseRepository
	telemetry repository.TelemetryRepository
	logger    zerolog.Logger
}

// NewCourseService creates the course service.
func NewCourseService(courses repository.CourseRepository, telemetry repository.TelemetryRepository, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:   courses,
		telemetry: telemetry,
		logger:    logger.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) List(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponseSlice(courses), nil
}

// Stats reports, per course name, the number of submissions and distinct authors.
// Courses without telemetry report zeros.
func (s *courseService) Stats(ctx context.Context) (map[string]dto.CourseStats, error) {
	summaries, err := s.telemetry.CourseSummaries(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]dto.CourseStats, len(summaries))
	for _, summary := range summaries {
		result[summary.Name] = dto.CourseStats{
			TotalExercises: summary.Submissions,
			Students:       summary.Students,
		}
	}

	s.logger.Debug().Int("courses", len(result)).Msg("course stats computed")
	return result, nil
}
