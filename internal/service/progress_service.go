package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/models"
	"github.com/noah-isme/handout-api/internal/repository"
	"github.com/noah-isme/handout-api/internal/stats"
)

// ProgressService serves the instructor progress views of a course.
type ProgressService interface {
	StudentsProgress(ctx context.Context, courseName string) (dto.ProgressTableResponse, error)
	Weeks(ctx context.Context, courseName string) ([]dto.WeekResponse, error)
	StudentWeek(ctx context.Context, actor Actor, courseName, weekLabel, username string) (dto.WeeklyMetricsResponse, error)
	WeeklyHistogram(ctx context.Context, courseName, weekLabel string) (dto.HistogramResponse, error)
}

type progressService struct {
	courses   repository.CourseRepository
	exercises repository.ExerciseRepository
	telemetry repository.TelemetryRepository
	users     repository.UserRepository
	logger    zerolog.Logger
}

// NewProgressService creates the progress service.
func NewProgressService(courses repository.CourseRepository, exercises repository.ExerciseRepository, telemetry repository.TelemetryRepository, users repository.UserRepository, logger zerolog.Logger) ProgressService {
	return &progressService{
		courses:   courses,
		exercises: exercises,
		telemetry: telemetry,
		users:     users,
		logger:    logger.With().Str("component", "progress_service").Logger(),
	}
}

// StudentsProgress builds the table of every student's best score per exercise, along
// with the exercises carrying each tag name.
func (s *progressService) StudentsProgress(ctx context.Context, courseName string) (dto.ProgressTableResponse, error) {
	course, err := s.courses.GetByName(ctx, courseName)
	if err != nil {
		return dto.ProgressTableResponse{}, translateNotFound(err, ErrCourseNotFound)
	}

	scores, err := s.telemetry.MaxPointsByAuthorAndExercise(ctx, course.ID)
	if err != nil {
		return dto.ProgressTableResponse{}, err
	}

	exercises, err := s.exercises.ListByCourseWithTags(ctx, course.ID)
	if err != nil {
		return dto.ProgressTableResponse{}, err
	}

	table := stats.BuildProgressTable(scores)
	return dto.NewProgressTableResponse(table, stats.ExerciseSlugsByTagName(exercises)), nil
}

// Weeks lists the reporting weeks of the course. Courses without a date window have none.
func (s *progressService) Weeks(ctx context.Context, courseName string) ([]dto.WeekResponse, error) {
	course, err := s.courses.GetByName(ctx, courseName)
	if err != nil {
		return nil, translateNotFound(err, ErrCourseNotFound)
	}

	return dto.NewWeekResponseSlice(courseWeeks(course)), nil
}

// StudentWeek summarises the student's submissions during the labelled week. Students
// may only read their own week.
func (s *progressService) StudentWeek(ctx context.Context, actor Actor, courseName, weekLabel, username string) (dto.WeeklyMetricsResponse, error) {
	course, week, err := s.resolveWeek(ctx, courseName, weekLabel)
	if err != nil {
		return dto.WeeklyMetricsResponse{}, err
	}

	student, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return dto.WeeklyMetricsResponse{}, translateNotFound(err, ErrStudentNotFound)
	}
	if !models.IsStaff(actor.Role) && actor.ID != student.ID {
		return dto.WeeklyMetricsResponse{}, ErrForbidden
	}

	from, to := stats.WeekRange(week.Start)
	records, err := s.telemetry.ListForAuthorInRange(ctx, student.ID, course.ID, from, to)
	if err != nil {
		return dto.WeeklyMetricsResponse{}, err
	}

	submissions := make([]stats.WeeklySubmission, 0, len(records))
	for _, record := range records {
		names := make([]string, 0, len(record.Exercise.Tags))
		for _, tag := range record.Exercise.Tags {
			names = append(names, tag.Name)
		}
		submissions = append(submissions, stats.WeeklySubmission{
			ExerciseSlug:   record.Exercise.Slug,
			Points:         record.Points,
			SubmissionDate: record.SubmissionDate,
			TagNames:       names,
		})
	}

	return dto.NewWeeklyMetricsResponse(student.Username, week.Label, stats.ComputeWeeklyMetrics(submissions)), nil
}

// WeeklyHistogram buckets every student by the number of distinct exercises submitted
// during the labelled week. Students without submissions fall in bucket "0".
func (s *progressService) WeeklyHistogram(ctx context.Context, courseName, weekLabel string) (dto.HistogramResponse, error) {
	course, week, err := s.resolveWeek(ctx, courseName, weekLabel)
	if err != nil {
		return dto.HistogramResponse{}, err
	}

	students, err := s.users.ListStudents(ctx)
	if err != nil {
		return dto.HistogramResponse{}, err
	}

	from, to := stats.WeekRange(week.Start)
	counts, err := s.telemetry.CountDistinctExercisesByAuthor(ctx, course.ID, from, to)
	if err != nil {
		return dto.HistogramResponse{}, err
	}

	perStudent := make([]int, 0, len(students))
	for _, student := range students {
		perStudent = append(perStudent, counts[student.ID])
	}

	return dto.HistogramResponse{Week: week.Label, Buckets: stats.ExerciseCountHistogram(perStudent)}, nil
}

func (s *progressService) resolveWeek(ctx context.Context, courseName, weekLabel string) (models.Course, stats.Week, error) {
	course, err := s.courses.GetByName(ctx, courseName)
	if err != nil {
		return models.Course{}, stats.Week{}, translateNotFound(err, ErrCourseNotFound)
	}

	for _, week := range courseWeeks(course) {
		if week.Label == weekLabel {
			return course, week, nil
		}
	}

	s.logger.Debug().Str("course", course.Name).Str("week", weekLabel).Msg("unknown week label")
	return models.Course{}, stats.Week{}, ErrWeekNotFound
}

func courseWeeks(course models.Course) []stats.Week {
	if !course.HasWindow() {
		return []stats.Week{}
	}
	return stats.GenerateWeeks(*course.StartDate, *course.EndDate)
}
