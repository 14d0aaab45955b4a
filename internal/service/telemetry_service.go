package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/models"
	"github.com/noah-isme/handout-api/internal/observability"
	"github.com/noah-isme/handout-api/internal/repository"
)

const defaultSubmissionPoints = 1.0

// TelemetryService records exercise submissions and answers lookups.
type TelemetryService interface {
	Submit(ctx context.Context, authorID uint, request dto.TelemetrySubmitRequest) (dto.TelemetryResponse, error)
	Answers(ctx context.Context, authorID uint, query dto.AnswersQuery) ([]dto.TelemetryResponse, error)
	AllStudentsAnswers(ctx context.Context, query dto.AllAnswersQuery) ([]dto.TelemetryResponse, error)
	List(ctx context.Context, query dto.TelemetryListQuery) ([]dto.TelemetryResponse, int64, error)
}

type telemetryService struct {
	courses   repository.CourseRepository
	exercises repository.ExerciseRepository
	telemetry repository.TelemetryRepository
	publisher TelemetryPublisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewTelemetryService creates the telemetry service. publisher may be nil.
func NewTelemetryService(courses repository.CourseRepository, exercises repository.ExerciseRepository, telemetry repository.TelemetryRepository, publisher TelemetryPublisher, validate *validator.Validate, logger zerolog.Logger) TelemetryService {
	return &telemetryService{
		courses:   courses,
		exercises: exercises,
		telemetry: telemetry,
		publisher: publisher,
		validator: validate,
		logger:    logger.With().Str("component", "telemetry_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/handout-api/internal/service/telemetry"),
	}
}

// Submit stores an attempt. The course and exercise are created on first use and the
// exercise's tags are replaced by the submitted ones.
func (s *telemetryService) Submit(ctx context.Context, authorID uint, request dto.TelemetrySubmitRequest) (dto.TelemetryResponse, error) {
	request.Exercise.Course = strings.TrimSpace(request.Exercise.Course)
	request.Exercise.Slug = strings.TrimSpace(request.Exercise.Slug)
	if err := s.validator.Struct(request); err != nil {
		return dto.TelemetryResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "telemetry.submit", trace.WithAttributes(
		attribute.String("course.name", request.Exercise.Course),
		attribute.String("exercise.slug", request.Exercise.Slug),
		attribute.Int64("author.id", int64(authorID)),
	))
	defer span.End()

	course, err := s.courses.GetOrCreate(spanCtx, request.Exercise.Course)
	if err != nil {
		span.RecordError(err)
		return dto.TelemetryResponse{}, fmt.Errorf("resolve course: %w", err)
	}

	exercise, _, err := s.exercises.GetOrCreate(spanCtx, course.ID, request.Exercise.Slug)
	if err != nil {
		span.RecordError(err)
		return dto.TelemetryResponse{}, fmt.Errorf("resolve exercise: %w", err)
	}
	if !exercise.Enabled {
		return dto.TelemetryResponse{}, ErrExerciseDisabled
	}

	if err := s.exercises.ReplaceTags(spanCtx, &exercise, request.Exercise.Tags); err != nil {
		span.RecordError(err)
		return dto.TelemetryResponse{}, fmt.Errorf("replace exercise tags: %w", err)
	}

	points := defaultSubmissionPoints
	if request.Points != nil {
		points = *request.Points
	}

	record := models.TelemetryData{
		AuthorID:   authorID,
		ExerciseID: exercise.ID,
		Points:     points,
	}
	if len(request.Log) > 0 {
		record.Log = datatypes.JSON(request.Log)
	}

	if err := s.telemetry.Create(spanCtx, &record); err != nil {
		span.RecordError(err)
		return dto.TelemetryResponse{}, err
	}
	record.Exercise = exercise

	response := dto.NewTelemetryResponse(record)
	observability.TelemetrySubmitted().WithLabelValues(course.Name).Inc()
	if s.publisher != nil {
		s.publisher.Publish(spanCtx, dto.TelemetryEvent{Course: course.Name, Telemetry: response})
	}

	s.logger.Info().
		Uint("author_id", authorID).
		Str("course", course.Name).
		Str("exercise", exercise.Slug).
		Float64("points", points).
		Msg("telemetry stored")

	return response, nil
}

func (s *telemetryService) Answers(ctx context.Context, authorID uint, query dto.AnswersQuery) ([]dto.TelemetryResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	ids, err := s.resolveExercises(ctx, query.CourseName, query.ExerciseSlugs)
	if err != nil {
		return nil, err
	}

	records, err := s.telemetry.ListAnswers(ctx, repository.AnswerFilter{
		ExerciseIDs: ids,
		AuthorID:    &authorID,
		LastOnly:    !query.All,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewTelemetryResponseSlice(records), nil
}

// AllStudentsAnswers lists every student's answers. With a cut-off, only submissions
// before it are considered and, unless all are requested, the latest one per student
// and exercise is kept instead of the current last flag.
func (s *telemetryService) AllStudentsAnswers(ctx context.Context, query dto.AllAnswersQuery) ([]dto.TelemetryResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	ids, err := s.resolveExercises(ctx, query.CourseName, query.ExerciseSlugs)
	if err != nil {
		return nil, err
	}

	filter := repository.AnswerFilter{ExerciseIDs: ids, Before: query.Before}
	if query.Before == nil {
		filter.LastOnly = !query.All
	}

	records, err := s.telemetry.ListAnswers(ctx, filter)
	if err != nil {
		return nil, err
	}

	if query.Before != nil && !query.All {
		records = latestPerAuthorAndExercise(records)
	}

	return dto.NewTelemetryResponseSlice(records), nil
}

func (s *telemetryService) List(ctx context.Context, query dto.TelemetryListQuery) ([]dto.TelemetryResponse, int64, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, 0, err
	}

	course, err := s.courses.GetByName(ctx, query.CourseName)
	if err != nil {
		return nil, 0, translateNotFound(err, ErrCourseNotFound)
	}

	records, total, err := s.telemetry.List(ctx, repository.TelemetryFilter{
		CourseID: course.ID,
		After:    query.After,
		Username: strings.TrimSpace(query.Student),
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	return dto.NewTelemetryResponseSlice(records), total, nil
}

func (s *telemetryService) resolveExercises(ctx context.Context, courseName string, slugs []string) ([]uint, error) {
	course, err := s.courses.GetByName(ctx, courseName)
	if err != nil {
		return nil, translateNotFound(err, ErrCourseNotFound)
	}

	unique := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		unique[slug] = struct{}{}
	}
	wanted := make([]string, 0, len(unique))
	for slug := range unique {
		wanted = append(wanted, slug)
	}
	sort.Strings(wanted)

	exercises, err := s.exercises.ListBySlugs(ctx, course.ID, wanted)
	if err != nil {
		return nil, err
	}
	if len(exercises) != len(wanted) {
		return nil, ErrExerciseNotFound
	}

	ids := make([]uint, 0, len(exercises))
	for _, exercise := range exercises {
		ids = append(ids, exercise.ID)
	}
	return ids, nil
}

type authorExercise struct {
	authorID   uint
	exerciseID uint
}

// latestPerAuthorAndExercise keeps the submissions made at the latest date of each
// (author, exercise) pair, preserving input order.
func latestPerAuthorAndExercise(records []models.TelemetryData) []models.TelemetryData {
	latest := make(map[authorExercise]models.TelemetryData, len(records))
	for _, record := range records {
		key := authorExercise{authorID: record.AuthorID, exerciseID: record.ExerciseID}
		current, ok := latest[key]
		if !ok || record.SubmissionDate.After(current.SubmissionDate) {
			latest[key] = record
		}
	}

	kept := make([]models.TelemetryData, 0, len(latest))
	for _, record := range records {
		key := authorExercise{authorID: record.AuthorID, exerciseID: record.ExerciseID}
		if record.SubmissionDate.Equal(latest[key].SubmissionDate) {
			kept = append(kept, record)
		}
	}
	return kept
}
