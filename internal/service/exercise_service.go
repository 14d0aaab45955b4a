package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/repository"
)

// ExerciseService configures a course's exercises and tags.
type ExerciseService interface {
	Configure(ctx context.Context, courseName string, request dto.ExerciseConfigureRequest) (dto.ExerciseConfigureResult, error)
	SetEnabled(ctx context.Context, courseName, slug string, enabled bool) error
	UpdateTagNames(ctx context.Context, courseName string, names map[string]string) (dto.TagNamesResult, error)
	List(ctx context.Context, courseName string) ([]dto.ExerciseResponse, error)
}

type exerciseService struct {
	courses   repository.CourseRepository
	exercises repository.ExerciseRepository
	tags      repository.TagRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewExerciseService creates the exercise configuration service.
func NewExerciseService(courses repository.CourseRepository, exercises repository.ExerciseRepository, tags repository.TagRepository, validate *validator.Validate, logger zerolog.Logger) ExerciseService {
	return &exerciseService{
		courses:   courses,
		exercises: exercises,
		tags:      tags,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "exercise_service").Logger(),
	}
}

// Configure registers the exercises discovered on the course's pages. Exercises are
// created when unknown and their tag sets replaced otherwise. When the same slug
// appears twice, the entry of the later page and key wins.
func (s *exerciseService) Configure(ctx context.Context, courseName string, request dto.ExerciseConfigureRequest) (dto.ExerciseConfigureResult, error) {
	course, err := s.courses.GetByName(ctx, courseName)
	if err != nil {
		return dto.ExerciseConfigureResult{}, translateNotFound(err, ErrCourseNotFound)
	}

	descriptors := make(map[string]dto.ExerciseDescriptor)
	for _, page := range sortedKeys(request) {
		entries := request[page]
		for _, key := range sortedKeys(entries) {
			descriptor := entries[key]
			descriptor.Slug = strings.TrimSpace(descriptor.Slug)
			if err := s.validator.Struct(descriptor); err != nil {
				return dto.ExerciseConfigureResult{}, err
			}
			descriptors[descriptor.Slug] = descriptor
		}
	}

	var result dto.ExerciseConfigureResult
	for _, slug := range sortedKeys(descriptors) {
		exercise, created, err := s.exercises.GetOrCreate(ctx, course.ID, slug)
		if err != nil {
			return result, fmt.Errorf("configure exercise %q: %w", slug, err)
		}
		if err := s.exercises.ReplaceTags(ctx, &exercise, descriptors[slug].Tags); err != nil {
			return result, fmt.Errorf("configure exercise %q tags: %w", slug, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	s.logger.Info().
		Str("course", course.Name).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Msg("exercises configured")

	return result, nil
}

func (s *exerciseService) SetEnabled(ctx context.Context, courseName, slug string, enabled bool) error {
	course, err := s.courses.GetByName(ctx, courseName)
	if err != nil {
		return translateNotFound(err, ErrCourseNotFound)
	}

	if err := s.exercises.SetEnabled(ctx, course.ID, slug, enabled); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}

	s.logger.Info().Str("course", course.Name).Str("exercise", slug).Bool("enabled", enabled).Msg("exercise toggled")
	return nil
}

// UpdateTagNames renames tags by slug. Names are stripped of markup; names left empty
// are ignored.
func (s *exerciseService) UpdateTagNames(ctx context.Context, courseName string, names map[string]string) (dto.TagNamesResult, error) {
	course, err := s.courses.GetByName(ctx, courseName)
	if err != nil {
		return dto.TagNamesResult{}, translateNotFound(err, ErrCourseNotFound)
	}

	cleaned := make(map[string]string, len(names))
	for slug, name := range names {
		cleaned[strings.TrimSpace(slug)] = strings.TrimSpace(s.sanitizer.Sanitize(name))
	}

	updated, err := s.tags.UpdateNames(ctx, course.ID, cleaned)
	if err != nil {
		return dto.TagNamesResult{}, err
	}

	return dto.TagNamesResult{Updated: updated}, nil
}

func (s *exerciseService) List(ctx context.Context, courseName string) ([]dto.ExerciseResponse, error) {
	course, err := s.courses.GetByName(ctx, courseName)
	if err != nil {
		return nil, translateNotFound(err, ErrCourseNotFound)
	}

	exercises, err := s.exercises.ListByCourseWithTags(ctx, course.ID)
	if err != nil {
		return nil, err
	}

	return dto.NewExerciseResponseSlice(exercises), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
