package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/models"
	"github.com/noah-isme/handout-api/internal/observability"
	"github.com/noah-isme/handout-api/internal/repository"
	"github.com/noah-isme/handout-api/internal/stats"
	"github.com/noah-isme/handout-api/internal/tagtree"
)

// StudentStatsService computes a student's progress over a course's tag tree.
type StudentStatsService interface {
	Build(ctx context.Context, studentID uint, courseName string, tree tagtree.Tree) (stats.StudentStats, error)
	GetDashboard(ctx context.Context, actor Actor, studentID uint, courseName string, tree tagtree.Tree) (dto.StudentStatsResponse, bool, error)
}

type studentStatsService struct {
	courses   repository.CourseRepository
	tags      repository.TagRepository
	exercises repository.ExerciseRepository
	telemetry repository.TelemetryRepository
	users     repository.UserRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// StudentStatsRepositories groups the data sources of the statistics service.
type StudentStatsRepositories struct {
	Courses   repository.CourseRepository
	Tags      repository.TagRepository
	Exercises repository.ExerciseRepository
	Telemetry repository.TelemetryRepository
	Users     repository.UserRepository
}

// NewStudentStatsService builds the statistics service. cache may be nil.
func NewStudentStatsService(repos StudentStatsRepositories, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentStatsService {
	return &studentStatsService{
		courses:   repos.Courses,
		tags:      repos.Tags,
		exercises: repos.Exercises,
		telemetry: repos.Telemetry,
		users:     repos.Users,
		cache:     cache,
		cacheTTL:  ttl,
		logger:    logger.With().Str("component", "student_stats_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/handout-api/internal/service/student_stats"),
	}
}

// Build loads the course's tags, exercises, memberships and the student's submissions
// with a fixed number of queries and aggregates them.
func (s *studentStatsService) Build(ctx context.Context, studentID uint, courseName string, tree tagtree.Tree) (stats.StudentStats, error) {
	spanCtx, span := s.tracer.Start(ctx, "student_stats.build", trace.WithAttributes(
		attribute.String("course.name", courseName),
		attribute.Int64("student.id", int64(studentID)),
	))
	defer span.End()

	started := time.Now()

	course, err := s.courses.GetByName(spanCtx, courseName)
	if err != nil {
		span.RecordError(err)
		return stats.StudentStats{}, translateNotFound(err, ErrCourseNotFound)
	}

	tags, err := s.tags.ListByCourseAndSlugs(spanCtx, course.ID, tagtree.ListTags(tree))
	if err != nil {
		span.RecordError(err)
		return stats.StudentStats{}, fmt.Errorf("load tags: %w", err)
	}

	exercises, err := s.exercises.ListByCourseWithTags(spanCtx, course.ID)
	if err != nil {
		span.RecordError(err)
		return stats.StudentStats{}, fmt.Errorf("load exercises: %w", err)
	}

	pairs, err := s.exercises.ListIDsAndTags(spanCtx, course.ID)
	if err != nil {
		span.RecordError(err)
		return stats.StudentStats{}, fmt.Errorf("load exercise tags: %w", err)
	}

	points, err := s.telemetry.LastPointsByExercise(spanCtx, studentID, course.ID)
	if err != nil {
		span.RecordError(err)
		return stats.StudentStats{}, fmt.Errorf("load points: %w", err)
	}

	byDate, err := stats.ExerciseIDsByDate(spanCtx, s.telemetry, studentID, course)
	if err != nil {
		span.RecordError(err)
		return stats.StudentStats{}, fmt.Errorf("load submission dates: %w", err)
	}

	result := stats.Compose(stats.Inputs{
		Tree:              tree,
		Tags:              tags,
		Exercises:         exercises,
		Pairs:             pairs,
		Points:            points,
		ExerciseIDsByDate: byDate,
	})

	observability.StatsBuildDuration().WithLabelValues(course.Name).Observe(time.Since(started).Seconds())
	s.logger.Debug().
		Uint("student_id", studentID).
		Str("course", course.Name).
		Int("groups", len(result.StatsByTagGroup)).
		Msg("student stats built")

	return result, nil
}

func (s *studentStatsService) GetDashboard(ctx context.Context, actor Actor, studentID uint, courseName string, tree tagtree.Tree) (dto.StudentStatsResponse, bool, error) {
	if !models.IsStaff(actor.Role) && actor.ID != studentID {
		return dto.StudentStatsResponse{}, false, ErrForbidden
	}

	cacheKey, err := dashboardCacheKey(courseName, studentID, tree, s.statsVersion(ctx, courseName, studentID))
	if err != nil {
		return dto.StudentStatsResponse{}, false, err
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.StatsCacheLookups().WithLabelValues("hit").Inc()
				s.logger.Debug().Uint("student_id", studentID).Str("course", courseName).Msg("student stats cache hit")
				return response, true, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read student stats cache")
		}
		observability.StatsCacheLookups().WithLabelValues("miss").Inc()
	}

	if _, err := s.users.GetByID(ctx, studentID); err != nil {
		return dto.StudentStatsResponse{}, false, translateNotFound(err, ErrStudentNotFound)
	}

	result, err := s.Build(ctx, studentID, courseName, tree)
	if err != nil {
		return dto.StudentStatsResponse{}, false, err
	}

	response := dto.NewStudentStatsResponse(courseName, studentID, result)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store student stats cache")
			}
		}
	}

	return response, false, nil
}

// statsVersion reads the student's cache generation; "0" until the first submission
// invalidates it.
func (s *studentStatsService) statsVersion(ctx context.Context, courseName string, studentID uint) string {
	if s.cache == nil {
		return "0"
	}
	version, err := s.cache.Get(ctx, statsVersionKey(courseName, studentID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read student stats cache version")
		}
		return "0"
	}
	return version
}

func dashboardCacheKey(courseName string, studentID uint, tree tagtree.Tree, version string) (string, error) {
	encoded, err := json.Marshal(tree)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(encoded)
	return fmt.Sprintf("stats:course:%s:student:%d:v%s:tree:%s", courseName, studentID, version, hex.EncodeToString(digest[:8])), nil
}

func statsVersionKey(courseName string, studentID uint) string {
	return fmt.Sprintf("stats:version:course:%s:student:%d", courseName, studentID)
}

// StatsCacheInvalidator bumps a student's cache generation whenever a submission is
// stored, so cached dashboards built before it are no longer served.
type StatsCacheInvalidator struct {
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStatsCacheInvalidator builds the invalidator for the cache used by the statistics
// service. ttl must match the dashboard cache ttl.
func NewStatsCacheInvalidator(cache *redis.Client, ttl time.Duration, logger zerolog.Logger) *StatsCacheInvalidator {
	return &StatsCacheInvalidator{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "stats_cache_invalidator").Logger(),
	}
}

// Publish implements TelemetryPublisher.
func (i *StatsCacheInvalidator) Publish(ctx context.Context, event dto.TelemetryEvent) {
	if i == nil || i.cache == nil {
		return
	}

	key := statsVersionKey(event.Course, event.Telemetry.AuthorID)
	pipe := i.cache.TxPipeline()
	pipe.Incr(ctx, key)
	if i.ttl > 0 {
		// outlives every entry cached under the previous generation
		pipe.Expire(ctx, key, 2*i.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		i.logger.Warn().Err(err).Str("course", event.Course).Uint("student_id", event.Telemetry.AuthorID).Msg("failed to invalidate student stats cache")
	}
}
