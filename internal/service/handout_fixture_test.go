package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/handout-api/internal/models"
	"github.com/noah-isme/handout-api/internal/repository"
	"github.com/noah-isme/handout-api/internal/tagtree"
)

type handoutFixture struct {
	db         *gorm.DB
	course     models.Course
	student    models.User
	peer       models.User
	instructor models.User
	exercises  map[string]models.Exercise
	tree       tagtree.Tree
}

type handoutRepos struct {
	courses   repository.CourseRepository
	tags      repository.TagRepository
	exercises repository.ExerciseRepository
	telemetry repository.TelemetryRepository
	users     repository.UserRepository
}

type roundTripCounter struct {
	n atomic.Int64
}

func (c *roundTripCounter) Reset()       { c.n.Store(0) }
func (c *roundTripCounter) Count() int64 { return c.n.Load() }

func countRoundTrips(t *testing.T, db *gorm.DB) *roundTripCounter {
	t.Helper()
	counter := &roundTripCounter{}
	// subqueries are rendered through the query callbacks in dry-run mode
	inc := func(tx *gorm.DB) {
		if tx.DryRun {
			return
		}
		counter.n.Add(1)
	}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count_query", inc))
	require.NoError(t, db.Callback().Row().After("gorm:row").Register("test:count_row", inc))
	return counter
}

func openHandoutDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}, &models.ExerciseTag{}, &models.Exercise{}, &models.TelemetryData{}))
	return db
}

func newHandoutRepos(db *gorm.DB) handoutRepos {
	return handoutRepos{
		courses:   repository.NewCourseRepository(db),
		tags:      repository.NewTagRepository(db),
		exercises: repository.NewExerciseRepository(db),
		telemetry: repository.NewTelemetryRepository(db),
		users:     repository.NewUserRepository(db),
	}
}

func (r handoutRepos) statsRepositories() StudentStatsRepositories {
	return StudentStatsRepositories{
		Courses:   r.courses,
		Tags:      r.tags,
		Exercises: r.exercises,
		Telemetry: r.telemetry,
		Users:     r.users,
	}
}

const handoutTree = `{
  "python": {
    "name": "Python",
    "children": {
      "if": "Conditionals",
      "while": "Loops"
    }
  },
  "design": "Design"
}`

// seedHandout creates a March 2024 course with exercises
// if-1, if-2: python, if; while-1, while-2: python, while; basics: python.
// ana's latest points are 0.1, 0.2, 0.3, 0.4 and 0.5 respectively.
func seedHandout(t *testing.T) handoutFixture {
	t.Helper()
	db := openHandoutDB(t)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	f := handoutFixture{
		db:         db,
		course:     models.Course{Name: "Programming 101", StartDate: &start, EndDate: &end},
		student:    models.User{Username: "ana", Role: models.RoleStudent},
		peer:       models.User{Username: "zoe", Role: models.RoleStudent},
		instructor: models.User{Username: "iris", Role: models.RoleInstructor},
		exercises:  map[string]models.Exercise{},
	}
	require.NoError(t, db.Create(&f.course).Error)
	require.NoError(t, db.Create(&f.student).Error)
	require.NoError(t, db.Create(&f.peer).Error)
	require.NoError(t, db.Create(&f.instructor).Error)

	tags := map[string]models.ExerciseTag{}
	for slug, name := range map[string]string{"python": "Python", "if": "Conditionals", "while": "Loops"} {
		tag := models.ExerciseTag{CourseID: f.course.ID, Slug: slug, Name: name}
		require.NoError(t, db.Create(&tag).Error)
		tags[slug] = tag
	}

	layout := []struct {
		slug string
		tags []string
	}{
		{"if-1", []string{"python", "if"}},
		{"if-2", []string{"python", "if"}},
		{"while-1", []string{"python", "while"}},
		{"while-2", []string{"python", "while"}},
		{"basics", []string{"python"}},
	}
	for _, item := range layout {
		exercise := models.Exercise{CourseID: f.course.ID, Slug: item.slug, Enabled: true}
		for _, slug := range item.tags {
			exercise.Tags = append(exercise.Tags, tags[slug])
		}
		require.NoError(t, db.Create(&exercise).Error)
		f.exercises[item.slug] = exercise
	}

	tree, err := tagtree.Parse([]byte(handoutTree))
	require.NoError(t, err)
	f.tree = tree

	monday := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	tuesday := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	f.submit(t, f.student, "if-1", 1.0, time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC))
	f.submit(t, f.student, "if-1", 0.1, monday)
	f.submit(t, f.student, "if-2", 0.2, monday)
	f.submit(t, f.student, "while-1", 0.3, tuesday)
	f.submit(t, f.student, "while-2", 0.4, tuesday)
	f.submit(t, f.student, "basics", 0.5, tuesday)

	return f
}

func (f handoutFixture) submit(t *testing.T, author models.User, slug string, points float64, at time.Time) models.TelemetryData {
	t.Helper()
	record := models.TelemetryData{AuthorID: author.ID, ExerciseID: f.exercises[slug].ID, Points: points, SubmissionDate: at}
	require.NoError(t, repository.NewTelemetryRepository(f.db).Create(context.Background(), &record))
	return record
}

func newTestValidator() *validator.Validate {
	return validator.New()
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
