package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/handout-api/internal/models"
)

type queryCounter struct {
	n atomic.Int64
}

func (c *queryCounter) Reset()       { c.n.Store(0) }
func (c *queryCounter) Count() int64 { return c.n.Load() }

func countQueries(t *testing.T, db *gorm.DB) *queryCounter {
	t.Helper()
	counter := &queryCounter{}
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

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Course{}, &models.ExerciseTag{}, &models.Exercise{}, &models.TelemetryData{}))
	return db
}

type fixture struct {
	course    models.Course
	other     models.Course
	tags      map[string]models.ExerciseTag
	exercises map[string]models.Exercise
	student   models.User
	peer      models.User
}

// seedCourse creates a course whose exercises are tagged
// cond-a, cond-b: python, if; loop-a, loop-b: python, while; plain: python; stray: while.
func seedCourse(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	f := fixture{
		course:    models.Course{Name: "Programming 101", StartDate: &start, EndDate: &end},
		other:     models.Course{Name: "Design 201"},
		tags:      map[string]models.ExerciseTag{},
		exercises: map[string]models.Exercise{},
		student:   models.User{Username: "ana", Role: models.RoleStudent},
		peer:      models.User{Username: "zoe", Role: models.RoleStudent},
	}
	require.NoError(t, db.Create(&f.course).Error)
	require.NoError(t, db.Create(&f.other).Error)
	require.NoError(t, db.Create(&f.student).Error)
	require.NoError(t, db.Create(&f.peer).Error)

	for _, slug := range []string{"python", "if", "while"} {
		tag := models.ExerciseTag{CourseID: f.course.ID, Slug: slug, Name: slug + " name"}
		require.NoError(t, db.Create(&tag).Error)
		f.tags[slug] = tag
	}
	foreign := models.ExerciseTag{CourseID: f.other.ID, Slug: "python"}
	require.NoError(t, db.Create(&foreign).Error)

	layout := []struct {
		slug string
		tags []string
	}{
		{"cond-a", []string{"python", "if"}},
		{"cond-b", []string{"python", "if"}},
		{"loop-a", []string{"python", "while"}},
		{"loop-b", []string{"python", "while"}},
		{"plain", []string{"python"}},
		{"stray", []string{"while"}},
	}
	for _, item := range layout {
		exercise := models.Exercise{CourseID: f.course.ID, Slug: item.slug, Enabled: true}
		for _, slug := range item.tags {
			exercise.Tags = append(exercise.Tags, f.tags[slug])
		}
		require.NoError(t, db.Create(&exercise).Error)
		f.exercises[item.slug] = exercise
	}

	elsewhere := models.Exercise{CourseID: f.other.ID, Slug: "elsewhere", Enabled: true, Tags: []models.ExerciseTag{foreign}}
	require.NoError(t, db.Create(&elsewhere).Error)
	f.exercises["elsewhere"] = elsewhere

	return f
}

func submit(t *testing.T, db *gorm.DB, author models.User, exercise models.Exercise, points float64, at time.Time) models.TelemetryData {
	t.Helper()
	record := models.TelemetryData{AuthorID: author.ID, ExerciseID: exercise.ID, Points: points, SubmissionDate: at}
	require.NoError(t, NewTelemetryRepository(db).Create(context.Background(), &record))
	return record
}
