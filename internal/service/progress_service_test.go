package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/models"
)

func newProgressServiceForTest(f handoutFixture) ProgressService {
	repos := newHandoutRepos(f.db)
	return NewProgressService(repos.courses, repos.exercises, repos.telemetry, repos.users, nopLogger())
}

func TestProgressStudentsTable(t *testing.T) {
	f := seedHandout(t)
	f.submit(t, f.peer, "basics", 0.76, time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC))
	f.submit(t, f.peer, "basics", 0.2, time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC))
	svc := newProgressServiceForTest(f)

	table, err := svc.StudentsProgress(context.Background(), f.course.Name)
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "basics", "if-1", "if-2", "while-1", "while-2"}, table.Columns)
	require.Len(t, table.Rows, 2)
	require.Equal(t, "ana", table.Rows[0]["Name"])
	require.Equal(t, 1.0, table.Rows[0]["if-1"])
	require.Equal(t, 0.5, table.Rows[0]["basics"])
	require.Equal(t, "zoe", table.Rows[1]["Name"])
	require.Equal(t, 0.8, table.Rows[1]["basics"])
	_, attempted := table.Rows[1]["if-1"]
	require.False(t, attempted)

	require.Equal(t, []string{"if-1", "if-2"}, table.Tags["Conditionals"])
	require.Equal(t, []string{"while-1", "while-2"}, table.Tags["Loops"])
	require.Equal(t, []string{"basics", "if-1", "if-2", "while-1", "while-2"}, table.Tags["Python"])
}

func TestProgressWeeks(t *testing.T) {
	f := seedHandout(t)
	svc := newProgressServiceForTest(f)

	weeks, err := svc.Weeks(context.Background(), f.course.Name)
	require.NoError(t, err)
	require.Equal(t, []dto.WeekResponse{
		{Label: "Week1-Mar", Start: "2024-02-25"},
		{Label: "Week2-Mar", Start: "2024-03-03"},
		{Label: "Week3-Mar", Start: "2024-03-10"},
		{Label: "Week4-Mar", Start: "2024-03-17"},
		{Label: "Week5-Mar", Start: "2024-03-24"},
		{Label: "Week1-Apr", Start: "2024-03-31"},
	}, weeks)

	require.NoError(t, f.db.Model(&models.Course{}).Where("id = ?", f.course.ID).Update("start_date", nil).Error)
	weeks, err = svc.Weeks(context.Background(), f.course.Name)
	require.NoError(t, err)
	require.Empty(t, weeks)

	_, err = svc.Weeks(context.Background(), "Missing")
	require.True(t, errors.Is(err, ErrCourseNotFound))
}

func TestProgressStudentWeek(t *testing.T) {
	f := seedHandout(t)
	f.submit(t, f.student, "basics", 0.9, time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC))
	f.submit(t, f.student, "if-1", 0.7, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	svc := newProgressServiceForTest(f)
	ctx := context.Background()

	self := Actor{ID: f.student.ID, Role: models.RoleStudent}
	metrics, err := svc.StudentWeek(ctx, self, f.course.Name, "Week2-Mar", "ana")
	require.NoError(t, err)
	require.Equal(t, "ana", metrics.Student)
	require.Equal(t, "Week2-Mar", metrics.Week)
	require.Equal(t, 5, metrics.Total)
	require.Equal(t, []dto.ExercisePointsResponse{
		{Slug: "basics", Points: 0.9},
		{Slug: "if-1", Points: 0.1},
		{Slug: "if-2", Points: 0.2},
		{Slug: "while-1", Points: 0.3},
		{Slug: "while-2", Points: 0.4},
	}, metrics.Exercises)
	require.Equal(t, map[string]int{"Python": 5, "Conditionals": 2, "Loops": 2}, metrics.Tags)
	require.InDelta(t, 0.38, metrics.AveragePoints, 1e-9)

	staff := Actor{ID: f.instructor.ID, Role: models.RoleInstructor}
	empty, err := svc.StudentWeek(ctx, staff, f.course.Name, "Week4-Mar", "ana")
	require.NoError(t, err)
	require.Zero(t, empty.Total)
	require.Empty(t, empty.Exercises)
	require.Zero(t, empty.AveragePoints)

	_, err = svc.StudentWeek(ctx, Actor{ID: f.peer.ID, Role: models.RoleStudent}, f.course.Name, "Week2-Mar", "ana")
	require.True(t, errors.Is(err, ErrForbidden))

	_, err = svc.StudentWeek(ctx, staff, f.course.Name, "Week9-Mar", "ana")
	require.True(t, errors.Is(err, ErrWeekNotFound))

	_, err = svc.StudentWeek(ctx, staff, f.course.Name, "Week2-Mar", "nobody")
	require.True(t, errors.Is(err, ErrStudentNotFound))
}

func TestProgressWeeklyHistogram(t *testing.T) {
	f := seedHandout(t)
	f.submit(t, f.peer, "basics", 0.5, time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC))
	f.submit(t, f.peer, "basics", 0.6, time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC))
	lurker := models.User{Username: "lee", Role: models.RoleStudent}
	require.NoError(t, f.db.Create(&lurker).Error)
	svc := newProgressServiceForTest(f)

	histogram, err := svc.WeeklyHistogram(context.Background(), f.course.Name, "Week2-Mar")
	require.NoError(t, err)
	require.Equal(t, "Week2-Mar", histogram.Week)
	require.Equal(t, map[string]int{"5": 2, "0": 1}, histogram.Buckets)

	_, err = svc.WeeklyHistogram(context.Background(), f.course.Name, "Week1-Jan")
	require.True(t, errors.Is(err, ErrWeekNotFound))
}
