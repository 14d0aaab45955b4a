package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.TelemetryEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event dto.TelemetryEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []dto.TelemetryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.TelemetryEvent(nil), p.events...)
}

func newTelemetryServiceForTest(f handoutFixture, publisher TelemetryPublisher) TelemetryService {
	repos := newHandoutRepos(f.db)
	return NewTelemetryService(repos.courses, repos.exercises, repos.telemetry, publisher, newTestValidator(), nopLogger())
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestTelemetrySubmitCreatesCourseExerciseAndTags(t *testing.T) {
	f := seedHandout(t)
	publisher := &recordingPublisher{}
	svc := newTelemetryServiceForTest(f, publisher)
	ctx := context.Background()

	response, err := svc.Submit(ctx, f.peer.ID, dto.TelemetrySubmitRequest{
		Exercise: dto.ExerciseReference{Course: " Databases 301 ", Slug: "select-1", Tags: []string{"sql", "select", "sql"}},
		Log:      json.RawMessage(`{"code":"SELECT 1"}`),
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, response.Points)
	require.True(t, response.Last)
	require.Equal(t, "select-1", response.Exercise)
	require.JSONEq(t, `{"code":"SELECT 1"}`, string(response.Log))

	var course models.Course
	require.NoError(t, f.db.Where("name = ?", "Databases 301").First(&course).Error)

	var exercise models.Exercise
	require.NoError(t, f.db.Preload("Tags").Where("course_id = ? AND slug = ?", course.ID, "select-1").First(&exercise).Error)
	require.ElementsMatch(t, []string{"select", "sql"}, exercise.TagSlugs())

	events := publisher.Events()
	require.Len(t, events, 1)
	require.Equal(t, "Databases 301", events[0].Course)
	require.Equal(t, response.ID, events[0].Telemetry.ID)
}

func TestTelemetrySubmitMovesLastFlagAndReplacesTags(t *testing.T) {
	f := seedHandout(t)
	svc := newTelemetryServiceForTest(f, nil)
	ctx := context.Background()

	first, err := svc.Submit(ctx, f.peer.ID, dto.TelemetrySubmitRequest{
		Exercise: dto.ExerciseReference{Course: f.course.Name, Slug: "basics", Tags: []string{"python"}},
		Points:   floatPtr(0.25),
	})
	require.NoError(t, err)

	second, err := svc.Submit(ctx, f.peer.ID, dto.TelemetrySubmitRequest{
		Exercise: dto.ExerciseReference{Course: f.course.Name, Slug: "basics", Tags: []string{"python", "if"}},
		Points:   floatPtr(0),
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, second.Points)

	var rows []models.TelemetryData
	require.NoError(t, f.db.Where("author_id = ? AND exercise_id = ?", f.peer.ID, f.exercises["basics"].ID).Order("id ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	require.Equal(t, first.ID, rows[0].ID)
	require.False(t, rows[0].Last)
	require.True(t, rows[1].Last)

	var exercise models.Exercise
	require.NoError(t, f.db.Preload("Tags").First(&exercise, f.exercises["basics"].ID).Error)
	require.ElementsMatch(t, []string{"if", "python"}, exercise.TagSlugs())
}

func TestTelemetrySubmitRejectsDisabledExercise(t *testing.T) {
	f := seedHandout(t)
	require.NoError(t, f.db.Model(&models.Exercise{}).Where("id = ?", f.exercises["basics"].ID).Update("enabled", false).Error)
	publisher := &recordingPublisher{}
	svc := newTelemetryServiceForTest(f, publisher)

	_, err := svc.Submit(context.Background(), f.peer.ID, dto.TelemetrySubmitRequest{
		Exercise: dto.ExerciseReference{Course: f.course.Name, Slug: "basics"},
	})
	require.True(t, errors.Is(err, ErrExerciseDisabled))
	require.Empty(t, publisher.Events())

	var count int64
	require.NoError(t, f.db.Model(&models.TelemetryData{}).Where("author_id = ?", f.peer.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestTelemetrySubmitValidatesRequest(t *testing.T) {
	f := seedHandout(t)
	svc := newTelemetryServiceForTest(f, nil)

	_, err := svc.Submit(context.Background(), f.peer.ID, dto.TelemetrySubmitRequest{
		Exercise: dto.ExerciseReference{Course: "  ", Slug: "basics"},
	})
	require.Error(t, err)

	_, err = svc.Submit(context.Background(), f.peer.ID, dto.TelemetrySubmitRequest{
		Exercise: dto.ExerciseReference{Course: f.course.Name, Slug: "basics"},
		Points:   floatPtr(-1),
	})
	require.Error(t, err)
}

func TestTelemetryAnswersLastOrAll(t *testing.T) {
	f := seedHandout(t)
	svc := newTelemetryServiceForTest(f, nil)
	ctx := context.Background()

	last, err := svc.Answers(ctx, f.student.ID, dto.AnswersQuery{CourseName: f.course.Name, ExerciseSlugs: []string{"if-1", "if-2", "if-1"}})
	require.NoError(t, err)
	require.Len(t, last, 2)
	for _, answer := range last {
		require.True(t, answer.Last)
		require.Equal(t, "ana", answer.Author)
	}

	all, err := svc.Answers(ctx, f.student.ID, dto.AnswersQuery{CourseName: f.course.Name, ExerciseSlugs: []string{"if-1"}, All: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 1.0, all[0].Points)
	require.Equal(t, 0.1, all[1].Points)

	none, err := svc.Answers(ctx, f.peer.ID, dto.AnswersQuery{CourseName: f.course.Name, ExerciseSlugs: []string{"if-1"}})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestTelemetryAnswersRequiresKnownCourseAndExercises(t *testing.T) {
	f := seedHandout(t)
	svc := newTelemetryServiceForTest(f, nil)
	ctx := context.Background()

	_, err := svc.Answers(ctx, f.student.ID, dto.AnswersQuery{CourseName: "Missing", ExerciseSlugs: []string{"if-1"}})
	require.True(t, errors.Is(err, ErrCourseNotFound))

	_, err = svc.Answers(ctx, f.student.ID, dto.AnswersQuery{CourseName: f.course.Name, ExerciseSlugs: []string{"if-1", "nope"}})
	require.True(t, errors.Is(err, ErrExerciseNotFound))

	_, err = svc.Answers(ctx, f.student.ID, dto.AnswersQuery{CourseName: f.course.Name})
	require.Error(t, err)
}

func TestTelemetryAllStudentsAnswersBeforeCutoff(t *testing.T) {
	f := seedHandout(t)
	f.submit(t, f.peer, "if-1", 0.6, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	f.submit(t, f.peer, "if-1", 0.9, time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC))
	svc := newTelemetryServiceForTest(f, nil)
	ctx := context.Background()

	current, err := svc.AllStudentsAnswers(ctx, dto.AllAnswersQuery{AnswersQuery: dto.AnswersQuery{CourseName: f.course.Name, ExerciseSlugs: []string{"if-1"}}})
	require.NoError(t, err)
	require.Len(t, current, 2)
	points := map[string]float64{}
	for _, answer := range current {
		points[answer.Author] = answer.Points
	}
	require.Equal(t, map[string]float64{"ana": 0.1, "zoe": 0.9}, points)

	cutoff := timePtr(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	before, err := svc.AllStudentsAnswers(ctx, dto.AllAnswersQuery{
		AnswersQuery: dto.AnswersQuery{CourseName: f.course.Name, ExerciseSlugs: []string{"if-1"}},
		Before:       cutoff,
	})
	require.NoError(t, err)
	require.Len(t, before, 2)
	points = map[string]float64{}
	for _, answer := range before {
		points[answer.Author] = answer.Points
		require.True(t, answer.SubmissionDate.Before(*cutoff))
	}
	require.Equal(t, map[string]float64{"ana": 1.0, "zoe": 0.6}, points)

	everything, err := svc.AllStudentsAnswers(ctx, dto.AllAnswersQuery{
		AnswersQuery: dto.AnswersQuery{CourseName: f.course.Name, ExerciseSlugs: []string{"if-1"}, All: true},
	})
	require.NoError(t, err)
	require.Len(t, everything, 4)
}

func TestTelemetryListPagesAndFilters(t *testing.T) {
	f := seedHandout(t)
	f.submit(t, f.peer, "basics", 0.7, time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC))
	svc := newTelemetryServiceForTest(f, nil)
	ctx := context.Background()

	page, total, err := svc.List(ctx, dto.TelemetryListQuery{CourseName: f.course.Name, Page: 1, PageSize: 4})
	require.NoError(t, err)
	require.Equal(t, int64(7), total)
	require.Len(t, page, 4)

	byStudent, total, err := svc.List(ctx, dto.TelemetryListQuery{CourseName: f.course.Name, Student: "zoe"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, byStudent, 1)
	require.Equal(t, "basics", byStudent[0].Exercise)

	after, total, err := svc.List(ctx, dto.TelemetryListQuery{CourseName: f.course.Name, After: timePtr(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, after, 1)

	_, _, err = svc.List(ctx, dto.TelemetryListQuery{CourseName: "Missing"})
	require.True(t, errors.Is(err, ErrCourseNotFound))
}
