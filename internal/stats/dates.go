package stats

import (
	"context"
	"time"

	"github.com/noah-isme/handout-api/internal/models"
)

// DateLayout renders calendar days in payloads.
const DateLayout = "2006-01-02"

// ExerciseSubmission is the exercise and time of a single submission.
type ExerciseSubmission struct {
	ExerciseID     uint      `gorm:"column:exercise_id"`
	SubmissionDate time.Time `gorm:"column:submission_date"`
}

// DateSource loads a student's submissions to a course within [from, to).
type DateSource interface {
	ExerciseDatesInRange(ctx context.Context, authorID, courseID uint, from, to time.Time) ([]ExerciseSubmission, error)
}

// Day truncates t to midnight of its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CourseRange returns the half-open interval covering the course's start and end days.
// ok is false when a bound is missing or the window is empty.
func CourseRange(course models.Course) (from, to time.Time, ok bool) {
	if !course.HasWindow() {
		return time.Time{}, time.Time{}, false
	}
	from = Day(*course.StartDate)
	to = Day(*course.EndDate).AddDate(0, 0, 1)
	if !from.Before(to) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// ExerciseIDsByDate groups the exercises a student submitted to by calendar day,
// restricted to the course window. A course without both bounds yields an empty map
// without touching source.
func ExerciseIDsByDate(ctx context.Context, source DateSource, authorID uint, course models.Course) (map[time.Time]IDSet, error) {
	from, to, ok := CourseRange(course)
	if !ok {
		return map[time.Time]IDSet{}, nil
	}

	rows, err := source.ExerciseDatesInRange(ctx, authorID, course.ID, from, to)
	if err != nil {
		return nil, err
	}

	return GroupExerciseIDsByDate(rows), nil
}

// GroupExerciseIDsByDate buckets submissions by UTC day; repeated submissions of the
// same exercise on a day collapse.
func GroupExerciseIDsByDate(rows []ExerciseSubmission) map[time.Time]IDSet {
	out := make(map[time.Time]IDSet)
	for _, row := range rows {
		day := Day(row.SubmissionDate)
		set, ok := out[day]
		if !ok {
			set = IDSet{}
			out[day] = set
		}
		set.Add(row.ExerciseID)
	}
	return out
}

// ExerciseCountByTagNameAndDate counts, per tag name and day, the exercises submitted.
func ExerciseCountByTagNameAndDate(byDate map[time.Time]IDSet, exercisesByID map[uint]models.Exercise) map[string]map[time.Time]int {
	return ExerciseCountByTagAndDate(byDate, exercisesByID, TagName)
}

// ExerciseCountByTagAndDate fans every (day, exercise) entry out to each tag attached to
// the exercise. Exercises missing from exercisesByID are skipped.
func ExerciseCountByTagAndDate(byDate map[time.Time]IDSet, exercisesByID map[uint]models.Exercise, key TagKey) map[string]map[time.Time]int {
	out := make(map[string]map[time.Time]int)
	for day, ids := range byDate {
		for id := range ids {
			exercise, ok := exercisesByID[id]
			if !ok {
				continue
			}
			for _, tag := range exercise.Tags {
				k := key(tag)
				counts, ok := out[k]
				if !ok {
					counts = make(map[time.Time]int)
					out[k] = counts
				}
				counts[day]++
			}
		}
	}
	return out
}
