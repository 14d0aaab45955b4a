package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Week is a reporting week starting on a Sunday.
type Week struct {
	Label string
	Start time.Time
}

// GenerateWeeks lists the weeks covering [start, end]. The first week starts on the
// Sunday on or before start. Labels read "Week{n}-{Mon}"; numbering restarts every
// month, and a week that ends in the next month is labelled as that month's first week.
func GenerateWeeks(start, end time.Time) []Week {
	current := Day(start)
	current = current.AddDate(0, 0, -int(current.Weekday()))
	last := Day(end)

	weeks := make([]Week, 0)
	positions := make(map[string]int)
	weekNumber := 1
	var currentMonth time.Month

	for !current.After(last) {
		endWeek := current.AddDate(0, 0, 6)
		if currentMonth != current.Month() {
			currentMonth = current.Month()
			weekNumber = 1
		}

		var label string
		if current.Month() != endWeek.Month() {
			weekNumber = 1
			currentMonth = endWeek.Month()
			label = fmt.Sprintf("Week%d-%s", weekNumber, endWeek.Format("Jan"))
		} else {
			label = fmt.Sprintf("Week%d-%s", weekNumber, current.Format("Jan"))
		}

		if i, ok := positions[label]; ok {
			weeks[i].Start = current
		} else {
			positions[label] = len(weeks)
			weeks = append(weeks, Week{Label: label, Start: current})
		}

		weekNumber++
		current = current.AddDate(0, 0, 7)
	}

	return weeks
}

// WeekRange returns the half-open interval of the seven days starting at start.
func WeekRange(start time.Time) (time.Time, time.Time) {
	from := Day(start)
	return from, from.AddDate(0, 0, 7)
}

// WeeklySubmission is one submission considered for a student's weekly metrics.
type WeeklySubmission struct {
	ExerciseSlug   string
	Points         float64
	SubmissionDate time.Time
	TagNames       []string
}

// ExercisePoints pairs an exercise slug with the points it counted for.
type ExercisePoints struct {
	Slug   string
	Points float64
}

// WeeklyMetrics summarises a student's activity during one week.
type WeeklyMetrics struct {
	Total         int
	Exercises     []ExercisePoints
	Tags          map[string]int
	AveragePoints float64
}

// ComputeWeeklyMetrics keeps the latest submission of every exercise and reports how
// many exercises were attempted, their points, how often each tag appeared and the
// average points. An exercise retried within the week is scored by its final attempt,
// never by the first one.
func ComputeWeeklyMetrics(submissions []WeeklySubmission) WeeklyMetrics {
	latest := make(map[string]WeeklySubmission)
	for _, submission := range submissions {
		current, ok := latest[submission.ExerciseSlug]
		if !ok || !submission.SubmissionDate.Before(current.SubmissionDate) {
			latest[submission.ExerciseSlug] = submission
		}
	}

	slugs := make([]string, 0, len(latest))
	for slug := range latest {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	metrics := WeeklyMetrics{
		Total:     len(slugs),
		Exercises: make([]ExercisePoints, 0, len(slugs)),
		Tags:      make(map[string]int),
	}

	total := 0.0
	for _, slug := range slugs {
		submission := latest[slug]
		total += submission.Points
		metrics.Exercises = append(metrics.Exercises, ExercisePoints{Slug: slug, Points: submission.Points})
		for _, tag := range submission.TagNames {
			metrics.Tags[tag]++
		}
	}

	if metrics.Total > 0 {
		metrics.AveragePoints = total / float64(metrics.Total)
	}

	return metrics
}

const (
	// HistogramGranularity is the width of an exercise-count bucket.
	HistogramGranularity = 5
	// HistogramCap is the count from which students fall in the open-ended bucket.
	HistogramCap = 50
	// HistogramOverflowBucket labels counts at or above HistogramCap.
	HistogramOverflowBucket = ">50"
)

// HistogramBucket rounds count up to the next multiple of HistogramGranularity.
func HistogramBucket(count int) string {
	if count >= HistogramCap {
		return HistogramOverflowBucket
	}
	bucket := int(math.Ceil(float64(count)/HistogramGranularity)) * HistogramGranularity
	return strconv.Itoa(bucket)
}

// ExerciseCountHistogram counts students per bucket of weekly distinct exercises.
// counts holds one entry per student, zeros included.
func ExerciseCountHistogram(counts []int) map[string]int {
	hist := make(map[string]int)
	for _, count := range counts {
		hist[HistogramBucket(count)]++
	}
	return hist
}

// MaxPoints is a student's best score on an exercise.
type MaxPoints struct {
	Username     string  `gorm:"column:username"`
	ExerciseSlug string  `gorm:"column:exercise_slug"`
	MaxPoints    float64 `gorm:"column:max_points"`
}

// ProgressRow is one student's line of the progress table.
type ProgressRow struct {
	Name   string
	Points map[string]float64
}

// ProgressTable is the instructor view of best scores per student and exercise.
type ProgressTable struct {
	Columns []string
	Rows    []ProgressRow
}

// ProgressNameColumn heads the student column.
const ProgressNameColumn = "Name"

// BuildProgressTable pivots best scores into one row per student, rounded to one decimal.
// Columns are the name column followed by every exercise that has a score.
func BuildProgressTable(scores []MaxPoints) ProgressTable {
	rows := make(map[string]*ProgressRow)
	columns := make(map[string]struct{})

	for _, score := range scores {
		columns[score.ExerciseSlug] = struct{}{}
		row, ok := rows[score.Username]
		if !ok {
			row = &ProgressRow{Name: score.Username, Points: make(map[string]float64)}
			rows[score.Username] = row
		}
		row.Points[score.ExerciseSlug] = math.Round(score.MaxPoints*10) / 10
	}

	slugs := make([]string, 0, len(columns))
	for slug := range columns {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	names := make([]string, 0, len(rows))
	for name := range rows {
		names = append(names, name)
	}
	sort.Strings(names)

	table := ProgressTable{
		Columns: append([]string{ProgressNameColumn}, slugs...),
		Rows:    make([]ProgressRow, 0, len(names)),
	}
	for _, name := range names {
		table.Rows = append(table.Rows, *rows[name])
	}
	return table
}
