package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateWeeksLabelsByMonth(t *testing.T) {
	weeks := GenerateWeeks(date(2022, 8, 1, 0), date(2022, 12, 1, 0))

	labels := make([]string, 0, len(weeks))
	for _, week := range weeks {
		labels = append(labels, week.Label)
		require.Equal(t, time.Sunday, week.Start.Weekday(), week.Label)
	}

	require.Equal(t, []string{
		"Week1-Aug", "Week2-Aug", "Week3-Aug", "Week4-Aug",
		"Week1-Sep", "Week2-Sep", "Week3-Sep", "Week4-Sep",
		"Week1-Oct", "Week2-Oct", "Week3-Oct", "Week4-Oct", "Week5-Oct",
		"Week1-Nov", "Week2-Nov", "Week3-Nov", "Week4-Nov",
		"Week1-Dec",
	}, labels)
	require.Equal(t, date(2022, 7, 31, 0), weeks[0].Start)
	require.Equal(t, date(2022, 11, 27, 0), weeks[len(weeks)-1].Start)
}

func TestGenerateWeeksSingleDay(t *testing.T) {
	weeks := GenerateWeeks(date(2024, 5, 15, 12), date(2024, 5, 15, 12))
	require.Len(t, weeks, 1)
	require.Equal(t, "Week1-May", weeks[0].Label)
	require.Equal(t, date(2024, 5, 12, 0), weeks[0].Start)
}

func TestWeekRange(t *testing.T) {
	from, to := WeekRange(date(2024, 5, 12, 13))
	require.Equal(t, date(2024, 5, 12, 0), from)
	require.Equal(t, date(2024, 5, 19, 0), to)
}

func TestComputeWeeklyMetricsKeepsLatestSubmission(t *testing.T) {
	metrics := ComputeWeeklyMetrics([]WeeklySubmission{
		{ExerciseSlug: "loops", Points: 0.2, SubmissionDate: date(2024, 5, 12, 9), TagNames: []string{"Python", "While"}},
		{ExerciseSlug: "loops", Points: 0.8, SubmissionDate: date(2024, 5, 13, 9), TagNames: []string{"Python", "While"}},
		{ExerciseSlug: "cond", Points: 1, SubmissionDate: date(2024, 5, 14, 9), TagNames: []string{"Python"}},
	})

	require.Equal(t, 2, metrics.Total)
	require.Equal(t, []ExercisePoints{{Slug: "cond", Points: 1}, {Slug: "loops", Points: 0.8}}, metrics.Exercises)
	require.Equal(t, map[string]int{"Python": 2, "While": 1}, metrics.Tags)
	require.InDelta(t, 0.9, metrics.AveragePoints, 1e-9)
}

func TestComputeWeeklyMetricsEmpty(t *testing.T) {
	metrics := ComputeWeeklyMetrics(nil)
	require.Zero(t, metrics.Total)
	require.Empty(t, metrics.Exercises)
	require.Zero(t, metrics.AveragePoints)
}

func TestHistogramBucket(t *testing.T) {
	cases := map[int]string{0: "0", 1: "5", 5: "5", 6: "10", 49: "50", 50: ">50", 120: ">50"}
	for count, bucket := range cases {
		require.Equal(t, bucket, HistogramBucket(count), count)
	}
}

func TestExerciseCountHistogram(t *testing.T) {
	require.Equal(t, map[string]int{"0": 2, "5": 1, "10": 1, ">50": 1}, ExerciseCountHistogram([]int{0, 0, 3, 7, 64}))
}

func TestBuildProgressTable(t *testing.T) {
	table := BuildProgressTable([]MaxPoints{
		{Username: "zoe", ExerciseSlug: "loops", MaxPoints: 0.66},
		{Username: "ana", ExerciseSlug: "loops", MaxPoints: 1},
		{Username: "ana", ExerciseSlug: "cond", MaxPoints: 0.44},
	})

	require.Equal(t, []string{"Name", "cond", "loops"}, table.Columns)
	require.Len(t, table.Rows, 2)
	require.Equal(t, "ana", table.Rows[0].Name)
	require.Equal(t, map[string]float64{"cond": 0.4, "loops": 1}, table.Rows[0].Points)
	require.Equal(t, "zoe", table.Rows[1].Name)
	require.Equal(t, map[string]float64{"loops": 0.7}, table.Rows[1].Points)
}

func TestBuildProgressTableEmpty(t *testing.T) {
	table := BuildProgressTable(nil)
	require.Equal(t, []string{"Name"}, table.Columns)
	require.Empty(t, table.Rows)
}
