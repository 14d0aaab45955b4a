package dto

import (
	"github.com/noah-isme/handout-api/internal/stats"
)

// ProgressTableResponse is the instructor progress table. Every row maps "Name" to the
// student's username and each exercise slug to the best score.
type ProgressTableResponse struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
	Tags    map[string][]string      `json:"tags"`
}

// WeekResponse labels a reporting week.
type WeekResponse struct {
	Label string `json:"label"`
	Start string `json:"start"`
}

// ExercisePointsResponse pairs an exercise with its points.
type ExercisePointsResponse struct {
	Slug   string  `json:"slug"`
	Points float64 `json:"points"`
}

// WeeklyMetricsResponse summarises a student's week.
type WeeklyMetricsResponse struct {
	Student       string                   `json:"student"`
	Week          string                   `json:"week"`
	Total         int                      `json:"total"`
	Exercises     []ExercisePointsResponse `json:"exercises"`
	Tags          map[string]int           `json:"tags"`
	AveragePoints float64                  `json:"average_points"`
}

// HistogramResponse counts students per bucket of exercises done in a week.
type HistogramResponse struct {
	Week    string         `json:"week"`
	Buckets map[string]int `json:"buckets"`
}

// NewProgressTableResponse renders a progress table.
func NewProgressTableResponse(table stats.ProgressTable, tags map[string][]string) ProgressTableResponse {
	rows := make([]map[string]interface{}, 0, len(table.Rows))
	for _, row := range table.Rows {
		entry := make(map[string]interface{}, len(row.Points)+1)
		entry[stats.ProgressNameColumn] = row.Name
		for slug, points := range row.Points {
			entry[slug] = points
		}
		rows = append(rows, entry)
	}
	if tags == nil {
		tags = map[string][]string{}
	}

	return ProgressTableResponse{Columns: table.Columns, Rows: rows, Tags: tags}
}

// NewWeekResponseSlice renders generated weeks.
func NewWeekResponseSlice(weeks []stats.Week) []WeekResponse {
	responses := make([]WeekResponse, 0, len(weeks))
	for _, week := range weeks {
		responses = append(responses, WeekResponse{Label: week.Label, Start: week.Start.Format(stats.DateLayout)})
	}
	return responses
}

// NewWeeklyMetricsResponse renders weekly metrics.
func NewWeeklyMetricsResponse(student, week string, metrics stats.WeeklyMetrics) WeeklyMetricsResponse {
	exercises := make([]ExercisePointsResponse, 0, len(metrics.Exercises))
	for _, exercise := range metrics.Exercises {
		exercises = append(exercises, ExercisePointsResponse{Slug: exercise.Slug, Points: exercise.Points})
	}

	return WeeklyMetricsResponse{
		Student:       student,
		Week:          week,
		Total:         metrics.Total,
		Exercises:     exercises,
		Tags:          metrics.Tags,
		AveragePoints: metrics.AveragePoints,
	}
}
