package dto

import (
	"github.com/noah-isme/handout-api/internal/models"
	"github.com/noah-isme/handout-api/internal/stats"
	"github.com/noah-isme/handout-api/internal/tagtree"
)

// TagResponse describes an exercise tag.
type TagResponse struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// TagGroupStatsResponse is the coverage of one node of the tag tree.
type TagGroupStatsResponse struct {
	Path           string  `json:"path"`
	Slug           string  `json:"slug"`
	Name           string  `json:"name"`
	Depth          int     `json:"depth"`
	TotalExercises int     `json:"total_exercises"`
	Points         float64 `json:"points"`
}

// StudentStatsResponse is the student dashboard payload.
type StudentStatsResponse struct {
	Course                        string                    `json:"course"`
	StudentID                     uint                      `json:"student_id"`
	Tags                          []TagResponse             `json:"tags"`
	TagTree                       tagtree.Tree              `json:"tag_tree"`
	TagGroups                     []TagGroupStatsResponse   `json:"tag_groups"`
	TotalExercises                int                       `json:"total_exercises"`
	ExerciseCountByTagSlugAndDate map[string]map[string]int `json:"exercise_count_by_tag_slug_and_date"`
}

// NewTagResponse converts a tag model.
func NewTagResponse(tag models.ExerciseTag) TagResponse {
	return TagResponse{ID: tag.ID, Slug: tag.Slug, Name: tag.Name}
}

// NewStudentStatsResponse renders computed statistics. Tag groups follow the tree's
// declaration order and dates use the YYYY-MM-DD layout.
func NewStudentStatsResponse(course string, studentID uint, result stats.StudentStats) StudentStatsResponse {
	tags := make([]TagResponse, 0, len(result.Tags))
	for _, tag := range result.Tags {
		tags = append(tags, NewTagResponse(tag))
	}

	tree := result.TagTree
	if tree == nil {
		tree = tagtree.Tree{}
	}

	groups := make([]TagGroupStatsResponse, 0, len(result.StatsByTagGroup))
	for _, path := range tree.Paths() {
		group, ok := result.StatsByTagGroup[path]
		if !ok {
			continue
		}
		groups = append(groups, TagGroupStatsResponse{
			Path:           group.Path,
			Slug:           group.Slug,
			Name:           group.Name,
			Depth:          group.Depth,
			TotalExercises: group.TotalExercises,
			Points:         group.Points,
		})
	}

	byDate := make(map[string]map[string]int, len(result.ExerciseCountByTagSlugAndDate))
	for slug, counts := range result.ExerciseCountByTagSlugAndDate {
		days := make(map[string]int, len(counts))
		for day, count := range counts {
			days[day.Format(stats.DateLayout)] = count
		}
		byDate[slug] = days
	}

	return StudentStatsResponse{
		Course:                        course,
		StudentID:                     studentID,
		Tags:                          tags,
		TagTree:                       tree,
		TagGroups:                     groups,
		TotalExercises:                result.TotalExercises,
		ExerciseCountByTagSlugAndDate: byDate,
	}
}
