package dto

import "github.com/noah-isme/handout-api/internal/models"

// ExerciseDescriptor is one exercise discovered on a handout page.
type ExerciseDescriptor struct {
	Slug string   `json:"slug" validate:"required,max=255"`
	Tags []string `json:"tags" validate:"dive,required,max=255"`
}

// ExerciseConfigureRequest maps page keys to the exercises found on each page.
type ExerciseConfigureRequest map[string]map[string]ExerciseDescriptor

// ExerciseConfigureResult counts the exercises touched by a configuration run.
type ExerciseConfigureResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// TagNamesResult counts renamed tags.
type TagNamesResult struct {
	Updated int `json:"updated"`
}

// ExerciseResponse describes an exercise.
type ExerciseResponse struct {
	ID       uint     `json:"id"`
	CourseID uint     `json:"course_id"`
	Slug     string   `json:"slug"`
	Enabled  bool     `json:"enabled"`
	Tags     []string `json:"tags"`
}

// NewExerciseResponse converts an exercise model.
func NewExerciseResponse(exercise models.Exercise) ExerciseResponse {
	return ExerciseResponse{
		ID:       exercise.ID,
		CourseID: exercise.CourseID,
		Slug:     exercise.Slug,
		Enabled:  exercise.Enabled,
		Tags:     exercise.TagSlugs(),
	}
}

// NewExerciseResponseSlice converts exercises.
func NewExerciseResponseSlice(exercises []models.Exercise) []ExerciseResponse {
	responses := make([]ExerciseResponse, 0, len(exercises))
	for _, exercise := range exercises {
		responses = append(responses, NewExerciseResponse(exercise))
	}
	return responses
}
