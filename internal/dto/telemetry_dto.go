package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/handout-api/internal/models"
)

// ExerciseReference identifies the exercise a submission belongs to.
type ExerciseReference struct {
	Course string   `json:"course" validate:"required,max=255"`
	Slug   string   `json:"slug" validate:"required,max=255"`
	Tags   []string `json:"tags" validate:"dive,required,max=255"`
}

// TelemetrySubmitRequest is the body of a telemetry submission.
type TelemetrySubmitRequest struct {
	Exercise ExerciseReference `json:"exercise" validate:"required"`
	Points   *float64          `json:"points" validate:"omitempty,gte=0"`
	Log      json.RawMessage   `json:"log"`
}

// TelemetryResponse describes a stored submission.
type TelemetryResponse struct {
	ID             uint            `json:"id"`
	AuthorID       uint            `json:"author_id"`
	Author         string          `json:"author,omitempty"`
	ExerciseID     uint            `json:"exercise_id"`
	Exercise       string          `json:"exercise,omitempty"`
	Points         float64         `json:"points"`
	SubmissionDate time.Time       `json:"submission_date"`
	Log            json.RawMessage `json:"log,omitempty"`
	Last           bool            `json:"last"`
}

// AnswersQuery selects a student's own answers.
type AnswersQuery struct {
	CourseName    string   `validate:"required"`
	ExerciseSlugs []string `validate:"required,min=1,dive,required"`
	All           bool
}

// AllAnswersQuery selects answers of every student.
type AllAnswersQuery struct {
	AnswersQuery
	Before *time.Time
}

// TelemetryListQuery pages through a course's telemetry.
type TelemetryListQuery struct {
	CourseName string     `validate:"required"`
	After      *time.Time `validate:"-"`
	Student    string     `validate:"max=150"`
	Page       int        `validate:"gte=0"`
	PageSize   int        `validate:"gte=0,lte=200"`
}

// TelemetryEvent is pushed to live feed subscribers after every submission.
type TelemetryEvent struct {
	Course    string            `json:"course"`
	Telemetry TelemetryResponse `json:"telemetry"`
}

// NewTelemetryResponse converts a submission model.
func NewTelemetryResponse(record models.TelemetryData) TelemetryResponse {
	var log json.RawMessage
	if len(record.Log) > 0 {
		log = json.RawMessage(record.Log)
	}

	return TelemetryResponse{
		ID:             record.ID,
		AuthorID:       record.AuthorID,
		Author:         record.Author.Username,
		ExerciseID:     record.ExerciseID,
		Exercise:       record.Exercise.Slug,
		Points:         record.Points,
		SubmissionDate: record.SubmissionDate,
		Log:            log,
		Last:           record.Last,
	}
}

// NewTelemetryResponseSlice converts submissions.
func NewTelemetryResponseSlice(records []models.TelemetryData) []TelemetryResponse {
	responses := make([]TelemetryResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewTelemetryResponse(record))
	}
	return responses
}
