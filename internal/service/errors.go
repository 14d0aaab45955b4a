package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrCourseNotFound indicates no course carries the requested name.
	ErrCourseNotFound = errors.New("course not found")
	// ErrExerciseNotFound indicates at least one requested exercise does not exist.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrStudentNotFound indicates the requested student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrExerciseDisabled rejects submissions to disabled exercises.
	ErrExerciseDisabled = errors.New("exercise disabled")
	// ErrWeekNotFound indicates the week label is not part of the course calendar.
	ErrWeekNotFound = errors.New("week not found")
	// ErrForbidden rejects access to another student's data.
	ErrForbidden = errors.New("forbidden")
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role string
}

func translateNotFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
