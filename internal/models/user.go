package models

import (
	"strings"
	"time"
)

const (
	// RoleStudent submits telemetry and reads its own dashboard.
	RoleStudent = "student"
	// RoleInstructor configures exercises and reads every dashboard of a course.
	RoleInstructor = "instructor"
	// RoleAdmin has every instructor permission.
	RoleAdmin = "admin"
)

// User is an authenticated account; students author telemetry.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:255" json:"email"`
	Role      string    `gorm:"size:32;not null;default:student" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsStaff reports whether the role may read other students' data.
func IsStaff(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}
