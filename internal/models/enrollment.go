package models

import "time"

// Enrollment ties a student to a course and carries the aggregate
// completion percentage for that course.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	Progress   float64   `db:"progress" json:"progress"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EnrolledCourse is an enrollment joined with its course and author.
type EnrolledCourse struct {
	Enrollment
	Course CourseWithAuthor `json:"course"`
}
