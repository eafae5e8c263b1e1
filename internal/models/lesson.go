package models

import "time"

// Lesson represents a single lesson within a course. Position is the
// 1-based order of the lesson inside its course.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content,omitempty"`
	VideoURL  string    `db:"video_url" json:"video_url,omitempty"`
	Position  int       `db:"position" json:"order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
