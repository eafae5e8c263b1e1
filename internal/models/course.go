package models

import "time"

// Course represents a course in the catalog.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description,omitempty"`
	Price       float64   `db:"price" json:"price"`
	AuthorID    string    `db:"author_id" json:"author_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseWithAuthor is a course joined with its author's public profile.
type CourseWithAuthor struct {
	Course
	Author AuthorSummary `json:"author"`
}

// CourseDetail is a course with its author and ordered lessons.
type CourseDetail struct {
	Course
	Author  AuthorSummary `json:"author"`
	Lessons []*Lesson     `json:"lessons"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	AuthorID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
