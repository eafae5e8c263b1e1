package models

import "time"

// VideoProgress tracks a user's playback state for one lesson. Rows are
// keyed by (user_id, lesson_id) and upserted as playback events arrive.
type VideoProgress struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	LessonID    string    `db:"lesson_id" json:"lesson_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	WatchTime   float64   `db:"watch_time" json:"watch_time"`
	LastPos     float64   `db:"last_position" json:"last_position"`
	Completed   bool      `db:"completed" json:"completed"`
	LastWatched time.Time `db:"last_watched_at" json:"last_watched_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
