package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursehub/coursehub-api/internal/models"
)

// VideoProgressRepository provides database access for per-lesson
// playback state.
type VideoProgressRepository struct {
	db *sqlx.DB
}

// NewVideoProgressRepository creates a new instance of VideoProgressRepository.
func NewVideoProgressRepository(db *sqlx.DB) *VideoProgressRepository {
	return &VideoProgressRepository{db: db}
}

const videoProgressColumns = `id, user_id, lesson_id, course_id, watch_time, last_position, completed, last_watched_at, created_at, updated_at`

// Upsert inserts or updates the playback row keyed by (user, lesson).
// Nil fields keep their stored values, so partial events never erase
// earlier state. Returns the stored row.
func (r *VideoProgressRepository) Upsert(ctx context.Context, userID, lessonID, courseID string, watchTime, lastPos *float64, completed *bool) (*models.VideoProgress, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO video_progress (id, user_id, lesson_id, course_id, watch_time, last_position, completed, last_watched_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, 0), COALESCE($6, 0), COALESCE($7, FALSE), $8, $8, $8)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			watch_time = COALESCE($5, video_progress.watch_time),
			last_position = COALESCE($6, video_progress.last_position),
			completed = COALESCE($7, video_progress.completed),
			last_watched_at = $8,
			updated_at = $8
		RETURNING %s`, videoProgressColumns)

	var vp models.VideoProgress
	if err := r.db.GetContext(ctx, &vp, query, uuid.NewString(), userID, lessonID, courseID, watchTime, lastPos, completed, now); err != nil {
		return nil, fmt.Errorf("upsert video progress: %w", err)
	}
	return &vp, nil
}

// FindByUserAndLesson returns the playback row for one lesson.
func (r *VideoProgressRepository) FindByUserAndLesson(ctx context.Context, userID, lessonID string) (*models.VideoProgress, error) {
	query := fmt.Sprintf(`SELECT %s FROM video_progress WHERE user_id = $1 AND lesson_id = $2 LIMIT 1`, videoProgressColumns)
	var vp models.VideoProgress
	if err := r.db.GetContext(ctx, &vp, query, userID, lessonID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find video progress: %w", err)
	}
	return &vp, nil
}

// ListByUserAndCourse returns the user's playback rows for a course.
func (r *VideoProgressRepository) ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]*models.VideoProgress, error) {
	query := fmt.Sprintf(`SELECT %s FROM video_progress WHERE user_id = $1 AND course_id = $2`, videoProgressColumns)
	var rows []*models.VideoProgress
	if err := r.db.SelectContext(ctx, &rows, query, userID, courseID); err != nil {
		return nil, fmt.Errorf("list video progress by course: %w", err)
	}
	return rows, nil
}

// ProgressExportRow is a flattened playback record used by report exports.
type ProgressExportRow struct {
	Username    string  `db:"username"`
	CourseTitle string  `db:"course_title"`
	LessonTitle string  `db:"lesson_title"`
	WatchTime   float64 `db:"watch_time"`
	Completed   bool    `db:"completed"`
	LastWatched string  `db:"last_watched_at"`
}

// ListForExport returns every playback row flattened for report rendering.
func (r *VideoProgressRepository) ListForExport(ctx context.Context) ([]ProgressExportRow, error) {
	const query = `SELECT u.username, c.title AS course_title, l.title AS lesson_title, vp.watch_time, vp.completed, TO_CHAR(vp.last_watched_at, 'YYYY-MM-DD HH24:MI') AS last_watched_at
		FROM video_progress vp
		JOIN users u ON u.id = vp.user_id
		JOIN courses c ON c.id = vp.course_id
		JOIN lessons l ON l.id = vp.lesson_id
		ORDER BY u.username, c.title, l.position`
	var rows []ProgressExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list video progress for export: %w", err)
	}
	return rows, nil
}
