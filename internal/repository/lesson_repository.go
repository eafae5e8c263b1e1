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

// LessonRepository provides database access for course lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new instance of LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = `id, course_id, title, content, video_url, position, created_at, updated_at`

// Create inserts a new lesson. The position is assigned by appending to
// the end of the course's lesson sequence.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, course_id, title, content, video_url, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, (SELECT COUNT(*) + 1 FROM lessons WHERE course_id = $2), $6, $7)
		RETURNING position`
	if err := r.db.GetContext(ctx, &lesson.Position, query,
		lesson.ID, lesson.CourseID, lesson.Title, lesson.Content, lesson.VideoURL, lesson.CreatedAt, lesson.UpdatedAt); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// FindByID returns a lesson by identifier.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1 LIMIT 1`, lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson by id: %w", err)
	}
	return &lesson, nil
}

// ListByCourse returns all lessons of a course in position order.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE course_id = $1 ORDER BY position ASC`, lessonColumns)
	var lessons []*models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons by course: %w", err)
	}
	return lessons, nil
}

// CountByCourse returns the number of lessons in a course.
func (r *LessonRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM lessons WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count lessons by course: %w", err)
	}
	return total, nil
}

// Update updates mutable fields of a lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET course_id = :course_id, title = :title, content = :content, video_url = :video_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson. Positions of the remaining lessons are left
// untouched.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the total number of lessons.
func (r *LessonRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM lessons`); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return total, nil
}
