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

// EnrollmentRepository provides database access for course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new instance of EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, user_id, course_id, progress, enrolled_at, updated_at`

// Create inserts a new enrollment with zero progress.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, user_id, course_id, progress, enrolled_at, updated_at) VALUES (:id, :user_id, :course_id, :progress, :enrolled_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByUserAndCourse returns the enrollment tying a user to a course.
func (r *EnrollmentRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListByUser returns the user's enrollments joined with course and author.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.EnrolledCourse, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.progress, e.enrolled_at, e.updated_at,
		c.id AS "course.id", c.title AS "course.title", c.description AS "course.description", c.price AS "course.price", c.author_id AS "course.author_id", c.created_at AS "course.created_at", c.updated_at AS "course.updated_at",
		u.id AS "course.author.author_id", u.username AS "course.author.author_username", u.first_name AS "course.author.author_first_name", u.last_name AS "course.author.author_last_name"
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		JOIN users u ON u.id = c.author_id
		WHERE e.user_id = $1
		ORDER BY e.enrolled_at DESC`
	var enrolled []models.EnrolledCourse
	if err := r.db.SelectContext(ctx, &enrolled, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments by user: %w", err)
	}
	return enrolled, nil
}

// UpdateProgress overwrites the aggregate progress of an enrollment.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, userID, courseID string, progress float64) error {
	const query = `UPDATE enrollments SET progress = $3, updated_at = $4 WHERE user_id = $1 AND course_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, courseID, progress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecomputeProgress derives the aggregate progress from the user's
// completed lessons in a single statement, so concurrent playback events
// cannot interleave between read and write. Courses without lessons
// recompute to zero. Returns the stored value.
func (r *EnrollmentRepository) RecomputeProgress(ctx context.Context, userID, courseID string) (float64, error) {
	const query = `UPDATE enrollments SET progress = sub.pct, updated_at = $3
		FROM (
			SELECT CASE WHEN COUNT(l.id) = 0 THEN 0
				ELSE COUNT(l.id) FILTER (WHERE vp.completed) * 100.0 / COUNT(l.id)
			END AS pct
			FROM lessons l
			LEFT JOIN video_progress vp ON vp.lesson_id = l.id AND vp.user_id = $1
			WHERE l.course_id = $2
		) AS sub
		WHERE enrollments.user_id = $1 AND enrollments.course_id = $2
		RETURNING enrollments.progress`
	var progress float64
	if err := r.db.GetContext(ctx, &progress, query, userID, courseID, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("recompute enrollment progress: %w", err)
	}
	return progress, nil
}

// Delete removes an enrollment. Video progress rows are kept so playback
// state survives a re-enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, userID, courseID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the total number of enrollments.
func (r *EnrollmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM enrollments`); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, nil
}

// EnrollmentExportRow is a flattened enrollment used by report exports.
type EnrollmentExportRow struct {
	Username    string  `db:"username"`
	Email       string  `db:"email"`
	CourseTitle string  `db:"course_title"`
	Progress    float64 `db:"progress"`
	EnrolledAt  string  `db:"enrolled_at"`
}

// ListForExport returns every enrollment flattened for report rendering.
func (r *EnrollmentRepository) ListForExport(ctx context.Context) ([]EnrollmentExportRow, error) {
	const query = `SELECT u.username, u.email, c.title AS course_title, e.progress, TO_CHAR(e.enrolled_at, 'YYYY-MM-DD') AS enrolled_at
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		JOIN courses c ON c.id = e.course_id
		ORDER BY u.username, c.title`
	var rows []EnrollmentExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list enrollments for export: %w", err)
	}
	return rows, nil
}
