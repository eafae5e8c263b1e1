package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub-api/internal/models"
)

func newLessonRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLessonRepositoryCreateAppendsPosition(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectQuery("INSERT INTO lessons").
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(3))

	lesson := &models.Lesson{CourseID: "course-1", Title: "Intro", VideoURL: "https://cdn.example.com/intro.mp4"}
	err := repo.Create(context.Background(), lesson)
	require.NoError(t, err)
	require.Equal(t, 3, lesson.Position)
	require.NotEmpty(t, lesson.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "title", "content", "video_url", "position", "created_at", "updated_at"}).
		AddRow("lesson-1", "course-1", "Intro", "", "https://cdn.example.com/1.mp4", 1, now, now).
		AddRow("lesson-2", "course-1", "Basics", "", "https://cdn.example.com/2.mp4", 2, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, title, content, video_url, position, created_at, updated_at FROM lessons WHERE course_id = $1 ORDER BY position ASC")).
		WithArgs("course-1").
		WillReturnRows(rows)

	lessons, err := repo.ListByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	require.Equal(t, 1, lessons[0].Position)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCountByCourse(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	total, err := repo.CountByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
