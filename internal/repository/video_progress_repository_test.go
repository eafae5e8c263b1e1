package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newVideoProgressRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func videoProgressRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "lesson_id", "course_id", "watch_time", "last_position", "completed", "last_watched_at", "created_at", "updated_at"})
}

func TestVideoProgressRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newVideoProgressRepoMock(t)
	defer cleanup()
	repo := NewVideoProgressRepository(db)

	now := time.Now()
	watch := 120.5
	completed := true
	mock.ExpectQuery("INSERT INTO video_progress").
		WithArgs(sqlmock.AnyArg(), "user-1", "lesson-1", "course-1", watch, nil, completed, sqlmock.AnyArg()).
		WillReturnRows(videoProgressRows().AddRow("vp-1", "user-1", "lesson-1", "course-1", watch, 0.0, true, now, now, now))

	vp, err := repo.Upsert(context.Background(), "user-1", "lesson-1", "course-1", &watch, nil, &completed)
	require.NoError(t, err)
	require.True(t, vp.Completed)
	require.Equal(t, watch, vp.WatchTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoProgressRepositoryFindByUserAndLesson(t *testing.T) {
	db, mock, cleanup := newVideoProgressRepoMock(t)
	defer cleanup()
	repo := NewVideoProgressRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, lesson_id, course_id, watch_time, last_position, completed, last_watched_at, created_at, updated_at FROM video_progress WHERE user_id = $1 AND lesson_id = $2 LIMIT 1")).
		WithArgs("user-1", "lesson-1").
		WillReturnRows(videoProgressRows().AddRow("vp-1", "user-1", "lesson-1", "course-1", 30.0, 30.0, false, now, now, now))

	vp, err := repo.FindByUserAndLesson(context.Background(), "user-1", "lesson-1")
	require.NoError(t, err)
	require.False(t, vp.Completed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoProgressRepositoryFindNotFound(t *testing.T) {
	db, mock, cleanup := newVideoProgressRepoMock(t)
	defer cleanup()
	repo := NewVideoProgressRepository(db)

	mock.ExpectQuery("SELECT .+ FROM video_progress WHERE user_id = ").
		WithArgs("user-1", "lesson-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUserAndLesson(context.Background(), "user-1", "lesson-9")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoProgressRepositoryListByUserAndCourse(t *testing.T) {
	db, mock, cleanup := newVideoProgressRepoMock(t)
	defer cleanup()
	repo := NewVideoProgressRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, lesson_id, course_id, watch_time, last_position, completed, last_watched_at, created_at, updated_at FROM video_progress WHERE user_id = $1 AND course_id = $2")).
		WithArgs("user-1", "course-1").
		WillReturnRows(videoProgressRows().
			AddRow("vp-1", "user-1", "lesson-1", "course-1", 60.0, 60.0, true, now, now, now).
			AddRow("vp-2", "user-1", "lesson-2", "course-1", 10.0, 10.0, false, now, now, now))

	rows, err := repo.ListByUserAndCourse(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
