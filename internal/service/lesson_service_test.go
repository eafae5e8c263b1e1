package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub-api/internal/models"
	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
)

type mockLessonRepo struct {
	lessons map[string]*models.Lesson
	seq     int
}

func (m *mockLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	if m.lessons == nil {
		m.lessons = map[string]*models.Lesson{}
	}
	m.seq++
	lesson.ID = fmt.Sprintf("lesson-%d", m.seq)
	position := 1
	for _, l := range m.lessons {
		if l.CourseID == lesson.CourseID {
			position++
		}
	}
	lesson.Position = position
	m.lessons[lesson.ID] = lesson
	return nil
}

func (m *mockLessonRepo) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if l, ok := m.lessons[id]; ok {
		copied := *l
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonRepo) ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	var list []*models.Lesson
	for _, l := range m.lessons {
		if l.CourseID == courseID {
			list = append(list, l)
		}
	}
	return list, nil
}

func (m *mockLessonRepo) Update(ctx context.Context, lesson *models.Lesson) error {
	if _, ok := m.lessons[lesson.ID]; !ok {
		return sql.ErrNoRows
	}
	m.lessons[lesson.ID] = lesson
	return nil
}

func (m *mockLessonRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.lessons[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.lessons, id)
	return nil
}

func newLessonServiceForTest(repo *mockLessonRepo, courses *mockCourseReader) *LessonService {
	return NewLessonService(repo, courses, nil, nil, nil)
}

func TestLessonServiceCreateAppendsPosition(t *testing.T) {
	repo := &mockLessonRepo{}
	courses := &mockCourseReader{courses: map[string]*models.CourseWithAuthor{
		"course-1": {Course: models.Course{ID: "course-1"}},
	}}
	svc := newLessonServiceForTest(repo, courses)

	first, err := svc.Create(context.Background(), "course-1", CreateLessonRequest{Title: "Intro"}, "admin-1", RequestMeta{})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), "course-1", CreateLessonRequest{Title: "Types"}, "admin-1", RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)
}

func TestLessonServiceCreateUnknownCourse(t *testing.T) {
	svc := newLessonServiceForTest(&mockLessonRepo{}, &mockCourseReader{})

	_, err := svc.Create(context.Background(), "missing", CreateLessonRequest{Title: "Intro"}, "admin-1", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceListUnknownCourse(t *testing.T) {
	svc := newLessonServiceForTest(&mockLessonRepo{}, &mockCourseReader{})

	_, err := svc.ListByCourse(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceUpdateMoveToCourse(t *testing.T) {
	repo := &mockLessonRepo{lessons: map[string]*models.Lesson{
		"lesson-1": {ID: "lesson-1", CourseID: "course-1", Title: "Intro", Position: 3},
	}}
	courses := &mockCourseReader{courses: map[string]*models.CourseWithAuthor{
		"course-1": {Course: models.Course{ID: "course-1"}},
		"course-2": {Course: models.Course{ID: "course-2"}},
	}}
	svc := newLessonServiceForTest(repo, courses)

	target := "course-2"
	updated, err := svc.Update(context.Background(), "lesson-1", UpdateLessonRequest{CourseID: &target}, "admin-1", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "course-2", updated.CourseID)
	assert.Equal(t, 3, updated.Position)

	ghost := "ghost"
	_, err = svc.Update(context.Background(), "lesson-1", UpdateLessonRequest{CourseID: &ghost}, "admin-1", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonServiceUpdatePartial(t *testing.T) {
	repo := &mockLessonRepo{lessons: map[string]*models.Lesson{
		"lesson-1": {ID: "lesson-1", CourseID: "course-1", Title: "Intro", Content: "hello", Position: 1},
	}}
	svc := newLessonServiceForTest(repo, &mockCourseReader{})

	title := "Welcome"
	updated, err := svc.Update(context.Background(), "lesson-1", UpdateLessonRequest{Title: &title}, "admin-1", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Welcome", updated.Title)
	assert.Equal(t, "hello", updated.Content)
}

func TestLessonServiceDeleteMissing(t *testing.T) {
	svc := newLessonServiceForTest(&mockLessonRepo{}, &mockCourseReader{})

	err := svc.Delete(context.Background(), "missing", "admin-1", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
