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

type mockCourseRepo struct {
	courses map[string]*models.CourseWithAuthor
	seq     int
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = map[string]*models.CourseWithAuthor{}
	}
	m.seq++
	course.ID = fmt.Sprintf("course-%d", m.seq)
	m.courses[course.ID] = &models.CourseWithAuthor{Course: *course}
	return nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.CourseWithAuthor, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseWithAuthor, int, error) {
	var list []models.CourseWithAuthor
	for _, c := range m.courses {
		list = append(list, *c)
	}
	return list, len(list), nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	m.courses[course.ID] = &models.CourseWithAuthor{Course: *course}
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	return nil
}

type mockCourseLessons struct {
	lessons map[string][]*models.Lesson
}

func (m *mockCourseLessons) ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	return m.lessons[courseID], nil
}

func newCourseServiceForTest(repo *mockCourseRepo, lessons *mockCourseLessons, users *mockUserReader) *CourseService {
	if lessons == nil {
		lessons = &mockCourseLessons{}
	}
	return NewCourseService(repo, lessons, users, nil, nil, nil)
}

func TestCourseServiceCreateDefaultsAuthorToCaller(t *testing.T) {
	repo := &mockCourseRepo{}
	users := &mockUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "alice", Role: models.RoleInstructor},
	}}
	svc := newCourseServiceForTest(repo, nil, users)

	course, err := svc.Create(context.Background(), CreateCourseRequest{Title: "Go Basics", Price: 49.90}, "user-1", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "user-1", course.AuthorID)
	assert.Equal(t, 49.90, course.Price)
	assert.NotEmpty(t, course.ID)
}

func TestCourseServiceCreateUnknownAuthor(t *testing.T) {
	repo := &mockCourseRepo{}
	users := &mockUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "alice"},
	}}
	svc := newCourseServiceForTest(repo, nil, users)

	_, err := svc.Create(context.Background(), CreateCourseRequest{Title: "Go Basics", AuthorID: "ghost"}, "user-1", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.courses)
}

func TestCourseServiceGetIncludesLessons(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.CourseWithAuthor{
		"course-1": {Course: models.Course{ID: "course-1", Title: "Go Basics", AuthorID: "user-1"}},
	}}
	lessons := &mockCourseLessons{lessons: map[string][]*models.Lesson{
		"course-1": {
			{ID: "lesson-1", CourseID: "course-1", Title: "Intro", Position: 1},
			{ID: "lesson-2", CourseID: "course-1", Title: "Types", Position: 2},
		},
	}}
	svc := newCourseServiceForTest(repo, lessons, &mockUserReader{})

	detail, err := svc.Get(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, detail.Lessons, 2)
	assert.Equal(t, 1, detail.Lessons[0].Position)
}

func TestCourseServiceGetMissing(t *testing.T) {
	svc := newCourseServiceForTest(&mockCourseRepo{}, nil, &mockUserReader{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceUpdateRevalidatesAuthor(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.CourseWithAuthor{
		"course-1": {Course: models.Course{ID: "course-1", Title: "Go Basics", AuthorID: "user-1"}},
	}}
	users := &mockUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1"},
		"user-2": {ID: "user-2"},
	}}
	svc := newCourseServiceForTest(repo, nil, users)

	newAuthor := "user-2"
	updated, err := svc.Update(context.Background(), "course-1", UpdateCourseRequest{AuthorID: &newAuthor}, "admin-1", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "user-2", updated.AuthorID)

	ghost := "ghost"
	_, err = svc.Update(context.Background(), "course-1", UpdateCourseRequest{AuthorID: &ghost}, "admin-1", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceUpdatePartial(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.CourseWithAuthor{
		"course-1": {Course: models.Course{ID: "course-1", Title: "Go Basics", Description: "intro", Price: 10, AuthorID: "user-1"}},
	}}
	svc := newCourseServiceForTest(repo, nil, &mockUserReader{})

	price := 25.0
	updated, err := svc.Update(context.Background(), "course-1", UpdateCourseRequest{Price: &price}, "admin-1", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Price)
	assert.Equal(t, "Go Basics", updated.Title)
	assert.Equal(t, "intro", updated.Description)
}

func TestCourseServiceDeleteMissing(t *testing.T) {
	svc := newCourseServiceForTest(&mockCourseRepo{}, nil, &mockUserReader{})

	err := svc.Delete(context.Background(), "missing", "admin-1", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
