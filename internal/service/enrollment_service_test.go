package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub-api/internal/dto"
	"github.com/coursehub/coursehub-api/internal/models"
	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
	"github.com/coursehub/coursehub-api/pkg/export"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	created     *models.Enrollment
	deleted     []string
}

func enrollmentKey(userID, courseID string) string {
	return userID + ":" + courseID
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enrollment"
	}
	m.enrollments[enrollmentKey(enrollment.UserID, enrollment.CourseID)] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[enrollmentKey(userID, courseID)]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ListByUser(ctx context.Context, userID string) ([]models.EnrolledCourse, error) {
	var list []models.EnrolledCourse
	for _, e := range m.enrollments {
		if e.UserID == userID {
			list = append(list, models.EnrolledCourse{Enrollment: e})
		}
	}
	return list, nil
}

func (m *mockEnrollmentRepo) UpdateProgress(ctx context.Context, userID, courseID string, progress float64) error {
	key := enrollmentKey(userID, courseID)
	e, ok := m.enrollments[key]
	if !ok {
		return sql.ErrNoRows
	}
	e.Progress = progress
	m.enrollments[key] = e
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, userID, courseID string) error {
	key := enrollmentKey(userID, courseID)
	if _, ok := m.enrollments[key]; !ok {
		return sql.ErrNoRows
	}
	delete(m.enrollments, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type mockCourseReader struct {
	courses map[string]*models.CourseWithAuthor
}

func (m *mockCourseReader) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.courses[id]
	return ok, nil
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.CourseWithAuthor, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func newEnrollmentServiceForTest(repo *mockEnrollmentRepo, courses *mockCourseReader, users *mockUserReader) *EnrollmentService {
	return NewEnrollmentService(repo, courses, users, export.NewCertificateRenderer(), nil, nil)
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := &mockCourseReader{courses: map[string]*models.CourseWithAuthor{
		"course-1": {Course: models.Course{ID: "course-1", Title: "Go Basics"}},
	}}
	svc := newEnrollmentServiceForTest(repo, courses, &mockUserReader{})

	enrollment, err := svc.Enroll(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, enrollment.Progress)
	assert.Equal(t, "user-1", repo.created.UserID)
}

func TestEnrollmentServiceEnrollConflict(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		enrollmentKey("user-1", "course-1"): {ID: "enr-1", UserID: "user-1", CourseID: "course-1"},
	}}
	courses := &mockCourseReader{courses: map[string]*models.CourseWithAuthor{
		"course-1": {Course: models.Course{ID: "course-1"}},
	}}
	svc := newEnrollmentServiceForTest(repo, courses, &mockUserReader{})

	_, err := svc.Enroll(context.Background(), "user-1", "course-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollCourseNotFound(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, &mockCourseReader{}, &mockUserReader{})

	_, err := svc.Enroll(context.Background(), "user-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceStatusNeverErrors(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, &mockCourseReader{}, &mockUserReader{})

	status, err := svc.Status(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.False(t, status.IsEnrolled)
	assert.Nil(t, status.Enrollment)
}

func TestEnrollmentServiceSetProgressOverwrites(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		enrollmentKey("user-1", "course-1"): {ID: "enr-1", UserID: "user-1", CourseID: "course-1", Progress: 20},
	}}
	svc := newEnrollmentServiceForTest(repo, &mockCourseReader{}, &mockUserReader{})

	enrollment, err := svc.SetProgress(context.Background(), "user-1", "course-1", dto.ManualProgressRequest{Progress: 75})
	require.NoError(t, err)
	assert.Equal(t, 75.0, enrollment.Progress)
}

func TestEnrollmentServiceSetProgressBounds(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, &mockCourseReader{}, &mockUserReader{})

	_, err := svc.SetProgress(context.Background(), "user-1", "course-1", dto.ManualProgressRequest{Progress: 120})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUnenrollNotEnrolled(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, &mockCourseReader{}, &mockUserReader{})

	err := svc.Unenroll(context.Background(), "user-1", "course-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCertificateRequiresCompletion(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		enrollmentKey("user-1", "course-1"): {ID: "enr-1", UserID: "user-1", CourseID: "course-1", Progress: 60},
	}}
	svc := newEnrollmentServiceForTest(repo, &mockCourseReader{}, &mockUserReader{})

	_, _, err := svc.Certificate(context.Background(), "user-1", "course-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCertificateRendersPDF(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		enrollmentKey("user-1", "course-1"): {ID: "enr-1", UserID: "user-1", CourseID: "course-1", Progress: 100, UpdatedAt: time.Now()},
	}}
	courses := &mockCourseReader{courses: map[string]*models.CourseWithAuthor{
		"course-1": {Course: models.Course{ID: "course-1", Title: "Go Basics"}},
	}}
	users := &mockUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "alice", FirstName: "Alice", LastName: "Doe"},
	}}
	svc := newEnrollmentServiceForTest(repo, courses, users)

	pdf, filename, err := svc.Certificate(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.Contains(t, filename, "certificate-course-1")
	assert.True(t, len(pdf) > 4)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
