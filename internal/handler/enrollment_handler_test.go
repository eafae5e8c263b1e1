package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub-api/internal/middleware"
	"github.com/coursehub/coursehub-api/internal/models"
	"github.com/coursehub/coursehub-api/internal/service"
	"github.com/coursehub/coursehub-api/pkg/export"
)

type fakeEnrollmentRepo struct {
	enrollments map[string]*models.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: make(map[string]*models.Enrollment)}
}

func (f *fakeEnrollmentRepo) key(userID, courseID string) string { return userID + ":" + courseID }

func (f *fakeEnrollmentRepo) Create(_ context.Context, e *models.Enrollment) error {
	f.enrollments[f.key(e.UserID, e.CourseID)] = e
	return nil
}

func (f *fakeEnrollmentRepo) FindByUserAndCourse(_ context.Context, userID, courseID string) (*models.Enrollment, error) {
	e, ok := f.enrollments[f.key(userID, courseID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (f *fakeEnrollmentRepo) ListByUser(context.Context, string) ([]models.EnrolledCourse, error) {
	return nil, nil
}

func (f *fakeEnrollmentRepo) UpdateProgress(_ context.Context, userID, courseID string, progress float64) error {
	e, ok := f.enrollments[f.key(userID, courseID)]
	if !ok {
		return sql.ErrNoRows
	}
	e.Progress = progress
	return nil
}

func (f *fakeEnrollmentRepo) Delete(_ context.Context, userID, courseID string) error {
	if _, ok := f.enrollments[f.key(userID, courseID)]; !ok {
		return sql.ErrNoRows
	}
	delete(f.enrollments, f.key(userID, courseID))
	return nil
}

type fakeCourseReader struct {
	courses map[string]*models.CourseWithAuthor
}

func (f *fakeCourseReader) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.courses[id]
	return ok, nil
}

func (f *fakeCourseReader) FindByID(_ context.Context, id string) (*models.CourseWithAuthor, error) {
	course, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type fakeUserReader struct {
	users map[string]*models.User
}

func (f *fakeUserReader) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func newEnrollmentHandlerFixture() (*EnrollmentHandler, *fakeEnrollmentRepo) {
	repo := newFakeEnrollmentRepo()
	courses := &fakeCourseReader{courses: map[string]*models.CourseWithAuthor{
		"course-1": {Course: models.Course{ID: "course-1", Title: "Go from Scratch"}},
	}}
	users := &fakeUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "alice"},
	}}
	svc := service.NewEnrollmentService(repo, courses, users, export.NewCertificateRenderer(), nil, nil)
	return NewEnrollmentHandler(svc), repo
}

func authedContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Username: "alice", Role: models.RoleStudent})
	return c, rec
}

func TestEnrollmentHandlerEnrollRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newEnrollmentHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments", bytes.NewReader([]byte(`{"courseId":"course-1"}`)))

	handler.Enroll(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnrollmentHandlerEnrollSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newEnrollmentHandlerFixture()

	c, rec := authedContext(t, http.MethodPost, "/enrollments", []byte(`{"courseId":"course-1"}`))
	handler.Enroll(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, repo.enrollments, 1)
}

func TestEnrollmentHandlerEnrollConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newEnrollmentHandlerFixture()
	_ = repo.Create(context.Background(), &models.Enrollment{UserID: "user-1", CourseID: "course-1"})

	c, rec := authedContext(t, http.MethodPost, "/enrollments", []byte(`{"courseId":"course-1"}`))
	handler.Enroll(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEnrollmentHandlerStatusNeverErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newEnrollmentHandlerFixture()

	c, rec := authedContext(t, http.MethodGet, "/enrollments/course-1/status", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}
	handler.Status(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, false, envelope.Data["isEnrolled"])
}

func TestEnrollmentHandlerCertificateIncomplete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newEnrollmentHandlerFixture()
	_ = repo.Create(context.Background(), &models.Enrollment{UserID: "user-1", CourseID: "course-1", Progress: 60})

	c, rec := authedContext(t, http.MethodGet, "/enrollments/course-1/certificate", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}
	handler.Certificate(c)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestEnrollmentHandlerCertificateCompleted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newEnrollmentHandlerFixture()
	_ = repo.Create(context.Background(), &models.Enrollment{UserID: "user-1", CourseID: "course-1", Progress: 100})

	c, rec := authedContext(t, http.MethodGet, "/enrollments/course-1/certificate", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}
	handler.Certificate(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}
