package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coursehub/coursehub-api/internal/dto"
	"github.com/coursehub/coursehub-api/internal/models"
	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
	"github.com/coursehub/coursehub-api/pkg/export"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]models.EnrolledCourse, error)
	UpdateProgress(ctx context.Context, userID, courseID string, progress float64) error
	Delete(ctx context.Context, userID, courseID string) error
}

type enrollmentCourseReader interface {
	Exists(ctx context.Context, id string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.CourseWithAuthor, error)
}

type enrollmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type certificateRenderer interface {
	Render(cert export.Certificate) ([]byte, error)
}

// EnrollmentService provides enrollment lifecycle use cases.
type EnrollmentService struct {
	repo         enrollmentRepository
	courses      enrollmentCourseReader
	users        enrollmentUserReader
	certificates certificateRenderer
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(repo enrollmentRepository, courses enrollmentCourseReader, users enrollmentUserReader, certificates certificateRenderer, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, courses: courses, users: users, certificates: certificates, validator: validate, logger: logger}
}

// Enroll adds the caller to a course with zero progress. Enrolling twice
// in the same course is a conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if _, err := s.repo.FindByUserAndCourse(ctx, userID, courseID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this course")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	exists, err := s.courses.Exists(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	enrollment := &models.Enrollment{UserID: userID, CourseID: courseID, Progress: 0}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// MyCourses returns the caller's enrollments with course details.
func (s *EnrollmentService) MyCourses(ctx context.Context, userID string) ([]models.EnrolledCourse, error) {
	enrolled, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if enrolled == nil {
		enrolled = []models.EnrolledCourse{}
	}
	return enrolled, nil
}

// Status reports whether the caller is enrolled in a course.
func (s *EnrollmentService) Status(ctx context.Context, userID, courseID string) (*dto.EnrollmentStatus, error) {
	enrollment, err := s.repo.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.EnrollmentStatus{IsEnrolled: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	return &dto.EnrollmentStatus{IsEnrolled: true, Enrollment: enrollment}, nil
}

// SetProgress overwrites the enrollment's aggregate progress with the
// provided value. The next playback event recomputes it from lesson
// completion, so manual values do not stick around.
func (s *EnrollmentService) SetProgress(ctx context.Context, userID, courseID string, req dto.ManualProgressRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "progress must be between 0 and 100")
	}

	if err := s.repo.UpdateProgress(ctx, userID, courseID, req.Progress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}

	enrollment, err := s.repo.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// Unenroll removes the caller from a course. Playback rows are kept so
// state survives a re-enrollment.
func (s *EnrollmentService) Unenroll(ctx context.Context, userID, courseID string) error {
	if err := s.repo.Delete(ctx, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "not enrolled in this course")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}

// Certificate renders a PDF completion certificate. Requires the course
// to be fully completed.
func (s *EnrollmentService) Certificate(ctx context.Context, userID, courseID string) ([]byte, string, error) {
	enrollment, err := s.repo.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "not enrolled in this course")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	if enrollment.Progress < 100 {
		return nil, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "course is not completed yet")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}

	pdf, err := s.certificates.Render(export.Certificate{
		StudentName: name,
		CourseTitle: course.Title,
		CompletedAt: enrollment.UpdatedAt,
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	filename := "certificate-" + courseID + "-" + time.Now().UTC().Format("20060102") + ".pdf"
	return pdf, filename, nil
}
