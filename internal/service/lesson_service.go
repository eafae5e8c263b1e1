package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coursehub/coursehub-api/internal/models"
	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
)

type lessonRepository interface {
	Create(ctx context.Context, lesson *models.Lesson) error
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error)
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

type lessonCourseReader interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// CreateLessonRequest is the payload for creating a lesson. The lesson
// is appended to the end of the course's sequence.
type CreateLessonRequest struct {
	Title    string `json:"title" validate:"required,max=256"`
	Content  string `json:"content" validate:"omitempty"`
	VideoURL string `json:"video_url" validate:"omitempty,url"`
}

// UpdateLessonRequest is the payload for updating a lesson. Nil fields
// are left unchanged. Positions cannot be changed; moving a lesson to
// another course keeps its position.
type UpdateLessonRequest struct {
	Title    *string `json:"title" validate:"omitempty,max=256"`
	Content  *string `json:"content" validate:"omitempty"`
	VideoURL *string `json:"video_url" validate:"omitempty,url"`
	CourseID *string `json:"course_id" validate:"omitempty"`
}

// LessonService provides lesson management use cases.
type LessonService struct {
	repo      lessonRepository
	courses   lessonCourseReader
	auditor   courseAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs a LessonService instance.
func NewLessonService(repo lessonRepository, courses lessonCourseReader, auditor courseAuditor, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LessonService{repo: repo, courses: courses, auditor: auditor, validator: validate, logger: logger}
}

// ListByCourse returns the course's lessons in position order.
func (s *LessonService) ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	exists, err := s.courses.Exists(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	lessons, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	if lessons == nil {
		lessons = []*models.Lesson{}
	}
	return lessons, nil
}

// Get returns a lesson by id.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}

// Create appends a new lesson to a course.
func (s *LessonService) Create(ctx context.Context, courseID string, req CreateLessonRequest, actorID string, meta RequestMeta) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	exists, err := s.courses.Exists(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	lesson := &models.Lesson{CourseID: courseID, Title: req.Title, Content: req.Content, VideoURL: req.VideoURL}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}

	s.audit(ctx, actorID, models.AuditActionLessonCreate, lesson.ID, meta)
	return lesson, nil
}

// Update applies the provided changes to a lesson.
func (s *LessonService) Update(ctx context.Context, id string, req UpdateLessonRequest, actorID string, meta RequestMeta) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	if req.Title != nil {
		lesson.Title = *req.Title
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.VideoURL != nil {
		lesson.VideoURL = *req.VideoURL
	}
	if req.CourseID != nil && *req.CourseID != lesson.CourseID {
		exists, err := s.courses.Exists(ctx, *req.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		lesson.CourseID = *req.CourseID
	}

	if err := s.repo.Update(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}

	s.audit(ctx, actorID, models.AuditActionLessonUpdate, lesson.ID, meta)
	return lesson, nil
}

// Delete removes a lesson.
func (s *LessonService) Delete(ctx context.Context, id, actorID string, meta RequestMeta) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}

	s.audit(ctx, actorID, models.AuditActionLessonDelete, id, meta)
	return nil
}

func (s *LessonService) audit(ctx context.Context, actorID, action, resourceID string, meta RequestMeta) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "lessons",
		ResourceID: &resourceID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record lesson audit log", zap.Error(err))
	}
}
