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

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.CourseWithAuthor, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseWithAuthor, int, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type courseLessonReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error)
}

type courseAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type courseAuthorReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateCourseRequest is the payload for creating a course. AuthorID is
// optional and defaults to the caller.
type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,max=256"`
	Description string  `json:"description" validate:"omitempty,max=4096"`
	Price       float64 `json:"price" validate:"omitempty,gte=0"`
	AuthorID    string  `json:"author_id" validate:"omitempty"`
}

// UpdateCourseRequest is the payload for updating a course. Nil fields
// are left unchanged.
type UpdateCourseRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=256"`
	Description *string  `json:"description" validate:"omitempty,max=4096"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	AuthorID    *string  `json:"author_id" validate:"omitempty"`
}

// CourseService provides catalog use cases.
type CourseService struct {
	repo      courseRepository
	lessons   courseLessonReader
	users     courseAuthorReader
	auditor   courseAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(repo courseRepository, lessons courseLessonReader, users courseAuthorReader, auditor courseAuditor, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, lessons: lessons, users: users, auditor: auditor, validator: validate, logger: logger}
}

func (s *CourseService) checkAuthor(ctx context.Context, authorID string) error {
	if _, err := s.users.FindByID(ctx, authorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "author not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load author")
	}
	return nil
}

// List returns catalog courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseWithAuthor, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a course with its author and ordered lessons.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	lessons, err := s.lessons.ListByCourse(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	if lessons == nil {
		lessons = []*models.Lesson{}
	}

	return &models.CourseDetail{Course: course.Course, Author: course.Author, Lessons: lessons}, nil
}

// Create adds a new course. The author defaults to the caller unless the
// payload names another user.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, authorID string, meta RequestMeta) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	if req.AuthorID != "" {
		authorID = req.AuthorID
	}
	if err := s.checkAuthor(ctx, authorID); err != nil {
		return nil, err
	}

	course := &models.Course{Title: req.Title, Description: req.Description, Price: req.Price, AuthorID: authorID}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.audit(ctx, authorID, models.AuditActionCourseCreate, course.ID, meta)
	return course, nil
}

// Update applies the provided changes to a course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest, actorID string, meta RequestMeta) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	course := existing.Course
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.AuthorID != nil {
		if err := s.checkAuthor(ctx, *req.AuthorID); err != nil {
			return nil, err
		}
		course.AuthorID = *req.AuthorID
	}

	if err := s.repo.Update(ctx, &course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.audit(ctx, actorID, models.AuditActionCourseUpdate, course.ID, meta)
	return &course, nil
}

// Delete removes a course with its lessons and enrollments.
func (s *CourseService) Delete(ctx context.Context, id, actorID string, meta RequestMeta) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.audit(ctx, actorID, models.AuditActionCourseDelete, id, meta)
	return nil
}

func (s *CourseService) audit(ctx context.Context, actorID, action, resourceID string, meta RequestMeta) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "courses",
		ResourceID: &resourceID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record course audit log", zap.Error(err))
	}
}
