package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coursehub/coursehub-api/internal/dto"
	"github.com/coursehub/coursehub-api/internal/models"
	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
)

type videoProgressRepository interface {
	Upsert(ctx context.Context, userID, lessonID, courseID string, watchTime, lastPos *float64, completed *bool) (*models.VideoProgress, error)
	FindByUserAndLesson(ctx context.Context, userID, lessonID string) (*models.VideoProgress, error)
	ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]*models.VideoProgress, error)
}

type progressEnrollmentRepository interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]models.EnrolledCourse, error)
	RecomputeProgress(ctx context.Context, userID, courseID string) (float64, error)
}

type progressLessonReader interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error)
}

// ProgressService records playback events and derives aggregate course
// completion from them.
type ProgressService struct {
	repo        videoProgressRepository
	enrollments progressEnrollmentRepository
	lessons     progressLessonReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewProgressService constructs a ProgressService instance.
func NewProgressService(repo videoProgressRepository, enrollments progressEnrollmentRepository, lessons progressLessonReader, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProgressService{repo: repo, enrollments: enrollments, lessons: lessons, validator: validate, logger: logger}
}

// RecordVideoEvent upserts the playback row for a lesson and recomputes
// the enrollment's aggregate progress. The course is taken from the
// lesson row, never from the payload.
func (s *ProgressService) RecordVideoEvent(ctx context.Context, userID string, req dto.VideoEventRequest) (*models.VideoProgress, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid video event payload")
	}

	lesson, err := s.lessons.FindByID(ctx, req.LessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	if _, err := s.enrollments.FindByUserAndCourse(ctx, userID, lesson.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	vp, err := s.repo.Upsert(ctx, userID, lesson.ID, lesson.CourseID, req.WatchTime, req.LastPos, req.Completed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store video progress")
	}

	if _, err := s.enrollments.RecomputeProgress(ctx, userID, lesson.CourseID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute progress")
	}

	return vp, nil
}

// CoursesProgress returns the caller's stored aggregate per enrollment.
func (s *ProgressService) CoursesProgress(ctx context.Context, userID string) (*dto.CoursesProgress, error) {
	enrolled, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	out := &dto.CoursesProgress{Courses: make([]dto.CourseProgressSummary, 0, len(enrolled))}
	for _, e := range enrolled {
		out.Courses = append(out.Courses, dto.CourseProgressSummary{
			CourseID:    e.CourseID,
			CourseTitle: e.Course.Title,
			Progress:    e.Progress,
			EnrolledAt:  e.EnrolledAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

// CourseProgress returns the stored aggregate for one course.
func (s *ProgressService) CourseProgress(ctx context.Context, userID, courseID string) (*dto.CourseProgressStatus, error) {
	enrollment, err := s.enrollments.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return &dto.CourseProgressStatus{
		CourseID:     enrollment.CourseID,
		Progress:     enrollment.Progress,
		LastAccessed: enrollment.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// CourseVideos returns every lesson of a course in order, each overlaid
// with the caller's playback state. Lessons never watched report the
// zero-value state.
func (s *ProgressService) CourseVideos(ctx context.Context, userID, courseID string) (*dto.CourseVideosProgress, error) {
	enrollment, err := s.enrollments.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}

	rows, err := s.repo.ListByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list video progress")
	}
	byLesson := make(map[string]*models.VideoProgress, len(rows))
	for _, vp := range rows {
		byLesson[vp.LessonID] = vp
	}

	out := &dto.CourseVideosProgress{
		CourseID:        courseID,
		Lessons:         make([]dto.LessonProgress, 0, len(lessons)),
		TotalLessons:    len(lessons),
		OverallProgress: enrollment.Progress,
	}
	for _, lesson := range lessons {
		entry := dto.LessonProgress{Lesson: lesson}
		if vp, ok := byLesson[lesson.ID]; ok {
			entry.Progress = vp
			entry.Completed = vp.Completed
			entry.WatchTime = vp.WatchTime
			entry.LastPos = vp.LastPos
		}
		if entry.Completed {
			out.CompletedCount++
		}
		out.Lessons = append(out.Lessons, entry)
	}
	return out, nil
}

// LessonVideo returns the playback row for one lesson, or nil when the
// lesson was never watched.
func (s *ProgressService) LessonVideo(ctx context.Context, userID, lessonID string) (*models.VideoProgress, error) {
	vp, err := s.repo.FindByUserAndLesson(ctx, userID, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load video progress")
	}
	return vp, nil
}
