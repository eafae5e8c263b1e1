package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/coursehub-api/internal/dto"
	"github.com/coursehub/coursehub-api/internal/service"
	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
	"github.com/coursehub/coursehub-api/pkg/response"
)

// ProgressHandler exposes the playback progress endpoints.
type ProgressHandler struct {
	progress    *service.ProgressService
	enrollments *service.EnrollmentService
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(progress *service.ProgressService, enrollments *service.EnrollmentService) *ProgressHandler {
	return &ProgressHandler{progress: progress, enrollments: enrollments}
}

// RecordVideo godoc
// @Summary Record a playback event and recompute course progress
// @Tags Progress
// @Accept json
// @Produce json
// @Param payload body dto.VideoEventRequest true "Playback event"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress/video [put]
func (h *ProgressHandler) RecordVideo(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.VideoEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid playback payload"))
		return
	}

	progress, err := h.progress.RecordVideoEvent(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// List godoc
// @Summary Per-course progress for the current user
// @Tags Progress
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /progress [get]
func (h *ProgressHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	report, err := h.progress.CoursesProgress(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Course godoc
// @Summary Stored aggregate progress for one course
// @Tags Progress
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress/course/{courseId} [get]
func (h *ProgressHandler) Course(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.progress.CourseProgress(c.Request.Context(), claims.UserID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// SetCourse godoc
// @Summary Manually overwrite the aggregate progress for one course
// @Tags Progress
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body dto.ManualProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress/course/{courseId} [put]
func (h *ProgressHandler) SetCourse(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ManualProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid progress payload"))
		return
	}

	enrollment, err := h.enrollments.SetProgress(c.Request.Context(), claims.UserID, c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// CourseVideos godoc
// @Summary Playback state for every lesson of a course
// @Tags Progress
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress/video/course/{courseId} [get]
func (h *ProgressHandler) CourseVideos(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	report, err := h.progress.CourseVideos(c.Request.Context(), claims.UserID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// LessonVideo godoc
// @Summary Playback state for a single lesson, null when never watched
// @Tags Progress
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /progress/video/lesson/{lessonId} [get]
func (h *ProgressHandler) LessonVideo(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	progress, err := h.progress.LessonVideo(c.Request.Context(), claims.UserID, c.Param("lessonId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
