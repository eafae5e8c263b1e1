package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/coursehub-api/internal/dto"
	"github.com/coursehub/coursehub-api/internal/service"
	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
	"github.com/coursehub/coursehub-api/pkg/response"
)

// EnrollmentHandler exposes enrollment endpoints for the current user.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// EnrollPayload identifies the course to enroll in.
type EnrollPayload struct {
	CourseID string `json:"courseId" binding:"required"`
}

// ManualProgressPayload overwrites the aggregate progress of an enrollment.
type ManualProgressPayload struct {
	CourseID string  `json:"courseId" binding:"required"`
	Progress float64 `json:"progress"`
}

// Enroll godoc
// @Summary Enroll the current user in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body handler.EnrollPayload true "Course to enroll in"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req EnrollPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "courseId is required"))
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), claims.UserID, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// MyCourses godoc
// @Summary List the current user's enrollments with course details
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/my-courses [get]
func (h *EnrollmentHandler) MyCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courses, err := h.enrollments.MyCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Status godoc
// @Summary Report whether the current user is enrolled in a course
// @Tags Enrollments
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/status/{courseId} [get]
func (h *EnrollmentHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.enrollments.Status(c.Request.Context(), claims.UserID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// SetProgress godoc
// @Summary Manually overwrite the aggregate progress of an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body handler.ManualProgressPayload true "Progress payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/progress [put]
func (h *EnrollmentHandler) SetProgress(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req ManualProgressPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid progress payload"))
		return
	}

	enrollment, err := h.enrollments.SetProgress(c.Request.Context(), claims.UserID, req.CourseID, dto.ManualProgressRequest{Progress: req.Progress})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Unenroll godoc
// @Summary Remove the current user's enrollment in a course
// @Tags Enrollments
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{courseId} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.enrollments.Unenroll(c.Request.Context(), claims.UserID, c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Certificate godoc
// @Summary Download the completion certificate for a finished course
// @Tags Enrollments
// @Produce octet-stream
// @Param courseId path string true "Course ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollments/certificate/{courseId} [get]
func (h *EnrollmentHandler) Certificate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pdf, filename, err := h.enrollments.Certificate(c.Request.Context(), claims.UserID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
