package dto

import "github.com/coursehub/coursehub-api/internal/models"

// VideoEventRequest is the playback event submitted by the video player.
// Omitted optional fields leave the stored values untouched. The course
// is derived from the lesson server-side, so courseId is informational.
type VideoEventRequest struct {
	LessonID  string   `json:"lessonId" validate:"required"`
	CourseID  string   `json:"courseId" validate:"omitempty"`
	WatchTime *float64 `json:"watchTime" validate:"omitempty,gte=0"`
	LastPos   *float64 `json:"lastPosition" validate:"omitempty,gte=0"`
	Completed *bool    `json:"completed"`
}

// CourseProgressStatus is the caller's stored aggregate for one course.
type CourseProgressStatus struct {
	CourseID     string  `json:"courseId"`
	Progress     float64 `json:"progress"`
	LastAccessed string  `json:"lastAccessed"`
}

// ManualProgressRequest overwrites the aggregate progress of an enrollment.
type ManualProgressRequest struct {
	Progress float64 `json:"progress" validate:"gte=0,lte=100"`
}

// LessonProgress overlays a lesson with the caller's playback state.
type LessonProgress struct {
	Lesson    *models.Lesson        `json:"lesson"`
	Progress  *models.VideoProgress `json:"progress"`
	Completed bool                  `json:"completed"`
	WatchTime float64               `json:"watchTime"`
	LastPos   float64               `json:"lastPosition"`
}

// CourseVideosProgress is the per-course playback report: every lesson in
// order with the caller's state, plus the stored aggregate.
type CourseVideosProgress struct {
	CourseID        string           `json:"courseId"`
	Lessons         []LessonProgress `json:"lessons"`
	TotalLessons    int              `json:"totalLessons"`
	CompletedCount  int              `json:"completedLessons"`
	OverallProgress float64          `json:"overallProgress"`
}

// EnrollmentStatus reports whether the caller is enrolled in a course.
type EnrollmentStatus struct {
	IsEnrolled bool               `json:"isEnrolled"`
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
}

// CourseProgressSummary is one row of the caller's cross-course report.
type CourseProgressSummary struct {
	CourseID    string  `json:"courseId"`
	CourseTitle string  `json:"courseTitle"`
	Progress    float64 `json:"progress"`
	EnrolledAt  string  `json:"enrolledAt"`
}

// CoursesProgress aggregates the caller's progress across enrollments.
type CoursesProgress struct {
	Courses []CourseProgressSummary `json:"courses"`
}
