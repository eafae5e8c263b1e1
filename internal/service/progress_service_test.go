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
)

type mockVideoProgressRepo struct {
	rows map[string]*models.VideoProgress
}

func videoKey(userID, lessonID string) string {
	return userID + ":" + lessonID
}

func (m *mockVideoProgressRepo) Upsert(ctx context.Context, userID, lessonID, courseID string, watchTime, lastPos *float64, completed *bool) (*models.VideoProgress, error) {
	if m.rows == nil {
		m.rows = make(map[string]*models.VideoProgress)
	}
	key := videoKey(userID, lessonID)
	vp, ok := m.rows[key]
	if !ok {
		vp = &models.VideoProgress{ID: "vp-" + lessonID, UserID: userID, LessonID: lessonID, CourseID: courseID}
		m.rows[key] = vp
	}
	if watchTime != nil {
		vp.WatchTime = *watchTime
	}
	if lastPos != nil {
		vp.LastPos = *lastPos
	}
	if completed != nil {
		vp.Completed = *completed
	}
	vp.LastWatched = time.Now()
	copied := *vp
	return &copied, nil
}

func (m *mockVideoProgressRepo) FindByUserAndLesson(ctx context.Context, userID, lessonID string) (*models.VideoProgress, error) {
	if vp, ok := m.rows[videoKey(userID, lessonID)]; ok {
		copied := *vp
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockVideoProgressRepo) ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]*models.VideoProgress, error) {
	var list []*models.VideoProgress
	for _, vp := range m.rows {
		if vp.UserID == userID && vp.CourseID == courseID {
			copied := *vp
			list = append(list, &copied)
		}
	}
	return list, nil
}

type mockProgressEnrollments struct {
	repo       *mockEnrollmentRepo
	videos     *mockVideoProgressRepo
	lessons    progressLessonReader
	recomputed []string
}

func (m *mockProgressEnrollments) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	return m.repo.FindByUserAndCourse(ctx, userID, courseID)
}

func (m *mockProgressEnrollments) ListByUser(ctx context.Context, userID string) ([]models.EnrolledCourse, error) {
	return m.repo.ListByUser(ctx, userID)
}

// RecomputeProgress mirrors the production SQL: completed/total*100, zero
// when the course has no lessons.
func (m *mockProgressEnrollments) RecomputeProgress(ctx context.Context, userID, courseID string) (float64, error) {
	key := enrollmentKey(userID, courseID)
	e, ok := m.repo.enrollments[key]
	if !ok {
		return 0, sql.ErrNoRows
	}
	lessons, _ := m.lessons.ListByCourse(ctx, courseID)
	completed := 0
	for _, l := range lessons {
		if vp, ok := m.videos.rows[videoKey(userID, l.ID)]; ok && vp.Completed {
			completed++
		}
	}
	var pct float64
	if len(lessons) > 0 {
		pct = float64(completed) * 100.0 / float64(len(lessons))
	}
	e.Progress = pct
	m.repo.enrollments[key] = e
	m.recomputed = append(m.recomputed, key)
	return pct, nil
}

type mockLessonReader struct {
	lessons map[string]*models.Lesson
}

func (m *mockLessonReader) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if l, ok := m.lessons[id]; ok {
		return l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonReader) ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	var list []*models.Lesson
	for _, l := range m.lessons {
		if l.CourseID == courseID {
			list = append(list, l)
		}
	}
	return list, nil
}

func newProgressFixture() (*ProgressService, *mockProgressEnrollments, *mockVideoProgressRepo) {
	videos := &mockVideoProgressRepo{}
	lessons := &mockLessonReader{lessons: map[string]*models.Lesson{
		"lesson-1": {ID: "lesson-1", CourseID: "course-1", Title: "Intro", Position: 1},
		"lesson-2": {ID: "lesson-2", CourseID: "course-1", Title: "Basics", Position: 2},
	}}
	enrollments := &mockProgressEnrollments{
		repo: &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
			enrollmentKey("user-1", "course-1"): {ID: "enr-1", UserID: "user-1", CourseID: "course-1"},
		}},
		videos:  videos,
		lessons: lessons,
	}
	svc := NewProgressService(videos, enrollments, lessons, nil, nil)
	return svc, enrollments, videos
}

func TestProgressServiceRecordVideoEventRecomputes(t *testing.T) {
	svc, enrollments, _ := newProgressFixture()

	completed := true
	vp, err := svc.RecordVideoEvent(context.Background(), "user-1", dto.VideoEventRequest{
		LessonID:  "lesson-1",
		Completed: &completed,
	})
	require.NoError(t, err)
	assert.True(t, vp.Completed)

	// one of two lessons completed
	enrollment, err := enrollments.FindByUserAndCourse(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, enrollment.Progress)
}

// vanishingLessonReader resolves individual lessons but reports the
// course as empty, as happens when the last lesson is removed between
// the playback event and the recompute.
type vanishingLessonReader struct {
	*mockLessonReader
}

func (r vanishingLessonReader) ListByCourse(ctx context.Context, courseID string) ([]*models.Lesson, error) {
	return nil, nil
}

func TestProgressServiceRecomputeZeroLessonsStoresZero(t *testing.T) {
	videos := &mockVideoProgressRepo{}
	lessons := vanishingLessonReader{&mockLessonReader{lessons: map[string]*models.Lesson{
		"lesson-1": {ID: "lesson-1", CourseID: "course-1", Title: "Intro", Position: 1},
	}}}
	enrollments := &mockProgressEnrollments{
		repo: &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
			enrollmentKey("user-1", "course-1"): {ID: "enr-1", UserID: "user-1", CourseID: "course-1", Progress: 50},
		}},
		videos:  videos,
		lessons: lessons,
	}
	svc := NewProgressService(videos, enrollments, lessons, nil, nil)

	completed := true
	_, err := svc.RecordVideoEvent(context.Background(), "user-1", dto.VideoEventRequest{
		LessonID:  "lesson-1",
		Completed: &completed,
	})
	require.NoError(t, err)

	enrollment, err := enrollments.FindByUserAndCourse(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, enrollment.Progress)
}

func TestProgressServiceRecordVideoEventPartialUpdate(t *testing.T) {
	svc, _, videos := newProgressFixture()

	watch := 90.0
	completed := true
	_, err := svc.RecordVideoEvent(context.Background(), "user-1", dto.VideoEventRequest{LessonID: "lesson-1", WatchTime: &watch, Completed: &completed})
	require.NoError(t, err)

	// event without completed keeps the stored completion flag
	watch = 120.0
	vp, err := svc.RecordVideoEvent(context.Background(), "user-1", dto.VideoEventRequest{LessonID: "lesson-1", WatchTime: &watch})
	require.NoError(t, err)
	assert.True(t, vp.Completed)
	assert.Equal(t, 120.0, vp.WatchTime)
	assert.True(t, videos.rows[videoKey("user-1", "lesson-1")].Completed)
}

func TestProgressServiceRecordVideoEventLessonNotFound(t *testing.T) {
	svc, _, _ := newProgressFixture()

	_, err := svc.RecordVideoEvent(context.Background(), "user-1", dto.VideoEventRequest{LessonID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProgressServiceRecordVideoEventNotEnrolled(t *testing.T) {
	svc, _, _ := newProgressFixture()

	_, err := svc.RecordVideoEvent(context.Background(), "user-2", dto.VideoEventRequest{LessonID: "lesson-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProgressServiceCourseVideosOverlay(t *testing.T) {
	svc, _, _ := newProgressFixture()

	completed := true
	_, err := svc.RecordVideoEvent(context.Background(), "user-1", dto.VideoEventRequest{LessonID: "lesson-1", Completed: &completed})
	require.NoError(t, err)

	report, err := svc.CourseVideos(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalLessons)
	assert.Equal(t, 1, report.CompletedCount)
	assert.Equal(t, 50.0, report.OverallProgress)

	// the unwatched lesson reports zero-value state
	for _, entry := range report.Lessons {
		if entry.Lesson.ID == "lesson-2" {
			assert.False(t, entry.Completed)
			assert.Equal(t, 0.0, entry.WatchTime)
			assert.Nil(t, entry.Progress)
		}
	}
}

func TestProgressServiceCourseVideosNotEnrolled(t *testing.T) {
	svc, _, _ := newProgressFixture()

	_, err := svc.CourseVideos(context.Background(), "user-2", "course-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProgressServiceLessonVideoNilWhenUnwatched(t *testing.T) {
	svc, _, _ := newProgressFixture()

	vp, err := svc.LessonVideo(context.Background(), "user-1", "lesson-1")
	require.NoError(t, err)
	assert.Nil(t, vp)
}
