package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coursehub/coursehub-api/internal/dto"
	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:stats"

type entityCounter interface {
	Count(ctx context.Context) (int, error)
}

// DashboardService aggregates platform-wide counts for administrators.
type DashboardService struct {
	users       entityCounter
	courses     entityCounter
	lessons     entityCounter
	enrollments entityCounter
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(users, courses, lessons, enrollments entityCounter, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{users: users, courses: courses, lessons: lessons, enrollments: enrollments, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Stats returns platform counts. The four counts run concurrently and
// the assembled payload is cached. The second return value reports
// whether the payload came from cache.
func (s *DashboardService) Stats(ctx context.Context) (*dto.DashboardStats, bool, error) {
	var cached dto.DashboardStats
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	var stats dto.DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		stats.Users = n
		return err
	})
	g.Go(func() error {
		n, err := s.courses.Count(gctx)
		stats.Courses = n
		return err
	})
	g.Go(func() error {
		n, err := s.lessons.Count(gctx)
		stats.Lessons = n
		return err
	})
	g.Go(func() error {
		n, err := s.enrollments.Count(gctx)
		stats.Enrollments = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to gather dashboard stats")
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
	}

	return &stats, false, nil
}

// Invalidate drops the cached dashboard payload. Called after admin
// mutations so the next read reflects them.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
