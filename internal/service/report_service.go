package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/coursehub/coursehub-api/internal/dto"
	"github.com/coursehub/coursehub-api/internal/models"
	"github.com/coursehub/coursehub-api/internal/repository"
	appErrors "github.com/coursehub/coursehub-api/pkg/errors"
	"github.com/coursehub/coursehub-api/pkg/jobs"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListUnfinished(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListCompletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

// ReportServiceConfig governs artifact retention and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ReportService orchestrates export job lifecycle management.
type ReportService struct {
	repo      exportJobStore
	queue     jobDispatcher
	exporter  *ExportService
	auditor   courseAuditor
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(repo exportJobStore, queue jobDispatcher, exporter *ExportService, auditor courseAuditor, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ReportService{repo: repo, queue: queue, exporter: exporter, auditor: auditor, validator: validate, logger: logger, cfg: cfg}
}

// CreateJob validates the request, persists the job, and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest, actorID string, meta RequestMeta) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	job := &models.ExportJob{
		Type:        req.Type,
		Format:      req.Format,
		Status:      models.ExportPending,
		RequestedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		failed := models.ExportFailed
		msg := "failed to enqueue job"
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &failed, ErrorText: &msg})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}

	if s.auditor != nil {
		if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionExportCreate,
			Resource:   "reports",
			ResourceID: &job.ID,
			IPAddress:  meta.IP,
			UserAgent:  meta.UserAgent,
		}); err != nil {
			s.logger.Warn("failed to record export audit log", zap.Error(err))
		}
	}

	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// RequeuePending puts jobs interrupted by a restart back on the queue.
func (s *ReportService) RequeuePending(ctx context.Context) {
	unfinished, err := s.repo.ListUnfinished(ctx, 0)
	if err != nil {
		s.logger.Warn("failed to list unfinished export jobs", zap.Error(err))
		return
	}
	for _, job := range unfinished {
		if job.Status == models.ExportRunning {
			pending := models.ExportPending
			if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &pending}); err != nil {
				s.logger.Warn("failed to reset export job", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
		}
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to re-enqueue export job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if len(unfinished) > 0 {
		s.logger.Info("re-enqueued unfinished export jobs", zap.Int("count", len(unfinished)))
	}
}

// GetStatus exposes job metadata, attaching a signed download URL for
// completed jobs.
func (s *ReportService) GetStatus(ctx context.Context, id string) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}

	resp := &dto.ReportStatusResponse{
		ID:     job.ID,
		Type:   job.Type,
		Format: job.Format,
		Status: job.Status,
	}
	if job.Status == models.ExportCompleted && job.FilePath != "" {
		resp.DownloadURL = &job.FilePath
	}
	if job.ErrorText != "" {
		resp.Error = &job.ErrorText
	}
	return resp, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.ExportCompleted || !strings.HasSuffix(job.FilePath, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}

	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	jobsDue, err := s.repo.ListCompletedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Warn("cleanup list failed", zap.Error(err))
		return
	}
	for _, job := range jobsDue {
		token := extractToken(job.FilePath)
		if token == "" {
			continue
		}
		_, relPath, _, err := s.exporter.ParseToken(token, true)
		if err != nil {
			continue
		}
		if err := s.exporter.Delete(relPath); err != nil {
			s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	if idx := strings.LastIndex(url, "token="); idx >= 0 {
		return url[idx+len("token="):]
	}
	return ""
}

// ReportWorker bridges queue jobs to the ExportService.
type ReportWorker struct {
	repo       exportJobStore
	exporter   exportGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo exportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{repo: repo, exporter: exporter, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}

	running := models.ExportRunning
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &running}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ExportFailed
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &failed, ErrorText: &msg}); updateErr != nil {
				w.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		} else {
			pending := models.ExportPending
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &pending, ErrorText: &msg}); updateErr != nil {
				w.logger.Warn("failed to mark job pending", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	completed := models.ExportCompleted
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &completed, FilePath: &result.URL, ErrorText: &clear}); err != nil {
		w.logger.Warn("failed to mark job completed", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	return nil
}
