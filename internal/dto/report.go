package dto

import "github.com/coursehub/coursehub-api/internal/models"

// ReportRequest captures POST /admin/reports payload.
type ReportRequest struct {
	Type   models.ExportType   `json:"type" validate:"required,oneof=enrollments progress"`
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportJobResponse is returned after enqueueing an export.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ExportStatus `json:"status"`
}

// ReportStatusResponse exposes job state and, once completed, a signed
// download URL.
type ReportStatusResponse struct {
	ID          string              `json:"id"`
	Type        models.ExportType   `json:"type"`
	Format      models.ExportFormat `json:"format"`
	Status      models.ExportStatus `json:"status"`
	DownloadURL *string             `json:"downloadUrl,omitempty"`
	Error       *string             `json:"error,omitempty"`
}
