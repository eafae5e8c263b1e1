package models

import "time"

// ExportType identifies the dataset an export job renders.
type ExportType string

const (
	ExportEnrollments ExportType = "enrollments"
	ExportProgress    ExportType = "progress"
)

// ExportFormat identifies the output format of an export job.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportStatus is the lifecycle state of an export job.
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportRunning   ExportStatus = "running"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// ExportJob is a persisted asynchronous report export.
type ExportJob struct {
	ID          string       `db:"id" json:"id"`
	Type        ExportType   `db:"type" json:"type"`
	Format      ExportFormat `db:"format" json:"format"`
	Status      ExportStatus `db:"status" json:"status"`
	FilePath    string       `db:"file_path" json:"-"`
	ErrorText   string       `db:"error_text" json:"error,omitempty"`
	RequestedBy string       `db:"requested_by" json:"requested_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}
