package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin        = "LOGIN"
	AuditActionRegister     = "REGISTER"
	AuditActionUserCreate   = "USER_CREATE"
	AuditActionUserUpdate   = "USER_UPDATE"
	AuditActionUserDelete   = "USER_DELETE"
	AuditActionCourseCreate = "COURSE_CREATE"
	AuditActionCourseUpdate = "COURSE_UPDATE"
	AuditActionCourseDelete = "COURSE_DELETE"
	AuditActionLessonCreate = "LESSON_CREATE"
	AuditActionLessonUpdate = "LESSON_UPDATE"
	AuditActionLessonDelete = "LESSON_DELETE"
	AuditActionExportCreate = "EXPORT_CREATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
