package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements holds the DDL for every table the API uses. Each
// statement is idempotent so EnsureSchema is safe to run on every boot.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL DEFAULT 'student',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id UUID PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(10,2) NOT NULL DEFAULT 0,
		author_id UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id UUID PRIMARY KEY,
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		video_url VARCHAR(1024) NOT NULL DEFAULT '',
		position INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lessons_course_position ON lessons (course_id, position)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		progress DOUBLE PRECISION NOT NULL DEFAULT 0,
		enrolled_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, course_id)
	)`,
	`CREATE TABLE IF NOT EXISTS video_progress (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		lesson_id UUID NOT NULL,
		course_id UUID NOT NULL,
		watch_time DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_position DOUBLE PRECISION NOT NULL DEFAULT 0,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		last_watched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, lesson_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_video_progress_user_course ON video_progress (user_id, course_id)`,
	`CREATE TABLE IF NOT EXISTS export_jobs (
		id UUID PRIMARY KEY,
		type VARCHAR(32) NOT NULL,
		format VARCHAR(8) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		file_path VARCHAR(1024) NOT NULL DEFAULT '',
		error_text TEXT NOT NULL DEFAULT '',
		requested_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		user_id UUID,
		action VARCHAR(64) NOT NULL,
		resource VARCHAR(64) NOT NULL,
		resource_id UUID,
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		user_agent VARCHAR(512) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at)`,
}

// EnsureSchema creates any missing tables and indexes. Rows in
// video_progress intentionally keep no foreign key to lessons so that
// playback history survives lesson deletion.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
