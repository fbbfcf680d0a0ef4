// internal/common/database/schema.go
package database

import (
	"context"
	"fmt"
)

// schemaStatements are idempotent and applied in order.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                   BIGSERIAL PRIMARY KEY,
		username             VARCHAR(255) NOT NULL UNIQUE,
		email                VARCHAR(255) NOT NULL,
		password_hash        VARCHAR(255) NOT NULL,
		first_name           VARCHAR(255) NOT NULL,
		last_name            VARCHAR(255) NOT NULL DEFAULT '',
		phone                VARCHAR(64),
		role                 VARCHAR(32)  NOT NULL,
		status               VARCHAR(32)  NOT NULL,
		must_rotate_password BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at           TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS job_applications (
		id                  BIGSERIAL PRIMARY KEY,
		full_name           VARCHAR(255)  NOT NULL,
		email               VARCHAR(255)  NOT NULL,
		phone               VARCHAR(64)   NOT NULL,
		position            VARCHAR(255)  NOT NULL,
		cover_letter        VARCHAR(2000),
		resume_url          VARCHAR(500),
		portfolio_url       VARCHAR(500),
		linkedin_url        VARCHAR(500),
		github_url          VARCHAR(500),
		years_of_experience INTEGER,
		skills              VARCHAR(1000),
		status              VARCHAR(32)   NOT NULL DEFAULT 'NEW',
		admin_notes         VARCHAR(1000),
		assigned_role       VARCHAR(255),
		stipend             NUMERIC(12,2),
		joining_date        VARCHAR(32),
		employment_type     VARCHAR(64),
		department          VARCHAR(255),
		work_location       VARCHAR(255),
		offer_accepted      BOOLEAN       NOT NULL DEFAULT FALSE,
		staff_user_id       BIGINT REFERENCES users(id) ON DELETE SET NULL,
		applied_at          TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
		reviewed_at         TIMESTAMPTZ,
		hired_at            TIMESTAMPTZ,
		created_at          TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
		CONSTRAINT job_applications_email_key UNIQUE (email),
		CONSTRAINT job_applications_staff_user_key UNIQUE (staff_user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_applications_status_applied
		ON job_applications (status, applied_at DESC)`,
	`CREATE TABLE IF NOT EXISTS document_sequences (
		kind       VARCHAR(32) NOT NULL,
		owner_id   BIGINT      NOT NULL,
		value      BIGINT      NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (kind, owner_id)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id            BIGSERIAL PRIMARY KEY,
		event_type    VARCHAR(64)  NOT NULL,
		resource_type VARCHAR(64)  NOT NULL,
		resource_id   VARCHAR(64)  NOT NULL,
		details       JSONB,
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables the workers rely on.
func EnsureSchema(ctx context.Context, db Queryer) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
