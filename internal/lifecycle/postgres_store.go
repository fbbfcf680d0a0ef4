package lifecycle

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"codavert-workers/internal/common/database"
	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/models"
	"codavert-workers/internal/provisioning"
)

const recordColumns = `id, full_name, email, phone, position, cover_letter, resume_url,
	portfolio_url, linkedin_url, github_url, years_of_experience, skills, status,
	admin_notes, assigned_role, stipend, joining_date, employment_type, department,
	work_location, offer_accepted, staff_user_id, applied_at, reviewed_at, hired_at,
	created_at, updated_at`

// PostgresStore keeps records in job_applications and provisions into users
// on the same transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&postgresTx{tx: tx})
	})
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewDatabaseError("application transaction", err)
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.ApplicationRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM job_applications WHERE id = $1`, id)
	return scanOne(row, id)
}

func (s *PostgresStore) List(ctx context.Context, filter models.ApplicationFilter) ([]*models.ApplicationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM job_applications`
	var args []interface{}
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY applied_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("list applications", err)
	}
	defer rows.Close()

	var out []*models.ApplicationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("scan application", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list applications", err)
	}
	return out, nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		details = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.EventType,
		entry.ResourceType,
		entry.ResourceID,
		details,
		entry.CreatedAt,
	)
	return err
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) GetForUpdate(ctx context.Context, id int64) (*models.ApplicationRecord, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM job_applications WHERE id = $1 FOR UPDATE`, id)
	return scanOne(row, id)
}

func (t *postgresTx) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM job_applications
			WHERE email = $1 AND id <> $2
		)`, email, excludeID).Scan(&exists)
	if err != nil {
		return false, errors.NewDatabaseError("check application email", err)
	}
	return exists, nil
}

func (t *postgresTx) Insert(ctx context.Context, r *models.ApplicationRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO job_applications (
			full_name, email, phone, position, cover_letter, resume_url,
			portfolio_url, linkedin_url, github_url, years_of_experience, skills,
			status, applied_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		r.FullName,
		r.Email,
		r.Phone,
		r.Position,
		nullString(r.CoverLetter),
		nullString(r.ResumeURL),
		nullString(r.PortfolioURL),
		nullString(r.LinkedinURL),
		nullString(r.GithubURL),
		r.YearsOfExperience,
		nullString(r.Skills),
		string(r.Status),
		r.AppliedAt,
		r.CreatedAt,
		r.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, mapWriteError("insert application", r.Email, err)
	}
	return id, nil
}

func (t *postgresTx) Save(ctx context.Context, r *models.ApplicationRecord) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE job_applications SET
			full_name = $2, email = $3, phone = $4, position = $5, cover_letter = $6,
			resume_url = $7, portfolio_url = $8, linkedin_url = $9, github_url = $10,
			years_of_experience = $11, skills = $12, status = $13, admin_notes = $14,
			assigned_role = $15, stipend = $16, joining_date = $17, employment_type = $18,
			department = $19, work_location = $20, offer_accepted = $21, staff_user_id = $22,
			reviewed_at = $23, hired_at = $24, updated_at = $25
		WHERE id = $1`,
		r.ID,
		r.FullName,
		r.Email,
		r.Phone,
		r.Position,
		nullString(r.CoverLetter),
		nullString(r.ResumeURL),
		nullString(r.PortfolioURL),
		nullString(r.LinkedinURL),
		nullString(r.GithubURL),
		r.YearsOfExperience,
		nullString(r.Skills),
		string(r.Status),
		nullString(r.AdminNotes),
		nullString(r.Hire.AssignedRole),
		r.Hire.Stipend,
		nullString(r.Hire.JoiningDate),
		nullString(r.Hire.EmploymentType),
		nullString(r.Hire.Department),
		nullString(r.Hire.WorkLocation),
		r.OfferAccepted,
		r.StaffAccountID,
		r.ReviewedAt,
		r.HiredAt,
		r.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("update application", r.Email, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewApplicationNotFoundError(r.ID)
	}
	return nil
}

func (t *postgresTx) Delete(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM job_applications WHERE id = $1`, id)
	if err != nil {
		return errors.NewDatabaseError("delete application", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewApplicationNotFoundError(id)
	}
	return nil
}

func (t *postgresTx) Identities() provisioning.IdentityStore {
	return provisioning.NewSQLIdentityStore(t.tx)
}

// mapWriteError turns the email unique constraint into DuplicateApplication.
func mapWriteError(op, email string, err error) error {
	if database.IsUniqueViolation(err) {
		if database.ConstraintName(err) == "job_applications_staff_user_key" {
			return errors.NewDatabaseError(op, err)
		}
		return errors.NewDuplicateApplicationError(email)
	}
	return errors.NewDatabaseError(op, err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOne(row rowScanner, id int64) (*models.ApplicationRecord, error) {
	rec, err := scanRecord(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewApplicationNotFoundError(id)
		}
		return nil, errors.NewDatabaseError("load application", err)
	}
	return rec, nil
}

func scanRecord(row rowScanner) (*models.ApplicationRecord, error) {
	var (
		r           models.ApplicationRecord
		status      string
		stipend     sql.NullFloat64
		reviewedAt  sql.NullTime
		hiredAt     sql.NullTime
		staffUserID sql.NullInt64
		experience  sql.NullInt64

		coverLetter, resumeURL, portfolioURL, linkedinURL, githubURL sql.NullString
		skills, adminNotes, assignedRole, joiningDate                sql.NullString
		employmentType, department, workLocation                     sql.NullString
	)

	err := row.Scan(
		&r.ID, &r.FullName, &r.Email, &r.Phone, &r.Position, &coverLetter, &resumeURL,
		&portfolioURL, &linkedinURL, &githubURL, &experience, &skills, &status,
		&adminNotes, &assignedRole, &stipend, &joiningDate, &employmentType, &department,
		&workLocation, &r.OfferAccepted, &staffUserID, &r.AppliedAt, &reviewedAt, &hiredAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = models.ApplicationStatus(status)
	r.CoverLetter = coverLetter.String
	r.ResumeURL = resumeURL.String
	r.PortfolioURL = portfolioURL.String
	r.LinkedinURL = linkedinURL.String
	r.GithubURL = githubURL.String
	r.Skills = skills.String
	r.AdminNotes = adminNotes.String
	r.Hire = models.HireDetails{
		AssignedRole:   assignedRole.String,
		JoiningDate:    joiningDate.String,
		EmploymentType: employmentType.String,
		Department:     department.String,
		WorkLocation:   workLocation.String,
	}
	if experience.Valid {
		v := int(experience.Int64)
		r.YearsOfExperience = &v
	}
	if stipend.Valid {
		v := stipend.Float64
		r.Hire.Stipend = &v
	}
	if staffUserID.Valid {
		v := staffUserID.Int64
		r.StaffAccountID = &v
	}
	if reviewedAt.Valid {
		v := reviewedAt.Time
		r.ReviewedAt = &v
	}
	if hiredAt.Valid {
		v := hiredAt.Time
		r.HiredAt = &v
	}
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
