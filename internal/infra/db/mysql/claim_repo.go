package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/vetletters/claims-intake/internal/domain/claims"
)

type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Save insert/update ClaimRecord
func (r *ClaimRepository) Save(ctx context.Context, rec *domain.ClaimRecord) error {
	const q = `
INSERT INTO va_claims
(id, veteran_name, veteran_email, file_id, file_name, file_size, file_type,
 download_url, uploaded_time, status,
 archive_key, storage_file_id, report_url, share_url, crm_record_id,
 conditions_reviewed, monthly_increase,
 failed_stage, last_error, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status),
 archive_key=VALUES(archive_key), storage_file_id=VALUES(storage_file_id),
 report_url=VALUES(report_url), share_url=VALUES(share_url),
 crm_record_id=VALUES(crm_record_id),
 conditions_reviewed=VALUES(conditions_reviewed), monthly_increase=VALUES(monthly_increase),
 failed_stage=VALUES(failed_stage), last_error=VALUES(last_error),
 updated_at=VALUES(updated_at);
`
	// Non-nullable string columns get safe defaults
	name := stringOrDash(rec.VeteranName)
	status := stringOrDash(string(rec.Status))
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, q,
		rec.ID, name, rec.VeteranEmail, rec.FileID, rec.FileName, rec.FileSize, rec.FileType,
		rec.DownloadURL, rec.UploadedTime, status,
		rec.ArchiveKey, rec.StorageFileID, rec.ReportURL, rec.ShareURL, rec.CRMRecordID,
		rec.ConditionsReviewed, rec.MonthlyIncrease,
		string(rec.FailedStage), rec.LastError, created, updated,
	)
	return err
}

// Get by ID
func (r *ClaimRepository) Get(ctx context.Context, id domain.ClaimID) (*domain.ClaimRecord, error) {
	const q = `
SELECT id, veteran_name, veteran_email, file_id, file_name, file_size, file_type,
       download_url, uploaded_time, status,
       archive_key, storage_file_id, report_url, share_url, crm_record_id,
       conditions_reviewed, monthly_increase,
       failed_stage, last_error, created_at, updated_at
FROM va_claims
WHERE id=? LIMIT 1;
`
	rec, err := scanClaim(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// Latest claims, newest first
func (r *ClaimRepository) Latest(ctx context.Context, limit int) ([]*domain.ClaimRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, veteran_name, veteran_email, file_id, file_name, file_size, file_type,
       download_url, uploaded_time, status,
       archive_key, storage_file_id, report_url, share_url, crm_record_id,
       conditions_reviewed, monthly_increase,
       failed_stage, last_error, created_at, updated_at
FROM va_claims
ORDER BY created_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ClaimRecord
	for rows.Next() {
		rec, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*domain.ClaimRecord, error) {
	var rec domain.ClaimRecord
	var failedStage string
	if err := row.Scan(
		&rec.ID, &rec.VeteranName, &rec.VeteranEmail, &rec.FileID, &rec.FileName, &rec.FileSize, &rec.FileType,
		&rec.DownloadURL, &rec.UploadedTime, &rec.Status,
		&rec.ArchiveKey, &rec.StorageFileID, &rec.ReportURL, &rec.ShareURL, &rec.CRMRecordID,
		&rec.ConditionsReviewed, &rec.MonthlyIncrease,
		&failedStage, &rec.LastError, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.FailedStage = domain.Stage(failedStage)
	return &rec, nil
}
