package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-backend/internal/attachments/domain"
	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
)

const attachmentColumns = `id, project_id, task_id, file_name, content_type, size_bytes, checksum, storage_key, uploaded_by, created_at`

type AttachmentRepository struct {
	db postgres.DBTX
}

func NewAttachmentRepository(db postgres.DBTX) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttachment(row rowScanner) (*domain.Attachment, error) {
	var a domain.Attachment
	var taskID sql.NullString
	err := row.Scan(&a.ID, &a.ProjectID, &taskID, &a.FileName, &a.ContentType, &a.SizeBytes,
		&a.Checksum, &a.StorageKey, &a.UploadedBy, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if taskID.Valid {
		a.TaskID = &taskID.String
	}
	return &a, nil
}

func (r *AttachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	const q = `
INSERT INTO attachments (id, project_id, task_id, file_name, content_type, size_bytes, checksum, storage_key, uploaded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at;
`
	err := r.db.QueryRowContext(ctx, q, a.ID, a.ProjectID, a.TaskID, a.FileName, a.ContentType, a.SizeBytes,
		a.Checksum, a.StorageKey, a.UploadedBy).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1`
	return scanAttachment(r.db.QueryRowContext(ctx, q, id))
}

// List returns the project's attachments, newest first. A non-empty taskID
// restricts the result to that task.
func (r *AttachmentRepository) List(ctx context.Context, projectID, taskID string) ([]domain.Attachment, error) {
	q := `SELECT ` + attachmentColumns + ` FROM attachments WHERE project_id = $1`
	args := []interface{}{projectID}
	if taskID != "" {
		q += ` AND task_id = $2`
		args = append(args, taskID)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Attachment, 0, 8)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
