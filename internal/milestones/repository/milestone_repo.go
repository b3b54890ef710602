package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-backend/internal/milestones/domain"
	reportdomain "github.com/taskdeck/taskdeck-backend/internal/reports/domain"
	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
)

const milestoneSelect = `
SELECT m.id, m.project_id, m.title, m.description, m.due_date, m.status, m.completed_at, m.created_at, m.updated_at,
       count(t.id), count(t.id) FILTER (WHERE t.status = 'done')
FROM milestones m
LEFT JOIN tasks t ON t.milestone_id = m.id AND t.deleted_at IS NULL
`

type MilestoneRepository struct {
	db postgres.DBTX
}

// NewMilestoneRepository accepts a *sql.DB or a *sql.Tx.
func NewMilestoneRepository(db postgres.DBTX) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMilestone(row rowScanner) (*domain.Milestone, error) {
	var m domain.Milestone
	var dueDate, completedAt sql.NullTime

	err := row.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Description, &dueDate, &m.Status, &completedAt,
		&m.CreatedAt, &m.UpdatedAt, &m.Progress.Total, &m.Progress.Done)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if dueDate.Valid {
		m.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		m.CompletedAt = &completedAt.Time
	}
	m.Progress.Percent = reportdomain.Percent(m.Progress.Done, m.Progress.Total)
	return &m, nil
}

func (r *MilestoneRepository) Create(ctx context.Context, m *domain.Milestone) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	const q = `
INSERT INTO milestones (id, project_id, title, description, due_date, status, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at;
`
	err := r.db.QueryRowContext(ctx, q, m.ID, m.ProjectID, m.Title, m.Description, m.DueDate, m.Status, m.CompletedAt).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert milestone: %w", err)
	}
	return nil
}

func (r *MilestoneRepository) GetByID(ctx context.Context, id string) (*domain.Milestone, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrNotFound
	}
	return scanMilestone(r.db.QueryRowContext(ctx, milestoneSelect+`WHERE m.id = $1 GROUP BY m.id`, id))
}

// ListByProject returns the project's milestones by due date, undated last.
func (r *MilestoneRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Milestone, error) {
	q := milestoneSelect + `WHERE m.project_id = $1 GROUP BY m.id ORDER BY m.due_date NULLS LAST, m.created_at`
	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Milestone, 0, 8)
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MilestoneRepository) Update(ctx context.Context, m *domain.Milestone) error {
	const q = `
UPDATE milestones
SET title = $2, description = $3, due_date = $4, status = $5, completed_at = $6, updated_at = now()
WHERE id = $1
RETURNING updated_at;
`
	err := r.db.QueryRowContext(ctx, q, m.ID, m.Title, m.Description, m.DueDate, m.Status, m.CompletedAt).Scan(&m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// Delete removes the milestone; its tasks keep existing with the milestone cleared.
func (r *MilestoneRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM milestones WHERE id = $1`, id)
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
