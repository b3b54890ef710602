package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
	"github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

const taskColumns = `id, project_id, milestone_id, title, description, status, priority, assignee_id,
reporter_id, due_date, estimate_hours, position, tags, completed_at, created_at, updated_at`

type TaskRepository struct {
	db postgres.DBTX
}

// NewTaskRepository accepts a *sql.DB or a *sql.Tx.
func NewTaskRepository(db postgres.DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner, extra ...interface{}) (*domain.Task, error) {
	var t domain.Task
	var milestoneID, assigneeID sql.NullString
	var dueDate, completedAt sql.NullTime
	var estimate sql.NullFloat64

	dest := []interface{}{
		&t.ID, &t.ProjectID, &milestoneID, &t.Title, &t.Description, &t.Status, &t.Priority, &assigneeID,
		&t.ReporterID, &dueDate, &estimate, &t.Position, pq.Array(&t.Tags), &completedAt, &t.CreatedAt, &t.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if milestoneID.Valid {
		t.MilestoneID = &milestoneID.String
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if estimate.Valid {
		t.EstimateHours = &estimate.Float64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return &t, nil
}

// Create inserts a task at the end of its project's ordering.
func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	const q = `
INSERT INTO tasks (id, project_id, milestone_id, title, description, status, priority, assignee_id,
                   reporter_id, due_date, estimate_hours, position, tags, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
        (SELECT coalesce(max(position), 0) + 1 FROM tasks WHERE project_id = $2), $12, $13)
RETURNING position, created_at, updated_at;
`
	err := r.db.QueryRowContext(ctx, q,
		t.ID, t.ProjectID, t.MilestoneID, t.Title, t.Description, t.Status, t.Priority, t.AssigneeID,
		t.ReporterID, t.DueDate, t.EstimateHours, pq.Array(t.Tags), t.CompletedAt,
	).Scan(&t.Position, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND deleted_at IS NULL`
	return scanTask(r.db.QueryRowContext(ctx, q, id))
}

// List returns the project's live tasks ordered by position, plus the total matching count.
func (r *TaskRepository) List(ctx context.Context, f domain.ListFilter) ([]domain.Task, int, error) {
	var (
		where = []string{"project_id = $1", "deleted_at IS NULL"}
		args  = []interface{}{f.ProjectID}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.AssigneeID != "" {
		add("assignee_id = $%d", f.AssigneeID)
	}
	if f.MilestoneID != "" {
		add("milestone_id = $%d", f.MilestoneID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("title ILIKE '%%' || $%d || '%%'", q)
	}
	if f.Overdue {
		add("due_date < $%d AND status <> 'done'", f.Now)
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`
SELECT %s, count(*) OVER()
FROM tasks
WHERE %s
ORDER BY position, created_at
LIMIT $%d OFFSET $%d;
`, taskColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Task, 0, 32)
	total := 0
	for rows.Next() {
		t, err := scanTask(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListOpenDue returns live, unfinished tasks with a due date in (from, to].
func (r *TaskRepository) ListOpenDue(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	q := `
SELECT ` + taskColumns + `
FROM tasks
WHERE deleted_at IS NULL AND status <> 'done'
  AND due_date > $1 AND due_date <= $2
ORDER BY due_date;
`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update writes every mutable field of t.
func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	const q = `
UPDATE tasks
SET milestone_id = $2, title = $3, description = $4, status = $5, priority = $6, assignee_id = $7,
    due_date = $8, estimate_hours = $9, position = $10, tags = $11, completed_at = $12, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING updated_at;
`
	err := r.db.QueryRowContext(ctx, q,
		t.ID, t.MilestoneID, t.Title, t.Description, t.Status, t.Priority, t.AssigneeID,
		t.DueDate, t.EstimateHours, t.Position, pq.Array(t.Tags), t.CompletedAt,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (r *TaskRepository) SoftDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
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

// MilestoneProjectID returns the project a milestone belongs to.
func (r *TaskRepository) MilestoneProjectID(ctx context.Context, milestoneID string) (string, error) {
	if uuid.Validate(milestoneID) != nil {
		return "", domain.ErrMilestoneMismatch
	}
	var projectID string
	err := r.db.QueryRowContext(ctx, `SELECT project_id FROM milestones WHERE id = $1`, milestoneID).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrMilestoneMismatch
	}
	return projectID, err
}
